package hyperfetch

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/goccy/go-json"
	fiber "github.com/gofiber/fiber/v3"
	"github.com/hyp3rd/ewrap"
	"github.com/rs/zerolog"

	"github.com/hyp3rd/hyperfetch/internal/sentinel"
	"github.com/hyp3rd/hyperfetch/pkg/models"
)

// RequestTimeoutHeader carries an optional per-call deadline as a Go duration ("1.5s").
const RequestTimeoutHeader = "X-Request-Timeout"

// ErrorBody is the JSON payload of every failed RPC call.
type ErrorBody struct {
	Msg string `json:"msg"`
}

// RPCOption configures the RPC server.
type RPCOption func(*RPCServer)

// RPCServer exposes a Service over HTTP with Fiber.
type RPCServer struct {
	addr         string
	app          *fiber.App
	readTimeout  time.Duration
	writeTimeout time.Duration
	authFunc     func(fiber.Ctx) error
	logger       zerolog.Logger
	ln           net.Listener
	started      bool
	serveErr     chan error
}

// WithRPCAuth sets an auth function (return error to block).
func WithRPCAuth(fn func(fiber.Ctx) error) RPCOption {
	return func(s *RPCServer) { s.authFunc = fn }
}

// WithRPCReadTimeout sets read timeout.
func WithRPCReadTimeout(d time.Duration) RPCOption {
	return func(s *RPCServer) { s.readTimeout = d }
}

// WithRPCWriteTimeout sets write timeout.
func WithRPCWriteTimeout(d time.Duration) RPCOption {
	return func(s *RPCServer) { s.writeTimeout = d }
}

// WithRPCLogger sets the logger used for request and server errors.
func WithRPCLogger(logger zerolog.Logger) RPCOption {
	return func(s *RPCServer) { s.logger = logger }
}

const (
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 5 * time.Second
)

// NewRPCServer builds an HTTP server holder (lazy start).
func NewRPCServer(addr string, opts ...RPCOption) *RPCServer {
	srv := &RPCServer{
		addr:         addr,
		readTimeout:  defaultReadTimeout,
		writeTimeout: defaultWriteTimeout,
		logger:       zerolog.Nop(),
		serveErr:     make(chan error, 1),
	}
	for _, opt := range opts {
		opt(srv)
	}

	srv.app = fiber.New(fiber.Config{
		ReadTimeout:  srv.readTimeout,
		WriteTimeout: srv.writeTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return srv
}

// Start mounts the routes for svc and starts listening in the background (idempotent).
func (s *RPCServer) Start(ctx context.Context, svc Service) error {
	if s.started {
		return nil
	}

	s.mountRoutes(svc)

	lc := net.ListenConfig{}

	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return ewrap.Wrap(err, "rpc listen")
	}

	s.ln = ln

	go func() {
		err := s.app.Listener(ln, fiber.ListenConfig{DisableStartupMessage: true})
		if err != nil {
			s.logger.Error().Err(err).Msg("rpc server stopped")
		}

		s.serveErr <- err
	}()

	s.started = true

	return nil
}

// Address returns the bound address (useful when passing ":0" for ephemeral port). Empty if not started yet.
func (s *RPCServer) Address() string {
	if s.ln == nil {
		return ""
	}

	return s.ln.Addr().String()
}

// Done returns a channel receiving the serve loop error once it exits.
func (s *RPCServer) Done() <-chan error { return s.serveErr }

// Shutdown stops the server.
func (s *RPCServer) Shutdown(ctx context.Context) error {
	if !s.started {
		return nil
	}

	ch := make(chan error, 1)

	go func() {
		ch <- s.app.Shutdown()
	}()

	select {
	case <-ctx.Done():
		return sentinel.ErrRPCShutdownTimeout
	case err := <-ch:
		return err
	}
}

// wrapAuth returns an auth-wrapped handler if authFunc provided.
func (s *RPCServer) wrapAuth(handler fiber.Handler) fiber.Handler { //nolint:ireturn
	if s.authFunc == nil {
		return handler
	}

	return func(fiberCtx fiber.Ctx) error {
		authErr := s.authFunc(fiberCtx)
		if authErr != nil {
			return authErr
		}

		return handler(fiberCtx)
	}
}

func (s *RPCServer) mountRoutes(svc Service) {
	s.app.Get("/health", func(fiberCtx fiber.Ctx) error { return fiberCtx.SendString("ok") })
	s.app.Get("/stats", s.wrapAuth(func(fiberCtx fiber.Ctx) error { return fiberCtx.JSON(svc.GetStats()) }))
	s.app.Get("/key", s.wrapAuth(func(fiberCtx fiber.Ctx) error {
		rawURL := fiberCtx.Query("url")
		if rawURL == "" {
			return fiberCtx.Status(fiber.StatusBadRequest).JSON(ErrorBody{Msg: "missing url"})
		}

		return fiberCtx.JSON(fiber.Map{"url": rawURL, "key": svc.CacheKey(rawURL)})
	}))
	s.app.Post("/urlopen", s.wrapAuth(func(fiberCtx fiber.Ctx) error { return s.handleURLOpen(fiberCtx, svc) }))
}

func (s *RPCServer) handleURLOpen(fiberCtx fiber.Ctx, svc Service) error {
	req := &models.Request{}

	err := json.Unmarshal(fiberCtx.Body(), req)
	if err != nil {
		return fiberCtx.Status(fiber.StatusBadRequest).JSON(ErrorBody{Msg: "malformed request body: " + err.Error()})
	}

	ctx := fiberCtx.Context()

	if raw := fiberCtx.Get(RequestTimeoutHeader); raw != "" {
		timeout, perr := time.ParseDuration(raw)
		if perr != nil || timeout <= 0 {
			return fiberCtx.Status(fiber.StatusBadRequest).JSON(ErrorBody{Msg: "invalid " + RequestTimeoutHeader + ": " + raw})
		}

		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := svc.URLOpen(ctx, req)
	if err != nil {
		status := statusFor(ctx, err)
		if status >= fiber.StatusInternalServerError {
			s.logger.Warn().Err(err).Str("url", req.URL).Int("status", status).Msg("urlopen failed")
		}

		return fiberCtx.Status(status).JSON(ErrorBody{Msg: err.Error()})
	}

	return fiberCtx.JSON(resp)
}

// statusFor maps a URLOpen error to an HTTP status.
// A fetch error stays a 502 even when the deadline expired during the fetch:
// only an interrupted rate wait, or a failure with no kind of its own after
// the deadline, is a 504.
func statusFor(ctx context.Context, err error) int {
	switch {
	case errors.Is(err, sentinel.ErrInvalidRequest), errors.Is(err, sentinel.ErrBadMethod):
		return fiber.StatusBadRequest
	case errors.Is(err, sentinel.ErrFetch):
		return fiber.StatusBadGateway
	case errors.Is(err, sentinel.ErrCanceled), ctx.Err() != nil:
		return fiber.StatusGatewayTimeout
	default:
		return fiber.StatusInternalServerError
	}
}
