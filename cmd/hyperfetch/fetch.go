package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/hyp3rd/ewrap"
	"github.com/spf13/cobra"

	"github.com/hyp3rd/hyperfetch"
	"github.com/hyp3rd/hyperfetch/internal/constants"
	"github.com/hyp3rd/hyperfetch/pkg/cacher"
	"github.com/hyp3rd/hyperfetch/pkg/models"
)

type fetchOptions struct {
	server  string
	method  string
	noCache bool
	cookies []string
	data    []string
	timeout time.Duration
	raw     bool
}

func newFetchCmd() *cobra.Command {
	opts := fetchOptions{}

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Submit a request to a running hyperfetch server.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.server, "server", constants.DefaultListenAddr, "hyperfetch server address")
	cmd.Flags().StringVarP(&opts.method, "method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "skip the cache lookup")
	cmd.Flags().StringArrayVar(&opts.cookies, "cookie", nil, "cookie as name=value (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.data, "data", "d", nil, "form field as name=value (repeatable)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "overall deadline, forwarded to the server")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "write only the response content")

	return cmd
}

func runFetch(ctx context.Context, out io.Writer, rawURL string, opts fetchOptions) error {
	cookies, err := parsePairs(opts.cookies)
	if err != nil {
		return err
	}

	data, err := parsePairs(opts.data)
	if err != nil {
		return err
	}

	if opts.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	client := hyperfetch.NewClient(opts.server, &http.Client{})

	resp, err := client.URLOpen(ctx, &models.Request{
		URL:     rawURL,
		Method:  opts.method,
		Data:    data,
		Cookies: cookies,
		NoCache: opts.noCache,
	})
	if err != nil {
		return err
	}

	if opts.raw {
		_, err = out.Write(resp.Content)
		if err != nil {
			return ewrap.Wrap(err, "write content")
		}

		return nil
	}

	return printResponse(out, resp)
}

func printResponse(out io.Writer, resp *models.Response) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%d %s\n", resp.StatusCode, resp.URL)

	for _, name := range slices.Sorted(maps.Keys(resp.Headers)) {
		fmt.Fprintf(&b, "%s: %s\n", name, resp.Headers[name])
	}

	fmt.Fprintf(&b, "\nfrom cache: %t\n", resp.FromCache)
	fmt.Fprintf(&b, "content length: %d\n", resp.ContentLength())
	fmt.Fprintf(&b, "response time: %.3fs\n", resp.ResponseTime)

	_, err := io.WriteString(out, b.String())
	if err != nil {
		return ewrap.Wrap(err, "write response")
	}

	return nil
}

// parsePairs turns name=value arguments into a map. Nil when there are none.
func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil //nolint:nilnil
	}

	out := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, ewrap.Newf("expected name=value, got %q", pair)
		}

		out[name] = value
	}

	return out, nil
}

func newKeyCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "key URL",
		Short: "Print the cache key a URL maps to.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), cacher.Key(cfg.Cache.Namespace, args[0]))
			if err != nil {
				return ewrap.Wrap(err, "write key")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file (for the cache namespace)")

	return cmd
}
