// Package serializer converts fetched responses to and from the opaque blobs
// stored in the cache store.
//
// Every registered codec is self-describing: fields travel with their names, so
// blobs written by an older build decode in a newer one and unknown fields are
// skipped on read. A codec can be wrapped with zstd compression; the choice of
// codec and compression must match across every process sharing a cache.
package serializer

import (
	"maps"
	"slices"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/hyperfetch/internal/sentinel"
)

// Codec names accepted by the registry.
const (
	JSON    = "json"
	Msgpack = "msgpack"
	CBOR    = "cbor"
)

// ISerializer is the interface that wraps the basic serializer methods.
type ISerializer interface {
	// Marshal serializes the given value into a byte slice.
	Marshal(v any) ([]byte, error)
	// Unmarshal deserializes the given byte slice into the given value.
	Unmarshal(data []byte, v any) error
}

// Registry maps codec names to constructors.
type Registry struct {
	serializers map[string]func() ISerializer
}

// NewSerializerRegistry returns a registry holding the json, msgpack and cbor codecs.
func NewSerializerRegistry() *Registry {
	registry := NewEmptySerializerRegistry()

	registry.Register(JSON, func() ISerializer { return &DefaultJSONSerializer{} })
	registry.Register(Msgpack, func() ISerializer { return &MsgpackSerializer{} })
	registry.Register(CBOR, func() ISerializer { return NewCBORSerializer() })

	return registry
}

// NewEmptySerializerRegistry returns a registry without codecs.
func NewEmptySerializerRegistry() *Registry {
	return &Registry{
		serializers: make(map[string]func() ISerializer),
	}
}

// Register adds or replaces the codec registered under name.
func (r *Registry) Register(name string, createFunc func() ISerializer) {
	r.serializers[name] = createFunc
}

// Has reports whether a codec is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.serializers[name]

	return ok
}

// Names returns the registered codec names in lexical order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.serializers))
}

// New returns the codec registered under name.
func (r *Registry) New(name string) (ISerializer, error) {
	if name == "" {
		return nil, ewrap.Wrap(sentinel.ErrParamCannotBeEmpty, "serializer name")
	}

	createFunc, ok := r.serializers[name]
	if !ok {
		return nil, ewrap.Wrapf(sentinel.ErrSerializerNotFound, "%q (known: %v)", name, r.Names())
	}

	return createFunc(), nil
}

// Build returns the codec registered under name, wrapped with zstd when compress is set.
func (r *Registry) Build(name string, compress bool) (ISerializer, error) {
	ser, err := r.New(name)
	if err != nil {
		return nil, err
	}

	if !compress {
		return ser, nil
	}

	compressed, err := NewZstdSerializer(ser)
	if err != nil {
		return nil, err
	}

	return compressed, nil
}

// New returns the named codec from the default registry.
func New(name string) (ISerializer, error) {
	return NewSerializerRegistry().New(name)
}
