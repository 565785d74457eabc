package serializer

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/longbridgeapp/assert"

	"github.com/hyp3rd/hyperfetch/internal/sentinel"
	"github.com/hyp3rd/hyperfetch/pkg/models"
)

func sampleResponse() *models.Response {
	return &models.Response{
		URL:        "http://example.com/image.png",
		StatusCode: 200,
		Headers: map[string]string{
			"Content-Type": "image/png",
			"Set-Cookie":   "a=1, b=2",
		},
		// not valid UTF-8 on purpose
		Content:      []byte{0x89, 'P', 'N', 'G', 0x00, 0xff, 0xfe, 0xc3, 0x28, 0x0a},
		Cookies:      map[string]string{"session": "abc"},
		ResponseTime: 0.125,
		Timestamp:    1700000000.5,
	}
}

func TestRoundTripPreservesEveryField(t *testing.T) {
	zstdMsgpack, err := NewZstdSerializer(&MsgpackSerializer{})
	assert.NoError(t, err)

	serializers := map[string]ISerializer{
		"json":         &DefaultJSONSerializer{},
		"msgpack":      &MsgpackSerializer{},
		"cbor":         NewCBORSerializer(),
		"msgpack+zstd": zstdMsgpack,
	}

	for name, ser := range serializers {
		t.Run(name, func(t *testing.T) {
			in := sampleResponse()

			data, err := ser.Marshal(in)
			assert.NoError(t, err)

			out := &models.Response{}
			err = ser.Unmarshal(data, out)
			assert.NoError(t, err)

			if diff := cmp.Diff(in, out); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	ser := &DefaultJSONSerializer{}

	out := &models.Response{}
	err := ser.Unmarshal([]byte(`{"url":"http://a/","status_code":204,"future_field":{"x":1}}`), out)
	assert.NoError(t, err)
	assert.Equal(t, "http://a/", out.URL)
	assert.Equal(t, 204, out.StatusCode)
}

func TestUnmarshalGarbageFails(t *testing.T) {
	for name, ser := range map[string]ISerializer{
		"json":    &DefaultJSONSerializer{},
		"msgpack": &MsgpackSerializer{},
		"cbor":    NewCBORSerializer(),
	} {
		t.Run(name, func(t *testing.T) {
			err := ser.Unmarshal([]byte{0xc1, 0xc1, 0xc1}, &models.Response{})
			assert.Error(t, err)
		})
	}
}

func TestRegistry(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		wantErr error
	}{
		{name: "msgpack", kind: "msgpack"},
		{name: "json", kind: "json"},
		{name: "cbor", kind: "cbor"},
		{name: "empty", kind: "", wantErr: sentinel.ErrParamCannotBeEmpty},
		{name: "unknown", kind: "thrift", wantErr: sentinel.ErrSerializerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ser, err := New(tt.kind)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				assert.Nil(t, ser)

				return
			}

			assert.NoError(t, err)
			assert.NotNil(t, ser)
		})
	}
}

func TestEmptyRegistryRegister(t *testing.T) {
	registry := NewEmptySerializerRegistry()

	_, err := registry.New("msgpack")
	assert.True(t, errors.Is(err, sentinel.ErrSerializerNotFound))

	registry.Register("msgpack", func() ISerializer { return &MsgpackSerializer{} })

	ser, err := registry.New("msgpack")
	assert.NoError(t, err)
	assert.NotNil(t, ser)
}

func TestRegistryBuild(t *testing.T) {
	registry := NewSerializerRegistry()

	assert.Equal(t, []string{CBOR, JSON, Msgpack}, registry.Names())
	assert.True(t, registry.Has(Msgpack))
	assert.False(t, registry.Has("thrift"))

	plain, err := registry.Build(Msgpack, false)
	assert.NoError(t, err)

	_, ok := plain.(*MsgpackSerializer)
	assert.True(t, ok)

	compressed, err := registry.Build(CBOR, true)
	assert.NoError(t, err)

	_, ok = compressed.(*ZstdSerializer)
	assert.True(t, ok)

	_, err = registry.Build("thrift", true)
	assert.True(t, errors.Is(err, sentinel.ErrSerializerNotFound))
}

func TestEmptyAndNilMapsStayDistinct(t *testing.T) {
	for name, ser := range map[string]ISerializer{
		"json":    &DefaultJSONSerializer{},
		"msgpack": &MsgpackSerializer{},
	} {
		t.Run(name, func(t *testing.T) {
			in := &models.Response{
				URL:        "http://example.com/",
				StatusCode: 204,
				Headers:    map[string]string{},
				Content:    []byte("x"),
			}

			data, err := ser.Marshal(in)
			assert.NoError(t, err)

			out := &models.Response{}
			assert.NoError(t, ser.Unmarshal(data, out))

			if diff := cmp.Diff(in, out); diff != "" {
				t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
			}

			assert.NotNil(t, out.Headers)
			assert.Nil(t, out.Cookies)
		})
	}
}
