package httpclient

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeBody(t *testing.T) {
	tests := []struct {
		name     string
		ct       ContentType
		data     any
		expected string
	}{
		{"nil", ContentTypeJSON, nil, ""},
		{"json struct", ContentTypeJSON, struct {
			ID int `json:"id"`
		}{ID: 1}, `{"id":1}`},
		{"json default content type", "", map[string]int{"n": 2}, `{"n":2}`},
		{"json string is quoted", ContentTypeJSON, "hi", `"hi"`},
		{"json raw message untouched", ContentTypeJSON, json.RawMessage(`{"raw":true}`), `{"raw":true}`},
		{"bytes untouched", ContentTypeJSON, []byte(`[1,2]`), `[1,2]`},
		{"reader", ContentTypeOctetStream, strings.NewReader("stream"), "stream"},
		{"form values", ContentTypeFormURLEncoded, url.Values{"a": {"1", "2"}}, "a=1&a=2"},
		{"form map", ContentTypeFormURLEncoded, map[string]string{"b": "x y"}, "b=x+y"},
		{"form multi map", ContentTypeFormURLEncoded, map[string][]string{"c": {"3"}}, "c=3"},
		{"form raw string", ContentTypeFormURLEncoded, "d=4", "d=4"},
		{"text", ContentTypeText, "plain", "plain"},
		{"xml", ContentTypeXML, "<a/>", "<a/>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := encodeBody(tt.ct, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(body))
		})
	}
}

func TestEncodeBodyRejectsUnsupportedPayloads(t *testing.T) {
	tests := []struct {
		name string
		ct   ContentType
		data any
	}{
		{"channel as json", ContentTypeJSON, make(chan int)},
		{"struct as form", ContentTypeFormURLEncoded, struct{}{}},
		{"int as pdf", ContentTypePDF, 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := encodeBody(tt.ct, tt.data)
			require.Error(t, err)
			assert.True(t, IsErrorType(err, ValidationError))
		})
	}
}
