package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
)

// AuthScheme is the prefix placed before the token in the Authorization header.
type AuthScheme string

const (
	AuthSchemeBearer AuthScheme = "Bearer"
	AuthSchemeBasic  AuthScheme = "Basic"
)

// Header formats token as an Authorization header value. The zero value formats as Bearer.
func (s AuthScheme) Header(token string) string {
	if s == "" {
		s = AuthSchemeBearer
	}
	return string(s) + " " + token
}

// ContentType is the media type announced for the payload.
//
// JSON payloads are encoded with encoding/json unless they are already
// []byte, json.RawMessage or io.Reader. Form payloads accept url.Values,
// map[string]string and map[string][]string. Every other content type
// takes []byte, string or io.Reader as-is.
type ContentType string

const (
	ContentTypeJSON           ContentType = "application/json"
	ContentTypeFormURLEncoded ContentType = "application/x-www-form-urlencoded"
	ContentTypeText           ContentType = "text/plain"
	ContentTypeXML            ContentType = "application/xml"
	ContentTypePDF            ContentType = "application/pdf"
	ContentTypeOctetStream    ContentType = "application/octet-stream"
)

func (ct ContentType) orDefault() ContentType {
	if ct == "" {
		return ContentTypeJSON
	}
	return ct
}

// encodeBody serializes data for ct. A nil payload yields a nil body.
func encodeBody(ct ContentType, data any) ([]byte, error) {
	if data == nil {
		return nil, nil
	}

	switch v := data.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	case io.Reader:
		b, err := io.ReadAll(v)
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("failed to read payload: %v", err), "data")
		}
		return b, nil
	}

	switch ct.orDefault() {
	case ContentTypeJSON:
		b, err := json.Marshal(data)
		if err != nil {
			return nil, NewValidationError(fmt.Sprintf("failed to encode JSON payload: %v", err), "data")
		}
		return b, nil
	case ContentTypeFormURLEncoded:
		return encodeForm(data)
	}

	if s, ok := data.(string); ok {
		return []byte(s), nil
	}
	return nil, NewValidationError(fmt.Sprintf("unsupported payload type %T for content type %s", data, ct), "data")
}

func encodeForm(data any) ([]byte, error) {
	switch v := data.(type) {
	case url.Values:
		return []byte(v.Encode()), nil
	case map[string][]string:
		return []byte(url.Values(v).Encode()), nil
	case map[string]string:
		values := make(url.Values, len(v))
		for key, val := range v {
			values.Set(key, val)
		}
		return []byte(values.Encode()), nil
	case string:
		return []byte(v), nil
	}
	return nil, NewValidationError(fmt.Sprintf("unsupported form payload type %T", data), "data")
}
