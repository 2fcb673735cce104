// Package media holds the byte-level helpers shared by the provider adapters:
// data URI encoding, WAV re-encoding of raw PCM and authenticated asset fetches.
package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedDataURI = errors.New("malformed data uri")

// DataURI is a self-describing media payload: data:<mime>;base64,<payload>.
type DataURI struct {
	MIMEType string
	Data     []byte
}

// String renders the URI form.
func (d DataURI) String() string {
	return "data:" + d.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

// HasPrefix reports whether the declared MIME type starts with prefix (e.g. "image/").
func (d DataURI) HasPrefix(prefix string) bool {
	return strings.HasPrefix(strings.ToLower(d.MIMEType), strings.ToLower(prefix))
}

// Encode builds the data URI string for raw bytes.
func Encode(mimeType string, data []byte) string {
	return DataURI{MIMEType: mimeType, Data: data}.String()
}

// ParseDataURI decodes a base64 data URI. Only the base64 form is accepted.
func ParseDataURI(raw string) (*DataURI, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "data:") {
		return nil, fmt.Errorf("%w: missing data: scheme", ErrMalformedDataURI)
	}
	header, payload, ok := strings.Cut(raw[len("data:"):], ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing payload separator", ErrMalformedDataURI)
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, fmt.Errorf("%w: payload is not base64", ErrMalformedDataURI)
	}
	if mimeType == "" || !strings.Contains(mimeType, "/") {
		return nil, fmt.Errorf("%w: invalid content type %q", ErrMalformedDataURI, mimeType)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDataURI, err)
	}
	return &DataURI{MIMEType: mimeType, Data: data}, nil
}
