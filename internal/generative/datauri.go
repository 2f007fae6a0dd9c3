package generative

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidDataURI is returned for strings not of the form data:<mime>;base64,<payload>
var ErrInvalidDataURI = errors.New("invalid data URI")

// DataURI is a decoded base64 data URI
type DataURI struct {
	MIME string
	Data []byte
}

// ParseDataURI decodes s. Only base64 payloads are accepted.
func ParseDataURI(s string) (DataURI, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return DataURI{}, fmt.Errorf("%w: missing data: prefix", ErrInvalidDataURI)
	}

	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return DataURI{}, fmt.Errorf("%w: missing payload", ErrInvalidDataURI)
	}

	mime, ok := strings.CutSuffix(header, ";base64")
	if !ok || mime == "" || !strings.Contains(mime, "/") {
		return DataURI{}, fmt.Errorf("%w: expected <mime>;base64 header, got %q", ErrInvalidDataURI, header)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return DataURI{}, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if len(data) == 0 {
		return DataURI{}, fmt.Errorf("%w: empty payload", ErrInvalidDataURI)
	}

	return DataURI{MIME: mime, Data: data}, nil
}

// NewDataURI encodes data with the given media type
func NewDataURI(mime string, data []byte) string {
	return DataURI{MIME: mime, Data: data}.String()
}

func (d DataURI) String() string {
	return "data:" + d.MIME + ";base64," + base64.StdEncoding.EncodeToString(d.Data)
}

// IsImage reports whether the media type is image/*
func (d DataURI) IsImage() bool {
	return strings.HasPrefix(d.MIME, "image/")
}
