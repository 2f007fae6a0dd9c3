package models

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// ErrBackgroundMismatch is returned when backgroundType does not describe background
var ErrBackgroundMismatch = errors.New("background does not match backgroundType")

const (
	dataURIPrefix      = "data:"
	imageDataURIPrefix = "data:image"
)

// IsDataURI reports whether s is a data URI of any media type
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, dataURIPrefix)
}

// IsImageDataURI reports whether s is a data URI carrying an image
func IsImageDataURI(s string) bool {
	return strings.HasPrefix(s, imageDataURIPrefix)
}

// IsColor reports whether s parses as a hex color (#rgb or #rrggbb)
func IsColor(s string) bool {
	_, err := colorful.Hex(s)
	return err == nil
}

// CheckBackground enforces that kind matches the semantic kind of value
func CheckBackground(kind BackgroundType, value string) error {
	switch kind {
	case BackgroundColor:
		if !IsColor(value) {
			return fmt.Errorf("%w: %q is not a color", ErrBackgroundMismatch, truncate(value))
		}
	case BackgroundImage:
		if !IsImageDataURI(value) {
			return fmt.Errorf("%w: image background must be a data:image URI", ErrBackgroundMismatch)
		}
	default:
		return fmt.Errorf("%w: unknown backgroundType %q", ErrBackgroundMismatch, kind)
	}
	return nil
}

// ImageDataURI sniffs the content type of data and embeds it as a data URI.
// Non-image content is rejected.
func ImageDataURI(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("image is empty")
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", fmt.Errorf("unsupported content type %s", mtype.String())
	}
	return "data:" + mtype.String() + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func truncate(s string) string {
	if len(s) > 32 {
		return s[:32] + "..."
	}
	return s
}
