package models

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestCheckBackground(t *testing.T) {
	cases := []struct {
		name    string
		kind    BackgroundType
		value   string
		wantErr bool
	}{
		{"hex color", BackgroundColor, "#1a1a1a", false},
		{"short hex color", BackgroundColor, "#fff", false},
		{"data uri as color", BackgroundColor, "data:image/png;base64,AAAA", true},
		{"word as color", BackgroundColor, "blue-ish", true},
		{"image data uri", BackgroundImage, "data:image/png;base64,AAAA", false},
		{"color as image", BackgroundImage, "#000000", true},
		{"text data uri as image", BackgroundImage, "data:text/plain;base64,AAAA", true},
		{"remote url as image", BackgroundImage, "https://example.com/bg.png", true},
		{"unknown kind", BackgroundType("video"), "#000000", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckBackground(tc.kind, tc.value)
			if tc.wantErr {
				if !errors.Is(err, ErrBackgroundMismatch) {
					t.Errorf("expected ErrBackgroundMismatch, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestImageDataURI(t *testing.T) {
	t.Run("png", func(t *testing.T) {
		uri, err := ImageDataURI(testPNG(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.HasPrefix(uri, "data:image/png;base64,") {
			t.Errorf("unexpected uri prefix: %s", uri[:30])
		}
	})

	t.Run("rejects text", func(t *testing.T) {
		if _, err := ImageDataURI([]byte("hello world")); err == nil {
			t.Error("expected error for non-image content")
		}
	})

	t.Run("rejects empty", func(t *testing.T) {
		if _, err := ImageDataURI(nil); err == nil {
			t.Error("expected error for empty content")
		}
	})
}

func TestIDGenerator(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	gen := NewIDGenerator(func() time.Time { return fixed })

	t.Run("same tick yields distinct ids", func(t *testing.T) {
		a := gen.Next()
		b := gen.Next()
		if a == b {
			t.Fatalf("rapid insertions collided: %s", a)
		}
		if a != "1700000000000" || b != "1700000000001" {
			t.Errorf("got %s, %s", a, b)
		}
	})

	t.Run("skips taken ids", func(t *testing.T) {
		taken := map[string]bool{"1700000000002": true}
		id := gen.NextUnique(func(id string) bool { return taken[id] })
		if id != "1700000000003" {
			t.Errorf("got %s, want 1700000000003", id)
		}
	})

	t.Run("concurrent callers", func(t *testing.T) {
		var mu sync.Mutex
		seen := make(map[string]bool)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				id := gen.Next()
				mu.Lock()
				defer mu.Unlock()
				if seen[id] {
					t.Errorf("duplicate id %s", id)
				}
				seen[id] = true
			}()
		}
		wg.Wait()
	})
}
