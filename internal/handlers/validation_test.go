package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/koios/lockscreenr/internal/generative"
	"github.com/koios/lockscreenr/internal/passcode"
	"github.com/koios/lockscreenr/internal/render"
	"github.com/koios/lockscreenr/internal/session"
	"github.com/koios/lockscreenr/internal/store"
	"github.com/koios/lockscreenr/pkg/models"
)

// --- classify ---

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{session.ErrSessionNotFound, http.StatusNotFound, KindNotFound},
		{fmt.Errorf("%w: %q", session.ErrPresetNotFound, "x"), http.StatusNotFound, KindNotFound},
		{&store.ValidationError{Field: "battery", Message: "out of range"}, http.StatusBadRequest, KindValidation},
		{fmt.Errorf("%w: missing os", models.ErrInvalidConfigFile), http.StatusBadRequest, KindValidation},
		{passcode.ErrInvalidDigit, http.StatusBadRequest, KindValidation},
		{render.ErrInvalidSurface, http.StatusBadRequest, KindValidation},
		{generative.ErrNeedsImageBackground, http.StatusConflict, KindPrecondition},
		{generative.ErrInProgress, http.StatusTooManyRequests, KindBusy},
		{session.ErrTooManySessions, http.StatusTooManyRequests, KindBusy},
		{fmt.Errorf("model returned 500: %w", generative.ErrGenerationFailed), http.StatusBadGateway, KindExternal},
		{errors.New("boom"), http.StatusInternalServerError, KindInternal},
	}
	for _, tt := range tests {
		status, kind := classify(tt.err)
		if status != tt.status || kind != tt.kind {
			t.Errorf("classify(%v) = %d %s, want %d %s", tt.err, status, kind, tt.status, tt.kind)
		}
	}
}

// --- validateRequest ---

func TestValidateRequest(t *testing.T) {
	battery := 150
	device := models.DeviceType("toaster")
	value := "12a4"

	tests := []struct {
		name    string
		req     interface{}
		field   string
		message string
	}{
		{"required", &LoadPresetRequest{}, "name", "Field 'name' is required"},
		{"range", &ConfigPatch{Battery: &battery}, "battery", "Field 'battery' must be between 0 and 100"},
		{"oneof", &ConfigPatch{Device: &device}, "device", "Field 'device' must be one of: iphone pixel tablet watch"},
		{"numeric", &ConfigPatch{PasscodeValue: &value}, "passcodeValue", "Field 'passcodeValue' must contain only digits"},
		{"digit", &PressRequest{Digit: "12"}, "digit", "Field 'digit' must be 1 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateRequest(tt.req)
			var ve *store.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, ve.Field)
			}
			if ve.Message != tt.message {
				t.Errorf("Expected message %q, got %q", tt.message, ve.Message)
			}
			if !errors.Is(err, store.ErrValidation) {
				t.Error("Expected errors.Is(err, ErrValidation)")
			}
		})
	}

	if err := validateRequest(&ConfigPatch{}); err != nil {
		t.Errorf("Empty patch should be valid, got %v", err)
	}
}

// --- decodeBody / decodeJSON ---

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		want    string
	}{
		{"valid", `{"preset":"Nature Escape"}`, false, "Nature Escape"},
		{"empty body", ``, false, ""},
		{"whitespace body", "  \n", false, ""},
		{"invalid JSON", `{"preset":`, true, ""},
		{"wrong type", `{"preset":3}`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(tt.body))
			var got CreateSessionRequest
			err := decodeJSON(req, &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got.Preset != tt.want {
				t.Errorf("Expected preset %q, got %q", tt.want, got.Preset)
			}
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"preset":"` + strings.Repeat("a", maxJSONBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(body))
	var got CreateSessionRequest
	err := decodeJSON(req, &got)
	var ve *store.ValidationError
	if !errors.As(err, &ve) || ve.Field != "body" {
		t.Errorf("Expected body ValidationError, got %v", err)
	}
}

// --- ConfigPatch ---

func TestConfigPatchActions(t *testing.T) {
	device := models.DevicePixel
	enabled := true
	value := "0000"
	battery := 0

	actions := ConfigPatch{
		Device:          &device,
		Battery:         &battery,
		PasscodeEnabled: &enabled,
		PasscodeValue:   &value,
	}.Actions()

	want := []string{"set_device", "set_battery", "set_passcode_enabled", "set_passcode_value"}
	if len(actions) != len(want) {
		t.Fatalf("Expected %d actions, got %d", len(want), len(actions))
	}
	for i, action := range actions {
		if action.Name() != want[i] {
			t.Errorf("action %d = %s, want %s", i, action.Name(), want[i])
		}
	}

	if got := (ConfigPatch{}).Actions(); len(got) != 0 {
		t.Errorf("Empty patch should produce no actions, got %d", len(got))
	}
}
