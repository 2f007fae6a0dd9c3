package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/koios/lockscreenr/internal/config"
	"github.com/koios/lockscreenr/internal/generative"
	"github.com/koios/lockscreenr/internal/passcode"
	"github.com/koios/lockscreenr/internal/render"
	"github.com/koios/lockscreenr/internal/session"
	"github.com/koios/lockscreenr/internal/store"
	"github.com/koios/lockscreenr/pkg/models"
	"go.uber.org/zap"
)

// Handler serves the lock screen control surface
type Handler struct {
	manager *session.Manager
	presets *models.PresetRegistry
	server  config.ServerConfig
	logger  *zap.Logger

	clockInterval time.Duration
	now           func() time.Time
	healthChecks  map[string]func() bool
}

// Option configures a Handler
type Option func(*Handler)

// WithClockInterval sets how often live streams push a clock update
func WithClockInterval(d time.Duration) Option {
	return func(h *Handler) { h.clockInterval = d }
}

// WithClock replaces time.Now for rendered views
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// WithHealthCheck adds a named dependency to GET /health
func WithHealthCheck(name string, check func() bool) Option {
	return func(h *Handler) { h.healthChecks[name] = check }
}

// NewHandler creates a new handler
func NewHandler(manager *session.Manager, presets *models.PresetRegistry, server config.ServerConfig, logger *zap.Logger, opts ...Option) *Handler {
	h := &Handler{
		manager:       manager,
		presets:       presets,
		server:        server,
		logger:        logger,
		clockInterval: render.ClockInterval,
		now:           time.Now,
		healthChecks:  make(map[string]func() bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes registers every route on r
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/presets", h.handlePresets).Methods(http.MethodGet)

	r.HandleFunc("/sessions", h.handleListSessions).Methods(http.MethodGet)
	r.HandleFunc("/sessions", h.handleCreateSession).Methods(http.MethodPost)

	r.HandleFunc("/sessions/{id}", h.handleGetSession).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", h.handleDeleteSession).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/preset", h.handleLoadPreset).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/config", h.handleExport).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/config", h.handleImport).Methods(http.MethodPut)
	r.HandleFunc("/sessions/{id}/config", h.handlePatch).Methods(http.MethodPatch)
	r.HandleFunc("/sessions/{id}/background", h.handleBackground).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/notifications", h.handleAddNotification).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/notifications/{nid}", h.handleRemoveNotification).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/hotspots", h.handleAddHotspot).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/hotspots", h.handleClearHotspots).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/passcode/press", h.handlePress).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/passcode/delete", h.handleDeleteDigit).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/icon", h.handleGenerateIcon).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/heatmap", h.handleSimulateHeatmap).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}/heatmap", h.handleClearHeatmap).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/view", h.handleView).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/preview", h.handlePreview).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}/stream", h.handleStream).Methods(http.MethodGet)
}

// NewRouter builds a router with every route registered
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// SessionResponse describes one session
type SessionResponse struct {
	ID         string                  `json:"id"`
	Created    time.Time               `json:"created"`
	Revision   uint64                  `json:"revision"`
	Config     models.LockScreenConfig `json:"config"`
	Lock       passcode.State          `json:"lock"`
	DraftIcon  string                  `json:"draftIcon,omitempty"`
	Generating GeneratingStatus        `json:"generating"`
}

// GeneratingStatus reports which generative requests are in flight
type GeneratingStatus struct {
	Icon    bool `json:"icon"`
	Heatmap bool `json:"heatmap"`
}

// CreateSessionRequest selects the initial preset
type CreateSessionRequest struct {
	Preset string `json:"preset"`
}

// LoadPresetRequest names the preset to load
type LoadPresetRequest struct {
	Name string `json:"name" validate:"required"`
}

// ConfigPatch holds optional field patches, applied in declaration order
type ConfigPatch struct {
	Device          *models.DeviceType  `json:"device" validate:"omitempty,oneof=iphone pixel tablet watch"`
	OS              *models.OSType      `json:"os" validate:"omitempty,oneof=ios android wearos"`
	BackgroundColor *string             `json:"backgroundColor"`
	Font            *string             `json:"font"`
	Wifi            *models.SignalLevel `json:"wifi" validate:"omitempty,oneof=hidden full medium low"`
	Signal          *models.SignalLevel `json:"signal" validate:"omitempty,oneof=hidden full medium low"`
	Battery         *int                `json:"battery" validate:"omitempty,min=0,max=100"`
	PrivacyBlur     *bool               `json:"privacyBlur"`
	PasscodeEnabled *bool               `json:"passcodeEnabled"`
	PasscodeValue   *string             `json:"passcodeValue" validate:"omitempty,len=4,numeric"`
}

// Actions converts the present fields into store actions
func (p ConfigPatch) Actions() []store.Action {
	var actions []store.Action
	if p.Device != nil {
		actions = append(actions, store.SetDevice{Device: *p.Device})
	}
	if p.OS != nil {
		actions = append(actions, store.SetOS{OS: *p.OS})
	}
	if p.BackgroundColor != nil {
		actions = append(actions, store.SetBackgroundColor{Color: *p.BackgroundColor})
	}
	if p.Font != nil {
		actions = append(actions, store.SetFont{Font: *p.Font})
	}
	if p.Wifi != nil {
		actions = append(actions, store.SetWifi{Level: *p.Wifi})
	}
	if p.Signal != nil {
		actions = append(actions, store.SetSignal{Level: *p.Signal})
	}
	if p.Battery != nil {
		actions = append(actions, store.SetBattery{Level: *p.Battery})
	}
	if p.PrivacyBlur != nil {
		actions = append(actions, store.SetPrivacyBlur{Enabled: *p.PrivacyBlur})
	}
	if p.PasscodeEnabled != nil {
		actions = append(actions, store.SetPasscodeEnabled{Enabled: *p.PasscodeEnabled})
	}
	if p.PasscodeValue != nil {
		actions = append(actions, store.SetPasscodeValue{Value: *p.PasscodeValue})
	}
	return actions
}

// HotspotClickRequest is a click in pixels on a preview surface of the given size
type HotspotClickRequest struct {
	PX     float64 `json:"px"`
	PY     float64 `json:"py"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PressRequest is one keypad press
type PressRequest struct {
	Digit string `json:"digit" validate:"required,len=1,numeric"`
}

// IconRequest describes the icon to generate
type IconRequest struct {
	Description string `json:"description"`
}

// handleHealth handles GET /health - returns service health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	deps := make(map[string]string, len(h.healthChecks))
	for name, check := range h.healthChecks {
		if check() {
			deps[name] = "healthy"
		} else {
			deps[name] = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "degraded"
	}
	h.respond(w, status, map[string]interface{}{
		"status":       overall,
		"service":      "lockscreenr",
		"version":      "1.0.0",
		"sessions":     h.manager.Count(),
		"dependencies": deps,
	})
}

// handlePresets handles GET /presets
func (h *Handler) handlePresets(w http.ResponseWriter, r *http.Request) {
	presets := h.presets.List()
	h.respond(w, http.StatusOK, presets)
	h.logger.Debug("Served presets list", zap.Int("count", len(presets)))
}

// handleListSessions handles GET /sessions
func (h *Handler) handleListSessions(w http.ResponseWriter, r *http.Request) {
	h.respond(w, http.StatusOK, h.manager.List())
}

// handleCreateSession handles POST /sessions
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	s, err := h.manager.Create(r.Context(), req.Preset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/sessions/"+s.ID)
	h.respond(w, http.StatusCreated, h.describe(s))
}

// handleGetSession handles GET /sessions/{id}
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, http.StatusOK, h.describe(s))
}

// handleDeleteSession handles DELETE /sessions/{id}
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLoadPreset handles POST /sessions/{id}/preset
func (h *Handler) handleLoadPreset(w http.ResponseWriter, r *http.Request) {
	var req LoadPresetRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	cfg, err := h.manager.LoadPreset(r.Context(), mux.Vars(r)["id"], req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, cfg)
}

// handleExport handles GET /sessions/{id}/config - downloads the config document
func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	data, err := models.ExportJSON(s.Config())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", models.ExportFileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("Failed to write export", zap.Error(err))
	}
}

// handleImport handles PUT /sessions/{id}/config - replaces the config with an exported document
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := h.readUpload(r.Body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	cfg, err := h.manager.Import(r.Context(), mux.Vars(r)["id"], data)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Info("Imported config", zap.String("session_id", mux.Vars(r)["id"]))
	h.respond(w, http.StatusOK, cfg)
}

// handlePatch handles PATCH /sessions/{id}/config. Each present field is one
// action; they are applied together and a rejected field leaves the config
// unchanged.
func (h *Handler) handlePatch(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var patch ConfigPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.writeError(w, r, err)
		return
	}

	cfg, err := s.Dispatch(r.Context(), store.Batch{Actions: patch.Actions()})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, cfg)
}

// handleBackground handles POST /sessions/{id}/background - multipart image upload
func (h *Handler) handleBackground(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.uploadLimit())
	if err := r.ParseMultipartForm(h.uploadLimit()); err != nil {
		h.writeError(w, r, &store.ValidationError{Field: "image", Message: fmt.Sprintf("invalid upload: %v", err)})
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		h.writeError(w, r, &store.ValidationError{Field: "image", Message: "Field 'image' is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, r, &store.ValidationError{Field: "image", Message: "failed to read upload"})
		return
	}
	uri, err := models.ImageDataURI(data)
	if err != nil {
		h.writeError(w, r, &store.ValidationError{Field: "image", Message: err.Error()})
		return
	}

	cfg, err := s.Dispatch(r.Context(), store.SetBackgroundImage{URI: uri})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, cfg)
}

// handleAddNotification handles POST /sessions/{id}/notifications
func (h *Handler) handleAddNotification(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	// drafts are validated by the store so messages match the other actions
	var draft store.NotificationDraft
	if err := decodeBody(r, &draft); err != nil {
		h.writeError(w, r, err)
		return
	}

	cfg, err := s.AddNotification(r.Context(), draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, cfg)
}

// handleRemoveNotification handles DELETE /sessions/{id}/notifications/{nid}
func (h *Handler) handleRemoveNotification(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, store.RemoveNotification{ID: mux.Vars(r)["nid"]})
}

// handleAddHotspot handles POST /sessions/{id}/hotspots
func (h *Handler) handleAddHotspot(w http.ResponseWriter, r *http.Request) {
	var req HotspotClickRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	x, y, err := render.HotspotFromClick(req.PX, req.PY, req.Width, req.Height)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.dispatch(w, r, store.AddHotspot{X: x, Y: y})
}

// handleClearHotspots handles DELETE /sessions/{id}/hotspots
func (h *Handler) handleClearHotspots(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, store.ClearHotspots{})
}

// handlePress handles POST /sessions/{id}/passcode/press
func (h *Handler) handlePress(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req PressRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	state, err := s.PressDigit(req.Digit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, state)
}

// handleDeleteDigit handles POST /sessions/{id}/passcode/delete
func (h *Handler) handleDeleteDigit(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, http.StatusOK, s.DeleteDigit())
}

// handleGenerateIcon handles POST /sessions/{id}/icon. The result becomes the
// draft icon for the next notification without one.
func (h *Handler) handleGenerateIcon(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req IconRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := s.GenerateIcon(r.Context(), req.Description)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, result)
}

// handleSimulateHeatmap handles POST /sessions/{id}/heatmap
func (h *Handler) handleSimulateHeatmap(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	result, err := s.Bridge().SimulateHeatmap(r.Context())
	if err != nil {
		if errors.Is(err, generative.ErrNeedsImageBackground) {
			h.logger.Info("Heatmap skipped for color background", zap.String("session_id", s.ID))
		}
		h.writeError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, result)
}

// handleClearHeatmap handles DELETE /sessions/{id}/heatmap
func (h *Handler) handleClearHeatmap(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, store.ClearHeatmap{})
}

// handleView handles GET /sessions/{id}/view - the projected view model
func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, http.StatusOK, s.View(h.now()))
}

// handlePreview handles GET /sessions/{id}/preview. ?fragment=1 returns only
// the device element for live replacement.
func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	page := render.Page{
		Title: "Lock Screen Preview",
		Base:  "/sessions/" + s.ID,
		View:  s.View(h.now()),
	}

	var buf bytes.Buffer
	var err error
	if r.URL.Query().Get("fragment") == "1" {
		err = render.Fragment(&buf, page)
	} else {
		err = render.HTML(&buf, page)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Debug("Failed to write preview", zap.Error(err))
	}
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.manager.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, r, err)
		return nil, false
	}
	return s, true
}

// dispatch applies one action and responds with the resulting config
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, action store.Action) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	cfg, err := s.Dispatch(r.Context(), action)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, cfg)
}

func (h *Handler) describe(s *session.Session) SessionResponse {
	return SessionResponse{
		ID:        s.ID,
		Created:   s.Created,
		Revision:  s.Store().Revision(),
		Config:    s.Config(),
		Lock:      s.LockState(),
		DraftIcon: s.DraftIcon(),
		Generating: GeneratingStatus{
			Icon:    s.Bridge().IconInProgress(),
			Heatmap: s.Bridge().HeatmapInProgress(),
		},
	}
}

func (h *Handler) uploadLimit() int64 {
	mb := h.server.MaxUploadMB
	if mb <= 0 {
		mb = 10
	}
	return int64(mb) << 20
}

func (h *Handler) readUpload(body io.Reader) ([]byte, error) {
	limit := h.uploadLimit()
	data, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, &store.ValidationError{Field: "body", Message: "failed to read request body"}
	}
	if int64(len(data)) > limit {
		return nil, &store.ValidationError{Field: "body", Message: "configuration file too large"}
	}
	return data, nil
}
