package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/koios/lockscreenr/internal/generative"
	"github.com/koios/lockscreenr/internal/store"
	"github.com/koios/lockscreenr/pkg/models"
	"go.uber.org/zap"
)

var (
	// ErrSessionNotFound is returned for unknown session ids
	ErrSessionNotFound = errors.New("session not found")
	// ErrPresetNotFound is returned for unknown preset names
	ErrPresetNotFound = errors.New("preset not found")
	// ErrTooManySessions is returned when MaxSessions is reached
	ErrTooManySessions = errors.New("too many sessions")
)

// SnapshotStore persists session configs and announces changes.
// *redis.Client implements it.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, sessionID string, cfg models.LockScreenConfig) error
	LoadSnapshot(ctx context.Context, sessionID string) (models.LockScreenConfig, bool, error)
	DeleteSnapshot(ctx context.Context, sessionID string) error
	PublishEvent(ctx context.Context, event models.ConfigEvent) error
}

// Options configures a Manager
type Options struct {
	Presets       *models.PresetRegistry
	Generator     generative.Generator
	Snapshots     SnapshotStore
	DefaultPreset string
	MaxSessions   int
	StrictImport  bool
	StoreOptions  []store.Option
}

// Summary is the list view of a session
type Summary struct {
	ID       string            `json:"id"`
	Created  time.Time         `json:"created"`
	Device   models.DeviceType `json:"device"`
	OS       models.OSType     `json:"os"`
	Revision uint64            `json:"revision"`
}

// Manager owns every live session
type Manager struct {
	opts   Options
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty manager. An unknown default preset is replaced
// by the registry's iOS default.
func NewManager(opts Options, logger *zap.Logger) *Manager {
	if opts.DefaultPreset == "" {
		opts.DefaultPreset = models.DefaultPresetName
	}
	if opts.Presets != nil {
		if _, ok := opts.Presets.Get(opts.DefaultPreset); !ok {
			if name, found := opts.Presets.DefaultFor(models.OSiOS); found {
				logger.Warn("Unknown default preset, falling back",
					zap.String("preset", opts.DefaultPreset),
					zap.String("fallback", name))
				opts.DefaultPreset = name
			}
		}
	}
	return &Manager{
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Create starts a session from a preset; an empty name uses the default preset
func (m *Manager) Create(ctx context.Context, preset string) (*Session, error) {
	if preset == "" {
		preset = m.opts.DefaultPreset
	}
	cfg, ok := m.opts.Presets.Get(preset)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrPresetNotFound, preset)
	}

	s, err := m.add(uuid.NewString(), cfg)
	if err != nil {
		return nil, err
	}
	m.persist(ctx, s, 0)

	m.logger.Info("Created session",
		zap.String("session_id", s.ID),
		zap.String("preset", preset))
	return s, nil
}

// Get returns a live session, restoring it from the snapshot store if needed
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	if m.opts.Snapshots == nil {
		return nil, ErrSessionNotFound
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}

	cfg, found, err := m.opts.Snapshots.LoadSnapshot(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session %s: %w", id, err)
	}
	if !found {
		return nil, ErrSessionNotFound
	}

	s, err = m.add(id, cfg)
	if err != nil {
		if errors.Is(err, errDuplicate) {
			return m.Get(ctx, id)
		}
		return nil, err
	}
	m.logger.Info("Restored session from snapshot", zap.String("session_id", id))
	return s, nil
}

// Delete closes a session and drops its snapshot
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()

	if m.opts.Snapshots != nil {
		if err := m.opts.Snapshots.DeleteSnapshot(ctx, id); err != nil {
			m.logger.Warn("Failed to delete snapshot", zap.String("session_id", id), zap.Error(err))
		}
	}
	m.logger.Info("Deleted session", zap.String("session_id", id))
	return nil
}

// List summarizes live sessions, oldest first
func (m *Manager) List() []Summary {
	m.mu.RLock()
	out := make([]Summary, 0, len(m.sessions))
	for _, s := range m.sessions {
		cfg := s.Config()
		out = append(out, Summary{
			ID:       s.ID,
			Created:  s.Created,
			Device:   cfg.Device,
			OS:       cfg.OS,
			Revision: s.Store().Revision(),
		})
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// LoadPreset replaces a session's config with a preset
func (m *Manager) LoadPreset(ctx context.Context, id, preset string) (models.LockScreenConfig, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return models.LockScreenConfig{}, err
	}
	cfg, ok := m.opts.Presets.Get(preset)
	if !ok {
		return models.LockScreenConfig{}, fmt.Errorf("%w: %q", ErrPresetNotFound, preset)
	}
	return s.Dispatch(ctx, store.ReplaceConfig{Config: cfg, Source: "preset:" + preset})
}

// Import replaces a session's config with an exported document. On failure the
// config is untouched and the error wraps models.ErrInvalidConfigFile.
func (m *Manager) Import(ctx context.Context, id string, data []byte) (models.LockScreenConfig, error) {
	s, err := m.Get(ctx, id)
	if err != nil {
		return models.LockScreenConfig{}, err
	}

	parse := models.ImportJSON
	if m.opts.StrictImport {
		parse = models.ImportJSONStrict
	}
	cfg, err := parse(data)
	if err != nil {
		return models.LockScreenConfig{}, err
	}
	return s.Dispatch(ctx, store.ReplaceConfig{Config: cfg, Source: "import"})
}

// ImportConfig applies a pushed document; it satisfies redis.ImportHandler
func (m *Manager) ImportConfig(ctx context.Context, sessionID string, payload []byte) error {
	_, err := m.Import(ctx, sessionID, payload)
	return err
}

// Close closes every session
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

var errDuplicate = errors.New("session already exists")

func (m *Manager) add(id string, cfg models.LockScreenConfig) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; exists {
		return nil, errDuplicate
	}
	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		return nil, ErrTooManySessions
	}

	s := newSession(id, cfg, m.opts.Generator, m.logger, m.opts.StoreOptions...)
	if m.opts.Snapshots != nil {
		s.startPersisting(m.opts.Snapshots)
	}
	m.sessions[id] = s
	return s, nil
}

func (m *Manager) persist(ctx context.Context, s *Session, revision uint64) {
	if m.opts.Snapshots == nil {
		return
	}
	if err := s.save(ctx, m.opts.Snapshots, revision); err != nil {
		m.logger.Warn("Failed to persist session", zap.String("session_id", s.ID), zap.Error(err))
	}
}
