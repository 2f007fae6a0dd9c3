package generative

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/koios/lockscreenr/internal/store"
	"github.com/koios/lockscreenr/pkg/models"
	"go.uber.org/zap"
)

var (
	// ErrInProgress is returned while a call of the same kind is outstanding
	ErrInProgress = errors.New("a generation request is already in progress")
	// ErrNeedsImageBackground is informational: heatmaps need an image background
	ErrNeedsImageBackground = errors.New("heatmap simulation works best with an image background; please select an image theme first")
)

// ConfigStore is the part of the store a Bridge needs
type ConfigStore interface {
	Dispatch(ctx context.Context, action store.Action) (models.LockScreenConfig, error)
	Snapshot() models.LockScreenConfig
}

// Bridge runs generation for one session. Each kind of request has its own
// in-progress gate so a second click cannot start a parallel call.
type Bridge struct {
	gen    Generator
	store  ConfigStore
	logger *zap.Logger

	iconBusy    atomic.Bool
	heatmapBusy atomic.Bool
}

// NewBridge creates a bridge writing heatmaps into store
func NewBridge(gen Generator, configs ConfigStore, logger *zap.Logger) *Bridge {
	return &Bridge{gen: gen, store: configs, logger: logger}
}

// GenerateIcon returns a generated icon. The config is not touched: the icon
// becomes part of a notification only when the caller adds one with it.
func (b *Bridge) GenerateIcon(ctx context.Context, description string) (IconResult, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return IconResult{}, &store.ValidationError{Field: "description", Message: "Please enter a description for the icon."}
	}

	if !b.iconBusy.CompareAndSwap(false, true) {
		return IconResult{}, ErrInProgress
	}
	defer b.iconBusy.Store(false)

	result, err := b.gen.GenerateIcon(ctx, IconRequest{Description: description})
	if err != nil {
		b.logger.Warn("Icon generation failed", zap.Error(err))
		return IconResult{}, err
	}
	if !models.IsImageDataURI(result.IconDataURI) {
		return IconResult{}, ErrGenerationFailed
	}

	b.logger.Info("Generated app icon", zap.Int("bytes", len(result.IconDataURI)))
	return result, nil
}

// SimulateHeatmap replaces the heatmap overlay with one generated from the
// current background image. The old overlay is cleared before the call, so a
// failure leaves no overlay. Color backgrounds short-circuit with
// ErrNeedsImageBackground and no call is made.
func (b *Bridge) SimulateHeatmap(ctx context.Context) (HeatmapResult, error) {
	cfg := b.store.Snapshot()
	if cfg.BackgroundType != models.BackgroundImage {
		return HeatmapResult{}, ErrNeedsImageBackground
	}

	if !b.heatmapBusy.CompareAndSwap(false, true) {
		return HeatmapResult{}, ErrInProgress
	}
	defer b.heatmapBusy.Store(false)

	if _, err := b.store.Dispatch(ctx, store.ClearHeatmap{}); err != nil {
		return HeatmapResult{}, err
	}

	result, err := b.gen.GenerateHeatmap(ctx, HeatmapRequest{PhotoDataURI: cfg.Background})
	if err != nil {
		b.logger.Warn("Heatmap simulation failed", zap.Error(err))
		return HeatmapResult{}, err
	}

	if _, err := b.store.Dispatch(ctx, store.SetHeatmap{URI: result.HeatmapDataURI}); err != nil {
		if errors.Is(err, store.ErrValidation) {
			return HeatmapResult{}, ErrGenerationFailed
		}
		return HeatmapResult{}, err
	}

	b.logger.Info("Applied heatmap overlay", zap.Int("bytes", len(result.HeatmapDataURI)))
	return result, nil
}

// IconInProgress reports whether an icon call is outstanding
func (b *Bridge) IconInProgress() bool { return b.iconBusy.Load() }

// HeatmapInProgress reports whether a heatmap call is outstanding
func (b *Bridge) HeatmapInProgress() bool { return b.heatmapBusy.Load() }
