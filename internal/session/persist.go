package session

import (
	"context"
	"time"

	"github.com/koios/lockscreenr/internal/store"
	"github.com/koios/lockscreenr/pkg/models"
	"go.uber.org/zap"
)

const persistTimeout = 5 * time.Second

// startPersisting saves and publishes the config after every change. Bursts of
// changes coalesce into one write of the newest snapshot.
func (s *Session) startPersisting(snapshots SnapshotStore) {
	pending := make(chan struct{}, 1)
	stop := make(chan struct{})
	stopped := make(chan struct{})

	s.mu.Lock()
	s.stopPersist = func() {
		close(stop)
		<-stopped
	}
	s.mu.Unlock()

	s.store.Observe(func(store.Change) {
		select {
		case pending <- struct{}{}:
		default:
		}
	})

	go func() {
		defer close(stopped)
		for {
			select {
			case <-pending:
				ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
				if err := s.save(ctx, snapshots, s.store.Revision()); err != nil {
					s.logger.Warn("Failed to persist session", zap.Error(err))
				}
				cancel()
			case <-stop:
				return
			}
		}
	}()
}

func (s *Session) save(ctx context.Context, snapshots SnapshotStore, revision uint64) error {
	cfg := s.store.Snapshot()
	if err := snapshots.SaveSnapshot(ctx, s.ID, cfg); err != nil {
		return err
	}
	return snapshots.PublishEvent(ctx, models.ConfigEvent{
		Type:      models.ConfigEventType,
		SessionID: s.ID,
		Revision:  revision,
		Config:    cfg,
		UpdatedAt: time.Now(),
	})
}
