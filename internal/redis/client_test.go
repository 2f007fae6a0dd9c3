package redis

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/koios/lockscreenr/internal/config"
	"github.com/koios/lockscreenr/pkg/models"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	// Requires a running Redis instance
	client, err := NewClient(config.RedisConfig{
		Addr:          "localhost:6379",
		DB:            1,
		ConsumerGroup: "lockscreenr-test",
		SnapshotTTL:   60,
	}, zap.NewNop())
	if err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestChannel(t *testing.T) {
	if got := Channel("abc"); got != "lockscreenr:session:abc" {
		t.Errorf("Channel() = %q", got)
	}
}

func TestSnapshots(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	cfg := models.LockScreenConfig{
		Device:         models.DeviceWatch,
		OS:             models.OSWearOS,
		Background:     "#000000",
		BackgroundType: models.BackgroundColor,
		Notifications:  []models.Notification{{ID: "1", AppName: "Fit", Message: "Move"}},
	}

	if err := client.SaveSnapshot(ctx, "test-session", cfg); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	loaded, found, err := client.LoadSnapshot(ctx, "test-session")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if !found {
		t.Fatal("snapshot not found")
	}
	if loaded.Device != models.DeviceWatch || len(loaded.Notifications) != 1 {
		t.Errorf("unexpected snapshot: %s", loaded)
	}

	if err := client.DeleteSnapshot(ctx, "test-session"); err != nil {
		t.Fatalf("DeleteSnapshot failed: %v", err)
	}
	if _, found, _ := client.LoadSnapshot(ctx, "test-session"); found {
		t.Error("snapshot should be gone")
	}
}

func TestPublishEvent(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	sub := client.Subscribe(ctx, "test-publish")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	event := models.ConfigEvent{Type: models.ConfigEventType, SessionID: "test-publish", Revision: 3}
	if err := client.PublishEvent(ctx, event); err != nil {
		t.Fatalf("PublishEvent failed: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got models.ConfigEvent
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if got.Revision != 3 || got.SessionID != "test-publish" {
			t.Errorf("unexpected event: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

type recordingHandler struct {
	mu      sync.Mutex
	imports map[string]string
	done    chan struct{}
}

func (h *recordingHandler) ImportConfig(_ context.Context, sessionID string, payload []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.imports[sessionID] = string(payload)
	if sessionID == "pushed" {
		select {
		case <-h.done:
		default:
			close(h.done)
		}
	}
	return nil
}

func TestConsumerAppliesImports(t *testing.T) {
	client := newTestClient(t)
	handler := &recordingHandler{imports: make(map[string]string), done: make(chan struct{})}
	consumer := NewConsumer(client, handler, zap.NewNop())

	go consumer.Start()
	defer consumer.Stop()

	// let the consumer block on the stream before pushing
	time.Sleep(100 * time.Millisecond)
	if _, err := client.EnqueueImport(context.Background(), "pushed", []byte(`{"device":"iphone"}`)); err != nil {
		t.Fatalf("EnqueueImport failed: %v", err)
	}

	select {
	case <-handler.done:
	case <-time.After(10 * time.Second):
		t.Fatal("import was not consumed")
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if handler.imports["pushed"] != `{"device":"iphone"}` {
		t.Errorf("unexpected payload %q", handler.imports["pushed"])
	}
}
