package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/koios/lockscreenr/internal/config"
	"go.uber.org/zap"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: 0},
		Generator: config.GeneratorConfig{Timeout: 1, Workers: 1},
		Presets:   config.PresetsConfig{MaxSessions: 4},
	}
}

func TestRun_RedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.Redis.Addr = "127.0.0.1:1"

	done := make(chan error, 1)
	go func() { done <- run(context.Background(), cfg, zap.NewNop()) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("Expected an error for an unreachable Redis")
		}
		if !strings.Contains(err.Error(), "Redis") {
			t.Errorf("Expected a Redis connection error, got %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run did not return after the Redis connection failed")
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- run(ctx, testConfig(), zap.NewNop()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}
