package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ImportHandler applies a pushed config document to a session
type ImportHandler interface {
	ImportConfig(ctx context.Context, sessionID string, payload []byte) error
}

// Consumer applies configs pushed onto the import stream
type Consumer struct {
	client  *Client
	handler ImportHandler
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewConsumer creates a new import consumer
func NewConsumer(client *Client, handler ImportHandler, logger *zap.Logger) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		client:  client,
		handler: handler,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start consumes until Stop is called
func (c *Consumer) Start() error {
	c.logger.Info("Starting Redis consumer for config imports")

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Info("Redis consumer stopped")
			return nil
		default:
			if err := c.consumeMessages(); err != nil {
				c.logger.Error("Error consuming messages, will retry",
					zap.Error(err),
					zap.Duration("retry_delay", 5*time.Second))
				select {
				case <-time.After(5 * time.Second):
				case <-c.ctx.Done():
				}
			}
		}
	}
}

// Stop stops the consumer
func (c *Consumer) Stop() {
	c.logger.Info("Stopping Redis consumer")
	c.cancel()
}

func (c *Consumer) consumeMessages() error {
	for {
		select {
		case <-c.ctx.Done():
			return nil
		default:
		}

		streams, err := c.client.ReadImports(c.ctx, 10, 5*time.Second)
		if err != nil {
			if c.ctx.Err() != nil {
				return nil
			}
			if !c.client.IsHealthy() {
				return fmt.Errorf("Redis connection unhealthy, will reconnect")
			}
			c.logger.Error("Error reading from stream", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				c.handleMessage(message)
			}
		}
	}
}

// handleMessage applies one import. Malformed or rejected imports are
// acknowledged so they are not redelivered.
func (c *Consumer) handleMessage(msg redis.XMessage) {
	sessionID, _ := msg.Values["session_id"].(string)
	payload, ok := msg.Values["payload"].(string)
	if !ok || sessionID == "" {
		c.logger.Error("Import message is missing session_id or payload",
			zap.String("message_id", msg.ID))
		_ = c.client.AcknowledgeImport(c.ctx, msg.ID)
		return
	}

	if err := c.handler.ImportConfig(c.ctx, sessionID, []byte(payload)); err != nil {
		c.logger.Warn("Rejected pushed config",
			zap.Error(err),
			zap.String("message_id", msg.ID),
			zap.String("session_id", sessionID))
	} else {
		c.logger.Info("Applied pushed config",
			zap.String("message_id", msg.ID),
			zap.String("session_id", sessionID))
	}

	if err := c.client.AcknowledgeImport(c.ctx, msg.ID); err != nil {
		c.logger.Error("Failed to acknowledge message",
			zap.Error(err),
			zap.String("message_id", msg.ID))
	}
}
