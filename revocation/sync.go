// revocation/sync.go
package revocation

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	logger "github.com/albeach/DIVE-V3-sub011/logging"
)

// StartSync subscribes to the coalition revocation channel and applies peer
// events to the local view of the shared store. Events that originated here
// loop back through the channel and are re-applied idempotently.
func (s *Store) StartSync(ctx context.Context) {
	pubsub := s.client.Subscribe(ctx, s.channel)

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case raw, ok := <-ch:
				if !ok {
					return
				}
				s.handleMessage(ctx, []byte(raw.Payload))
			case <-ctx.Done():
				return
			}
		}
	}()

	logger.Info("Revocation sync subscribed", zap.String("channel", s.channel))
}

func (s *Store) handleMessage(ctx context.Context, payload []byte) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		logger.Error("Malformed revocation message", zap.Error(err))
		return
	}
	if msg.ID == "" || msg.TTLSeconds <= 0 {
		logger.Warn("Dropping revocation message with missing id or ttl",
			zap.String("type", msg.Type),
			zap.String("source", msg.SourceInstance))
		return
	}

	ttl := time.Duration(msg.TTLSeconds) * time.Second

	var key, eventType string
	switch msg.Type {
	case messageTypeToken:
		key = tokenKeyPrefix + msg.ID
		eventType = EventTokenRevoked
	case messageTypeSubject:
		key = subjectKeyPrefix + msg.ID
		eventType = EventSubjectRevoked
	default:
		logger.Warn("Unknown revocation message type", zap.String("type", msg.Type))
		return
	}

	if err := s.apply(ctx, key, ttl, msg.Reason, msg.SourceInstance); err != nil {
		logger.Error("Failed to apply peer revocation",
			zap.Error(err),
			zap.String("id", msg.ID),
			zap.String("source", msg.SourceInstance))
		return
	}

	logger.Info("Peer revocation applied",
		zap.String("type", msg.Type),
		zap.String("id", msg.ID),
		zap.String("source", msg.SourceInstance))

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, eventType, msg)
	}
}
