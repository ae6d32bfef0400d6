// revocation/store.go

// Package revocation maintains the coalition-wide token and subject
// denylists. Entries self-expire with the revoked credential's remaining
// lifetime and are propagated to peer instances over a Redis pub/sub
// channel, so instances converge without a shared database.
package revocation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	logger "github.com/albeach/DIVE-V3-sub011/logging"
	"github.com/albeach/DIVE-V3-sub011/util"
)

const (
	tokenKeyPrefix   = "blacklist:token:"
	subjectKeyPrefix = "blacklist:subject:"

	// Event bus topics for locally observed revocations.
	EventTokenRevoked   = "revocation.token"
	EventSubjectRevoked = "revocation.subject"

	messageTypeToken   = "tokenRevoked"
	messageTypeSubject = "userRevoked"
)

// Message is the pub/sub envelope replicated to every peer instance.
type Message struct {
	Type           string `json:"type"`
	ID             string `json:"id"`
	TTLSeconds     int64  `json:"ttlSeconds"`
	Reason         string `json:"reason"`
	SourceInstance string `json:"sourceInstance"`
}

// entry is the value stored under a denylist key.
type entry struct {
	Reason            string    `json:"reason"`
	RevokedAtInstance string    `json:"revokedAtInstance"`
	RevokedAt         time.Time `json:"revokedAt"`
}

// Store is the shared revocation view backed by Redis. Lookups read the
// authoritative store on every call; revocation results are never served
// from a long-lived local cache.
type Store struct {
	client     *redis.Client
	channel    string
	instanceID string
	eventBus   *util.EventBus
}

func NewStore(client *redis.Client, channel, instanceID string, eventBus *util.EventBus) *Store {
	return &Store{
		client:     client,
		channel:    channel,
		instanceID: instanceID,
		eventBus:   eventBus,
	}
}

// BlacklistToken revokes a single token by jti. The TTL should match the
// token's remaining lifetime so the entry expires with it.
func (s *Store) BlacklistToken(ctx context.Context, jti string, ttl time.Duration, reason string) error {
	if err := s.apply(ctx, tokenKeyPrefix+jti, ttl, reason, s.instanceID); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	s.broadcast(ctx, Message{
		Type:           messageTypeToken,
		ID:             jti,
		TTLSeconds:     int64(ttl.Seconds()),
		Reason:         reason,
		SourceInstance: s.instanceID,
	})
	logger.Info("Token blacklisted",
		zap.String("jti", jti),
		zap.Duration("ttl", ttl),
		zap.String("reason", reason))
	return nil
}

// BlacklistSubject revokes every token belonging to a subject. Used for
// compromise response; peers converge through the pub/sub channel.
func (s *Store) BlacklistSubject(ctx context.Context, uniqueID string, ttl time.Duration, reason string) error {
	if err := s.apply(ctx, subjectKeyPrefix+uniqueID, ttl, reason, s.instanceID); err != nil {
		return fmt.Errorf("failed to blacklist subject: %w", err)
	}
	s.broadcast(ctx, Message{
		Type:           messageTypeSubject,
		ID:             uniqueID,
		TTLSeconds:     int64(ttl.Seconds()),
		Reason:         reason,
		SourceInstance: s.instanceID,
	})
	logger.Warn("Subject blacklisted",
		zap.String("uniqueID", uniqueID),
		zap.Duration("ttl", ttl),
		zap.String("reason", reason))
	return nil
}

// IsTokenBlacklisted reports whether the token is revoked. Token revocation
// is a secondary layer on top of primary authentication, so an unreachable
// store FAILS OPEN: the token is treated as not revoked and the error is
// returned for observability.
func (s *Store) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	exists, err := s.client.Exists(ctx, tokenKeyPrefix+jti).Result()
	if err != nil {
		logger.Error("Token revocation lookup failed, failing open", zap.Error(err), zap.String("jti", jti))
		return false, err
	}
	return exists > 0, nil
}

// IsSubjectBlacklisted reports whether the subject is revoked. Subject
// revocation is a deliberate security action that must never be silently
// bypassed, so an unreachable store FAILS CLOSED: the subject is treated as
// revoked and the error is returned for observability.
func (s *Store) IsSubjectBlacklisted(ctx context.Context, uniqueID string) (bool, error) {
	exists, err := s.client.Exists(ctx, subjectKeyPrefix+uniqueID).Result()
	if err != nil {
		logger.Error("Subject revocation lookup failed, failing closed", zap.Error(err), zap.String("uniqueID", uniqueID))
		return true, err
	}
	return exists > 0, nil
}

// TokenRevocationReason returns the stored reason for a revoked token, or
// empty when the token is not revoked.
func (s *Store) TokenRevocationReason(ctx context.Context, jti string) (string, error) {
	raw, err := s.client.Get(ctx, tokenKeyPrefix+jti).Result()
	if err == redis.Nil {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("failed to read token revocation: %w", err)
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return "", fmt.Errorf("malformed revocation entry: %w", err)
	}
	return e.Reason, nil
}

func (s *Store) apply(ctx context.Context, key string, ttl time.Duration, reason, sourceInstance string) error {
	if ttl <= 0 {
		return fmt.Errorf("revocation ttl must be positive")
	}

	value, err := json.Marshal(entry{
		Reason:            reason,
		RevokedAtInstance: sourceInstance,
		RevokedAt:         time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *Store) broadcast(ctx context.Context, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to marshal revocation message", zap.Error(err))
		return
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		// Propagation failure is not fatal: the local store already holds the
		// entry and peers converge on the next publish.
		logger.Error("Failed to broadcast revocation", zap.Error(err), zap.String("id", msg.ID))
	}
}
