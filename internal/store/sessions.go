package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"attendgw/internal/odoo"
)

// DeviceSession is the Odoo session held for one registered device, plus the
// geo capability the device's reconciler has discovered so far. Persisting
// the downgrade keeps later calls from re-probing a schema that already
// rejected geo fields.
type DeviceSession struct {
	Odoo           odoo.Session `json:"odoo"`
	GeoUnsupported bool         `json:"geo_unsupported"`
	CreatedAt      time.Time    `json:"created_at"`
}

// SessionStore keeps device sessions in redis with a TTL.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore creates a session store.
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SessionStore{client: client, ttl: ttl}
}

func sessionKey(deviceID string) string {
	return "attendgw:session:" + deviceID
}

// Save stores or replaces the session for a device.
func (s *SessionStore) Save(ctx context.Context, deviceID string, sess DeviceSession) error {
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(deviceID), data, s.ttl).Err()
}

// Get returns the device's session, or nil when none exists.
func (s *SessionStore) Get(ctx context.Context, deviceID string) (*DeviceSession, error) {
	data, err := s.client.Get(ctx, sessionKey(deviceID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var sess DeviceSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// Delete removes the device's session.
func (s *SessionStore) Delete(ctx context.Context, deviceID string) error {
	return s.client.Del(ctx, sessionKey(deviceID)).Err()
}
