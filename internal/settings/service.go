// Package settings stores per-user display preferences and notifies
// subscribers when they change.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/couchcryptid/zerodelay-service/internal/domain"
	"github.com/couchcryptid/zerodelay-service/internal/observability"
)

var (
	// ErrInvalidValue is returned when an update carries an unsupported value.
	ErrInvalidValue = errors.New("invalid settings value")
	// ErrInvalidUser is returned for an empty user key.
	ErrInvalidUser = errors.New("user is required")
)

// Store is the key-value persistence behind the service.
type Store interface {
	Load(ctx context.Context, user string) (map[string]string, error)
	Save(ctx context.Context, user string, kv map[string]string) error
}

// Service implements typed get/set/subscribe over a Store.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *observability.Metrics

	// writeMu serializes read-modify-write cycles.
	writeMu sync.Mutex

	mu   sync.Mutex
	subs map[string]map[chan domain.Settings]struct{}
}

// NewService creates a settings Service.
func NewService(store Store, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:   store,
		logger:  logger,
		metrics: metrics,
		subs:    make(map[string]map[chan domain.Settings]struct{}),
	}
}

// Get returns the user's settings with defaults for missing or invalid
// values. age > 0 picks the font size default for users who never chose one.
func (s *Service) Get(ctx context.Context, user string, age int) (domain.Settings, error) {
	if user == "" {
		return domain.Settings{}, ErrInvalidUser
	}
	kv, err := s.store.Load(ctx, user)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return domain.DecodeSettingsForAge(kv, age), nil
}

// Set validates and persists a partial update, then notifies the user's
// subscribers with the resulting settings.
func (s *Service) Set(ctx context.Context, user string, patch domain.SettingsPatch) (domain.Settings, error) {
	if user == "" {
		return domain.Settings{}, ErrInvalidUser
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	kv, err := s.store.Load(ctx, user)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("set settings: %w", err)
	}
	current := domain.DecodeSettings(kv)

	next, changed, err := current.Apply(patch)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	if len(changed) == 0 {
		return current, nil
	}

	if err := s.store.Save(ctx, user, changed); err != nil {
		return domain.Settings{}, fmt.Errorf("set settings: %w", err)
	}
	s.metrics.SettingsUpdates.Inc()
	s.logger.Info("settings updated", "user", user, "keys", len(changed))

	s.notify(user, next)
	return next, nil
}

// Subscribe returns a channel receiving the user's settings after every Set.
// The channel is closed when ctx ends. A slow reader only sees the latest
// value; Set never blocks on subscribers.
func (s *Service) Subscribe(ctx context.Context, user string) <-chan domain.Settings {
	ch := make(chan domain.Settings, 1)

	s.mu.Lock()
	if s.subs[user] == nil {
		s.subs[user] = make(map[chan domain.Settings]struct{})
	}
	s.subs[user][ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs[user], ch)
		if len(s.subs[user]) == 0 {
			delete(s.subs, user)
		}
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

// Subscribers returns the number of open subscriptions for user.
func (s *Service) Subscribers(user string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[user])
}

func (s *Service) notify(user string, v domain.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.subs[user] {
		// Drop a stale pending value, then deliver the new one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}
