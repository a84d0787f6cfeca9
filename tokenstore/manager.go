package tokenstore

import (
	"context"
	"math"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-oauth-broker/internal/errors"
	"github.com/jrsteele09/go-oauth-broker/token"
	"github.com/rs/zerolog/log"
)

const (
	tokenKeySuffix        = "clientToken"
	creationDateKeySuffix = "creationDate"
)

// Manager persists one token and its issue date under a key prefix, normally
// the client id of the flow currently in use.
type Manager struct {
	store Store

	mu     sync.RWMutex
	prefix string
}

func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Store is the backing key/value store.
func (m *Manager) Store() Store {
	return m.store
}

func (m *Manager) SetPrefix(prefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefix = prefix
}

func (m *Manager) Prefix() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.prefix
}

func (m *Manager) keys() (tokenKey, dateKey string, err error) {
	prefix := m.Prefix()
	if prefix == "" {
		return "", "", ErrNoPrefix
	}
	return prefix + tokenKeySuffix, prefix + creationDateKeySuffix, nil
}

// SaveToken writes the token and its issue date. Either write failing fails
// the save.
func (m *Manager) SaveToken(ctx context.Context, t token.Token) error {
	tokenKey, dateKey, err := m.keys()
	if err != nil {
		return err
	}

	date := encodeDate(t.IssuedAt)
	return apperrors.Join(
		apperrors.Wrapf(SetObject(ctx, m.store, tokenKey, &t), "saving token"),
		apperrors.Wrapf(SetObject(ctx, m.store, dateKey, &date), "saving token creation date"),
	)
}

// Token loads the persisted token. found is false when either half is
// missing, in which case the empty token is returned.
func (m *Manager) Token(ctx context.Context) (t token.Token, found bool, err error) {
	tokenKey, dateKey, err := m.keys()
	if err != nil {
		return token.Empty(), false, err
	}

	stored, err := GetObject[token.Token](ctx, m.store, tokenKey)
	if apperrors.Is(err, ErrNotFound) {
		return token.Empty(), false, nil
	}
	if err != nil {
		return token.Empty(), false, apperrors.Wrapf(err, "loading token")
	}

	date, err := GetObject[float64](ctx, m.store, dateKey)
	if apperrors.Is(err, ErrNotFound) {
		log.Warn().Str("prefix", m.Prefix()).Msg("stored token has no creation date, ignoring it")
		return token.Empty(), false, nil
	}
	if err != nil {
		return token.Empty(), false, apperrors.Wrapf(err, "loading token creation date")
	}

	return stored.WithIssuedAt(decodeDate(*date)), true, nil
}

// RemoveToken deletes the token and its issue date.
func (m *Manager) RemoveToken(ctx context.Context) error {
	tokenKey, dateKey, err := m.keys()
	if err != nil {
		return err
	}
	return apperrors.Join(
		apperrors.Wrapf(m.store.Delete(ctx, tokenKey), "deleting token"),
		apperrors.Wrapf(m.store.Delete(ctx, dateKey), "deleting token creation date"),
	)
}

// Dates are unix seconds with a fractional part, kept to the microsecond.
func encodeDate(t time.Time) float64 {
	return float64(t.UnixMicro()) / 1e6
}

func decodeDate(seconds float64) time.Time {
	return time.UnixMicro(int64(math.Round(seconds * 1e6)))
}
