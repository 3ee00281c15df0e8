package session

import (
	"context"
	"errors"

	"github.com/akarpov/go-shop/internal/domain"
)

// Store persists the serialized cart between requests, keyed by the client's
// session id. It is the only server-side home the cart has; there is no
// authoritative relational copy.
type Store interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Set(ctx context.Context, sessionID string, cart *domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrSessionNotFound = errors.New("session not found")
