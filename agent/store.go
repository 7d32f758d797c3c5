package agent

import (
	"context"
	"errors"
)

var errNoStoreKey = errors.New("no session id in context")

// Store reads and writes one conversation per session. The session id comes
// from the context (see WithSessionID) and is stored as "<namespace>:<id>",
// so several deployments can share one Redis database.
type Store[S any] struct {
	core      Cache[S]
	namespace string
	sessionID func(ctx context.Context) (string, bool)
}

func NewStore[S any](core Cache[S], namespace string, sessionID func(ctx context.Context) (string, bool)) Store[S] {
	return Store[S]{
		core:      core,
		namespace: namespace,
		sessionID: sessionID,
	}
}

// Key returns the cache key of the session in ctx.
func (c Store[S]) Key(ctx context.Context) (string, error) {
	id, ok := c.sessionID(ctx)
	if !ok || id == "" {
		return "", errNoStoreKey
	}
	return c.namespace + ":" + id, nil
}

func (c Store[S]) Set(ctx context.Context, val S) error {
	key, err := c.Key(ctx)
	if err != nil {
		return err
	}
	return c.core.Set(ctx, key, val)
}

func (c Store[S]) Get(ctx context.Context) (S, bool, error) {
	var zero S
	key, err := c.Key(ctx)
	if err != nil {
		return zero, false, err
	}
	return c.core.Get(ctx, key)
}

func (c Store[S]) Del(ctx context.Context) error {
	key, err := c.Key(ctx)
	if err != nil {
		return err
	}
	return c.core.Del(ctx, key)
}

func (c Store[S]) Exists(ctx context.Context) (bool, error) {
	key, err := c.Key(ctx)
	if err != nil {
		return false, err
	}
	return c.core.Exists(ctx, key)
}
