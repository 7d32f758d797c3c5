package agent

import (
	"context"
)

type sessionIDContext struct{}

// WithSessionID routes stores and the ADK agent to one session.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDContext{}, id)
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDContext{}).(string)
	return id, ok && id != ""
}
