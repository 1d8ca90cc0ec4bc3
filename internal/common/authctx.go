package common

import "context"

type ctxKey string

const agentIDKey ctxKey = "auth/agent-id"

// WithAgentID stores the authenticated agent identifier on the provided context.
func WithAgentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, agentIDKey, id)
}

// AgentID extracts the authenticated agent identifier from the context if present.
func AgentID(ctx context.Context) (string, bool) {
	v := ctx.Value(agentIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
