package middleware

import "context"

type contextKey string

const (
	ctxDiscordID contextKey = "discord_id"
	ctxRole      contextKey = "actor_role"
	ctxNickname  contextKey = "actor_nickname"
)

func DiscordIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxDiscordID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func NicknameFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxNickname).(string); ok {
		return v
	}
	return ""
}

// WithIdentity seeds the context with the authenticated caller. Handlers
// downstream read the actor through the FromContext accessors.
func WithIdentity(ctx context.Context, discordID, role, nickname string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxDiscordID, discordID)
	ctx = context.WithValue(ctx, ctxRole, role)
	return context.WithValue(ctx, ctxNickname, nickname)
}
