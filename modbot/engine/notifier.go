package engine

import (
	"context"

	"github.com/gardien-bot/gardien/modbot/auditstore"
)

// Interface for a type that can handle sending notifications about moderation actions
type Notifier interface {
	SendAction(ctx context.Context, act *auditstore.Action) error
}
