package auditstore

import (
	"context"
	"time"
)

const (
	KindMute   = "mute"
	KindUnmute = "unmute"
	KindAccept = "accept"
)

// One moderation action, as mirrored to the log channel.
type Action struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	Kind      string `gorm:"index"`
	GuildID   string `gorm:"index"`
	// Discord user ID of the member the action applied to
	TargetID   string `gorm:"index"`
	TargetName string
	// Moderator who ran the command. Empty for reaction-triggered actions.
	ActorID   string
	ActorName string
	// Duration token as typed by the moderator (eg, "10m"), for mutes only
	Duration string
	Reason   string
	// Value of the acceptance counter, for acceptances only
	AcceptanceNumber int
}

// Append-only sink for moderation actions. There is intentionally no read API.
type AuditStore interface {
	Record(ctx context.Context, act *Action) error
}
