package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gardien-bot/gardien/modbot/auditstore"
	"github.com/gardien-bot/gardien/modbot/platform"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Reaction which marks acceptance of the rules.
const AcceptEmoji = "✅"

const acceptReason = "Acceptation des règles via réaction"

// A reaction added to a message, as delivered by the gateway.
type ReactionEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	// unicode glyph, or custom emoji name
	Emoji string
	// member snapshot from the event payload, if the platform sent one
	Member *discordgo.Member
}

// Grants the acceptance role to a member who reacts with ✅ in the rules channel, then bumps the
// acceptance counter and logs the new number.
//
// Idempotent: a member who already holds the role is left alone. There is nobody to answer on a
// passive trigger, so failures are only logged; the returned error is for the caller's bookkeeping.
func (eng *Engine) HandleReactionAdd(ctx context.Context, evt ReactionEvent) error {
	if evt.ChannelID != eng.Config.RulesChannelID || evt.Emoji != AcceptEmoji || evt.GuildID == "" {
		reactionCount.WithLabelValues("ignored").Inc()
		return nil
	}
	if platform.IsBot(evt.Member) {
		reactionCount.WithLabelValues("ignored").Inc()
		return nil
	}

	ctx, span := tracer.Start(ctx, "HandleReactionAdd", trace.WithAttributes(
		attribute.String("guild", evt.GuildID),
		attribute.String("user", evt.UserID),
	))
	defer span.End()

	logger := eng.Logger.With("guild", evt.GuildID, "user", evt.UserID)

	member, number, err := eng.grantAcceptance(ctx, evt, logger)
	if err != nil || member == nil {
		return err
	}

	at := eng.now()
	if !eng.postLog(ctx, acceptEmbed(member, number, at)) {
		logger.Warn("log channel not found, announcing in rules channel", "channel", eng.Config.LogChannelID)
		msg := fmt.Sprintf("**%s** a accepté les règles du serveur. #%d", displayName(member), number)
		if err := eng.Client.SendText(ctx, eng.Config.RulesChannelID, msg); err != nil {
			logger.Error("failed to announce acceptance in rules channel", "err", err)
		}
	}
	eng.recordAction(ctx, &auditstore.Action{
		CreatedAt:        at,
		Kind:             auditstore.KindAccept,
		GuildID:          evt.GuildID,
		TargetID:         member.User.ID,
		TargetName:       displayName(member),
		Reason:           acceptReason,
		AcceptanceNumber: number,
	})

	reactionCount.WithLabelValues("accepted").Inc()
	logger.Info("member accepted rules", "number", number)
	return nil
}

// Check-grant-increment, serialized so duplicate events can't count a member twice. Returns a nil
// member when there is nothing to do.
func (eng *Engine) grantAcceptance(ctx context.Context, evt ReactionEvent, logger *slog.Logger) (*discordgo.Member, int, error) {
	eng.acceptLk.Lock()
	defer eng.acceptLk.Unlock()

	member, err := eng.Client.GuildMember(ctx, evt.GuildID, evt.UserID)
	if errors.Is(err, platform.ErrNotFound) {
		reactionCount.WithLabelValues("ignored").Inc()
		return nil, 0, nil
	} else if err != nil {
		logger.Error("failed to fetch reacting member", "err", err)
		reactionCount.WithLabelValues("failed").Inc()
		return nil, 0, fmt.Errorf("fetching member: %w", err)
	}
	if platform.IsBot(member) {
		reactionCount.WithLabelValues("ignored").Inc()
		return nil, 0, nil
	}

	role, err := eng.Client.GuildRole(ctx, evt.GuildID, eng.Config.AcceptRoleID)
	if err != nil {
		logger.Error("acceptance role not found, check ACCEPT_ROLE_ID", "role", eng.Config.AcceptRoleID, "err", err)
		reactionCount.WithLabelValues("failed").Inc()
		return nil, 0, fmt.Errorf("resolving acceptance role: %w", err)
	}
	if platform.HasRole(member, role.ID) {
		reactionCount.WithLabelValues("already_accepted").Inc()
		return nil, 0, nil
	}

	if err := eng.Client.AddMemberRole(ctx, evt.GuildID, member.User.ID, role.ID, acceptReason); err != nil {
		if errors.Is(err, platform.ErrForbidden) {
			logger.Error("missing permission to grant acceptance role", "role", role.Name, "member", displayName(member), "err", err)
		} else {
			logger.Error("failed to grant acceptance role", "role", role.Name, "member", displayName(member), "err", err)
		}
		reactionCount.WithLabelValues("failed").Inc()
		return nil, 0, fmt.Errorf("granting acceptance role: %w", err)
	}

	// only count once the role is actually granted
	number, err := eng.Counters.Increment(ctx)
	if err != nil {
		logger.Error("failed to persist acceptance counter", "err", err)
		reactionCount.WithLabelValues("failed").Inc()
		return nil, 0, fmt.Errorf("incrementing acceptance counter: %w", err)
	}
	acceptanceNumber.Set(float64(number))
	return member, number, nil
}
