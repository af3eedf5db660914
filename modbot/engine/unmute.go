package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/gardien-bot/gardien/modbot/auditstore"
	"github.com/gardien-bot/gardien/modbot/platform"
)

const unmuteReason = "Unmute par commande"

func (eng *Engine) handleUnmute(ctx context.Context, inv *Invocation) (*Response, error) {
	target, err := eng.targetMember(ctx, inv)
	if err != nil {
		return nil, err
	}

	issued := eng.now()
	if !platform.IsTimedOut(target, issued) {
		return &Response{Content: fmt.Sprintf("**%s** n'est pas mute.", displayName(target))}, nil
	}

	if err := eng.Client.TimeoutMember(ctx, inv.GuildID, target.User.ID, nil, unmuteReason); err != nil {
		if errors.Is(err, platform.ErrForbidden) {
			return nil, &PermissionError{
				Side:    SideBot,
				Message: "Je n'ai pas les permissions suffisantes pour unmute ce membre.",
				Err:     err,
			}
		}
		return nil, &PlatformError{Action: "lors de l'unmute", Err: err}
	}

	eng.postLog(ctx, unmuteEmbed(target, inv.Actor, issued))
	eng.recordAction(ctx, &auditstore.Action{
		CreatedAt:  issued,
		Kind:       auditstore.KindUnmute,
		GuildID:    inv.GuildID,
		TargetID:   target.User.ID,
		TargetName: displayName(target),
		ActorID:    inv.ActorID(),
		ActorName:  username(inv.Actor),
		Reason:     unmuteReason,
	})

	return &Response{Content: fmt.Sprintf("✅ **%s** a été unmute avec succès.", displayName(target))}, nil
}
