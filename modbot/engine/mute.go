package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/gardien-bot/gardien/modbot/auditstore"
	"github.com/gardien-bot/gardien/modbot/platform"
)

func (eng *Engine) handleMute(ctx context.Context, inv *Invocation) (*Response, error) {
	token := inv.Option("time")
	reason := inv.Option("reason")

	dur, err := ParseDuration(token)
	if err != nil {
		return nil, err
	}
	target, err := eng.targetMember(ctx, inv)
	if err != nil {
		return nil, err
	}

	issued := eng.now()
	until := issued.Add(dur)
	if err := eng.Client.TimeoutMember(ctx, inv.GuildID, target.User.ID, &until, reason); err != nil {
		if errors.Is(err, platform.ErrForbidden) {
			return nil, &PermissionError{
				Side:    SideBot,
				Message: "Je n'ai pas les permissions suffisantes pour mute ce membre. Assurez-vous que mon rôle est plus élevé que celui du membre.",
				Err:     err,
			}
		}
		return nil, &PlatformError{Action: "lors du mute", Err: err}
	}

	eng.postLog(ctx, muteEmbed(target, inv.Actor, token, reason, issued))
	eng.recordAction(ctx, &auditstore.Action{
		CreatedAt:  issued,
		Kind:       auditstore.KindMute,
		GuildID:    inv.GuildID,
		TargetID:   target.User.ID,
		TargetName: displayName(target),
		ActorID:    inv.ActorID(),
		ActorName:  username(inv.Actor),
		Duration:   token,
		Reason:     reason,
	})

	return &Response{
		Content: fmt.Sprintf("✅ **%s** a été muté pour %s avec la raison : '%s'.", displayName(target), token, reason),
	}, nil
}
