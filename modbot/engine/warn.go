package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/gardien-bot/gardien/modbot/platform"
)

// Sends a private warning to a member. Unlike mute and unmute, nothing is written to the log
// channel or the audit sinks.
func (eng *Engine) handleWarn(ctx context.Context, inv *Invocation) (*Response, error) {
	reason := inv.Option("reason")
	target, err := eng.targetMember(ctx, inv)
	if err != nil {
		return nil, err
	}
	guild, err := eng.Client.Guild(ctx, inv.GuildID)
	if err != nil {
		return nil, &PlatformError{Action: "lors de l'envoi de l'avertissement", Err: err}
	}

	embed := warnEmbed(target, displayName(inv.Actor), guild, reason, eng.now())
	if err := eng.Client.SendDirectEmbed(ctx, target.User.ID, embed); err != nil {
		if errors.Is(err, platform.ErrCannotMessageUser) || errors.Is(err, platform.ErrForbidden) {
			return nil, &DeliveryError{Target: displayName(target), Err: err}
		}
		return nil, &PlatformError{Action: "lors de l'envoi de l'avertissement", Err: err}
	}

	return &Response{
		Content: fmt.Sprintf("✅ Un avertissement discret a été envoyé en MP à **%s** pour : **%s**.", displayName(target), reason),
	}, nil
}
