package gateway

import (
	"github.com/gardien-bot/gardien/modbot/engine"

	"github.com/bwmarrin/discordgo"
)

// Converts a slash-command interaction into an engine invocation. Returns false for any other
// kind of interaction.
func invocationFromInteraction(i *discordgo.Interaction) (*engine.Invocation, bool) {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return nil, false
	}
	data := i.ApplicationCommandData()

	inv := &engine.Invocation{
		Command:        data.Name,
		GuildID:        i.GuildID,
		BotPermissions: i.AppPermissions,
		Options:        make(map[string]string, len(data.Options)),
	}
	if i.Member != nil {
		inv.Actor = i.Member
		inv.ActorPermissions = i.Member.Permissions
	} else if i.User != nil {
		// direct message context: no guild permissions
		inv.Actor = &discordgo.Member{User: i.User}
	}

	for _, opt := range data.Options {
		switch opt.Type {
		case discordgo.ApplicationCommandOptionUser:
			inv.Options[opt.Name] = opt.UserValue(nil).ID
		case discordgo.ApplicationCommandOptionString:
			inv.Options[opt.Name] = opt.StringValue()
		}
	}
	return inv, true
}

func reactionFromEvent(r *discordgo.MessageReactionAdd) engine.ReactionEvent {
	return engine.ReactionEvent{
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     r.Emoji.Name,
		Member:    r.Member,
	}
}
