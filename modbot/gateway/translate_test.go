package gateway

import (
	"testing"

	"github.com/gardien-bot/gardien/modbot/engine"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestInvocationFromInteraction(t *testing.T) {
	assert := assert.New(t)

	i := &discordgo.Interaction{
		ID:             "1",
		Type:           discordgo.InteractionApplicationCommand,
		GuildID:        "100",
		AppPermissions: discordgo.PermissionModerateMembers,
		Member: &discordgo.Member{
			User:        &discordgo.User{ID: "900", Username: "modo"},
			Permissions: discordgo.PermissionModerateMembers | discordgo.PermissionKickMembers,
		},
		Data: discordgo.ApplicationCommandInteractionData{
			Name: "mute",
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "member", Type: discordgo.ApplicationCommandOptionUser, Value: "111"},
				{Name: "time", Type: discordgo.ApplicationCommandOptionString, Value: "10m"},
				{Name: "reason", Type: discordgo.ApplicationCommandOptionString, Value: "spam"},
			},
		},
	}

	inv, ok := invocationFromInteraction(i)
	assert.True(ok)
	assert.Equal("mute", inv.Command)
	assert.Equal("100", inv.GuildID)
	assert.Equal("900", inv.ActorID())
	assert.Equal(int64(discordgo.PermissionModerateMembers|discordgo.PermissionKickMembers), inv.ActorPermissions)
	assert.Equal(int64(discordgo.PermissionModerateMembers), inv.BotPermissions)
	assert.Equal("111", inv.Option("member"))
	assert.Equal("10m", inv.Option("time"))
	assert.Equal("spam", inv.Option("reason"))
	assert.Equal("", inv.Option("missing"))
}

func TestInvocationFromOtherInteractions(t *testing.T) {
	assert := assert.New(t)

	_, ok := invocationFromInteraction(&discordgo.Interaction{Type: discordgo.InteractionPing})
	assert.False(ok)
	_, ok = invocationFromInteraction(&discordgo.Interaction{Type: discordgo.InteractionMessageComponent})
	assert.False(ok)
	_, ok = invocationFromInteraction(nil)
	assert.False(ok)
}

func TestInvocationWithoutMember(t *testing.T) {
	assert := assert.New(t)

	i := &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		User: &discordgo.User{ID: "900"},
		Data: discordgo.ApplicationCommandInteractionData{Name: "sync"},
	}
	inv, ok := invocationFromInteraction(i)
	assert.True(ok)
	assert.Equal("900", inv.ActorID())
	assert.Equal(int64(0), inv.ActorPermissions)
}

func TestReactionFromEvent(t *testing.T) {
	assert := assert.New(t)

	r := &discordgo.MessageReactionAdd{
		MessageReaction: &discordgo.MessageReaction{
			UserID:    "111",
			MessageID: "777",
			ChannelID: "300",
			GuildID:   "100",
			Emoji:     discordgo.Emoji{Name: engine.AcceptEmoji},
		},
	}
	evt := reactionFromEvent(r)
	assert.Equal(engine.ReactionEvent{
		GuildID:   "100",
		ChannelID: "300",
		MessageID: "777",
		UserID:    "111",
		Emoji:     engine.AcceptEmoji,
	}, evt)
}

func TestGatewayDispatchesToEngine(t *testing.T) {
	assert := assert.New(t)

	eng, mc := engine.EngineTestFixture()
	mc.InsertMember(engine.TestGuildID, &discordgo.Member{User: &discordgo.User{ID: "111", Username: "martin"}})

	s, err := discordgo.New("Bot test-token")
	if !assert.NoError(err) {
		return
	}
	g := New(s, eng, nil)
	assert.Equal(Intents, s.Identify.Intents)

	g.onReactionAdd(s, &discordgo.MessageReactionAdd{
		MessageReaction: &discordgo.MessageReaction{
			UserID:    "111",
			ChannelID: engine.TestRulesChannelID,
			GuildID:   engine.TestGuildID,
			Emoji:     discordgo.Emoji{Name: engine.AcceptEmoji},
		},
	})
	assert.Equal(1, len(mc.RoleGrants))
}
