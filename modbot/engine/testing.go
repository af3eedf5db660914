package engine

import (
	"log/slog"
	"time"

	"github.com/gardien-bot/gardien/modbot/auditstore"
	"github.com/gardien-bot/gardien/modbot/countstore"
	"github.com/gardien-bot/gardien/modbot/platform"

	"github.com/bwmarrin/discordgo"
)

// Identifiers used by EngineTestFixture.
const (
	TestGuildID        = "100"
	TestLogChannelID   = "200"
	TestRulesChannelID = "300"
	TestAcceptRoleID   = "400"
	TestModeratorID    = "900"
)

// Fixed wall clock used by EngineTestFixture.
var TestNow = time.Date(2024, time.March, 3, 12, 0, 0, 0, time.UTC)

// Engine wired to in-memory collaborators: a mock platform seeded with a guild, log and rules
// channels, the acceptance role, and a moderator member; an in-memory counter and audit store.
// Intentionally exported, for use in other packages.
func EngineTestFixture() (*Engine, *platform.MockClient) {
	mc := platform.NewMockClient()
	mc.InsertGuild(&discordgo.Guild{ID: TestGuildID, Name: "Le Serveur", Icon: "abc123"})
	mc.InsertChannel(&discordgo.Channel{ID: TestLogChannelID, GuildID: TestGuildID, Name: "logs"})
	mc.InsertChannel(&discordgo.Channel{ID: TestRulesChannelID, GuildID: TestGuildID, Name: "règles"})
	mc.InsertRole(TestGuildID, &discordgo.Role{ID: TestAcceptRoleID, Name: "Membre"})
	mc.InsertMember(TestGuildID, TestModerator())

	eng := NewEngine(slog.Default(), mc, countstore.NewMemCountStore(), Config{
		LogChannelID:   TestLogChannelID,
		RulesChannelID: TestRulesChannelID,
		AcceptRoleID:   TestAcceptRoleID,
	})
	eng.Audit = auditstore.NewMemAuditStore()
	eng.Clock = func() time.Time { return TestNow }
	return eng, mc
}

func TestModerator() *discordgo.Member {
	return &discordgo.Member{
		User: &discordgo.User{ID: TestModeratorID, Username: "modo"},
		Nick: "Modo",
	}
}

// Invocation from the fixture moderator, holding every permission the commands need.
func TestInvocation(command string, options map[string]string) *Invocation {
	return &Invocation{
		Command:          command,
		GuildID:          TestGuildID,
		Actor:            TestModerator(),
		ActorPermissions: discordgo.PermissionModerateMembers | discordgo.PermissionKickMembers | discordgo.PermissionManageGuild,
		BotPermissions:   discordgo.PermissionModerateMembers | discordgo.PermissionManageRoles | discordgo.PermissionSendMessages,
		Options:          options,
	}
}
