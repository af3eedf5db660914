package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/gardien-bot/gardien/modbot/auditstore"
	"github.com/gardien-bot/gardien/modbot/platform"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func insertTarget(mc *platform.MockClient, id, name string) *discordgo.Member {
	m := &discordgo.Member{
		User: &discordgo.User{ID: id, Username: strings.ToLower(name), GlobalName: name},
	}
	mc.InsertMember(TestGuildID, m)
	return m
}

func auditActions(eng *Engine) []auditstore.Action {
	return eng.Audit.(*auditstore.MemAuditStore).Actions()
}

func TestMuteSuccess(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Alice")

	for _, tok := range []string{"10m", "2h", "28d"} {
		mc.Timeouts = nil
		mc.Sent = nil
		resp := eng.HandleCommand(ctx, TestInvocation("mute", map[string]string{"member": "111", "time": tok, "reason": "spam"}))
		assert.Equal(fmt.Sprintf("✅ **Alice** a été muté pour %s avec la raison : 'spam'.", tok), resp.Content)

		dur, err := ParseDuration(tok)
		assert.NoError(err)
		if assert.Equal(1, len(mc.Timeouts)) {
			assert.Equal(TestNow.Add(dur), *mc.Timeouts[0].Until)
			assert.Equal("spam", mc.Timeouts[0].Reason)
		}
		if assert.Equal(1, len(mc.Sent)) {
			assert.Equal(TestLogChannelID, mc.Sent[0].To)
			assert.Equal("🚫 Membre Muté", mc.Sent[0].Embed.Title)
			assert.Equal(tok, mc.Sent[0].Embed.Fields[1].Value)
			assert.Equal("<@900>", mc.Sent[0].Embed.Fields[3].Value)
		}
	}

	acts := auditActions(eng)
	assert.Equal(3, len(acts))
	assert.Equal(auditstore.KindMute, acts[0].Kind)
	assert.Equal("111", acts[0].TargetID)
	assert.Equal(TestModeratorID, acts[0].ActorID)
}

func TestMuteRejectsBadDuration(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Alice")

	resp := eng.HandleCommand(ctx, TestInvocation("mute", map[string]string{"member": "111", "time": "10s", "reason": "spam"}))
	assert.Equal(ErrInvalidDuration.Message, resp.Content)

	resp = eng.HandleCommand(ctx, TestInvocation("mute", map[string]string{"member": "111", "time": "29d", "reason": "spam"}))
	assert.Equal(ErrDurationTooLong.Message, resp.Content)

	resp = eng.HandleCommand(ctx, TestInvocation("mute", map[string]string{"member": "111", "time": "abcm", "reason": "spam"}))
	assert.Equal(ErrInvalidDuration.Message, resp.Content)

	assert.Empty(mc.Timeouts)
	assert.Empty(mc.Sent)
	assert.Empty(auditActions(eng))
}

func TestMuteForbidden(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Alice")

	mc.TimeoutErr = fmt.Errorf("%w: role hierarchy", platform.ErrForbidden)
	resp := eng.HandleCommand(ctx, TestInvocation("mute", map[string]string{"member": "111", "time": "1h", "reason": "spam"}))
	assert.Contains(resp.Content, "Assurez-vous que mon rôle est plus élevé")
	assert.Empty(mc.Sent)

	mc.TimeoutErr = errors.New("gateway exploded")
	resp = eng.HandleCommand(ctx, TestInvocation("mute", map[string]string{"member": "111", "time": "1h", "reason": "spam"}))
	assert.Equal("Une erreur s'est produite lors du mute : gateway exploded", resp.Content)
	assert.Empty(mc.Sent)
	assert.Empty(auditActions(eng))
}

func TestMuteWithoutLogChannel(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Alice")
	eng.Config.LogChannelID = "does-not-exist"

	resp := eng.HandleCommand(ctx, TestInvocation("mute", map[string]string{"member": "111", "time": "1h", "reason": "spam"}))
	assert.True(strings.HasPrefix(resp.Content, "✅"))
	assert.Equal(1, len(mc.Timeouts))
	assert.Empty(mc.Sent)
}

func TestMuteUnknownMember(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()

	resp := eng.HandleCommand(ctx, TestInvocation("mute", map[string]string{"member": "555", "time": "1h", "reason": "spam"}))
	assert.Equal("Ce membre est introuvable sur le serveur.", resp.Content)
	assert.Empty(mc.Timeouts)
}

func TestUnmute(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Alice")

	// not muted: informational, no mutation
	resp := eng.HandleCommand(ctx, TestInvocation("unmute", map[string]string{"member": "111"}))
	assert.Equal("**Alice** n'est pas mute.", resp.Content)
	assert.Empty(mc.Timeouts)
	assert.Empty(mc.Sent)

	// expired timeout counts as not muted
	past := TestNow.Add(-time.Minute)
	mc.Members[TestGuildID+"/111"].CommunicationDisabledUntil = &past
	resp = eng.HandleCommand(ctx, TestInvocation("unmute", map[string]string{"member": "111"}))
	assert.Equal("**Alice** n'est pas mute.", resp.Content)
	assert.Empty(mc.Timeouts)

	resp = eng.HandleCommand(ctx, TestInvocation("mute", map[string]string{"member": "111", "time": "1d", "reason": "flood"}))
	assert.True(strings.HasPrefix(resp.Content, "✅"))
	mc.Sent = nil

	resp = eng.HandleCommand(ctx, TestInvocation("unmute", map[string]string{"member": "111"}))
	assert.Equal("✅ **Alice** a été unmute avec succès.", resp.Content)
	if assert.Equal(2, len(mc.Timeouts)) {
		assert.Nil(mc.Timeouts[1].Until)
		assert.Equal("Unmute par commande", mc.Timeouts[1].Reason)
	}
	if assert.Equal(1, len(mc.Sent)) {
		assert.Equal("🔓 Membre Unmute", mc.Sent[0].Embed.Title)
	}

	acts := auditActions(eng)
	assert.Equal(2, len(acts))
	assert.Equal(auditstore.KindUnmute, acts[1].Kind)
}

func TestUnmuteForbidden(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	m := insertTarget(mc, "111", "Alice")
	until := TestNow.Add(time.Hour)
	m.CommunicationDisabledUntil = &until

	mc.TimeoutErr = platform.ErrForbidden
	resp := eng.HandleCommand(ctx, TestInvocation("unmute", map[string]string{"member": "111"}))
	assert.Equal("Je n'ai pas les permissions suffisantes pour unmute ce membre.", resp.Content)
	assert.Empty(mc.Sent)
}

func TestWarn(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Alice")

	resp := eng.HandleCommand(ctx, TestInvocation("advert", map[string]string{"member": "111", "reason": "langage"}))
	assert.Equal("✅ Un avertissement discret a été envoyé en MP à **Alice** pour : **langage**.", resp.Content)
	if assert.Equal(1, len(mc.Directs)) {
		dm := mc.Directs[0]
		assert.Equal("111", dm.To)
		assert.Contains(dm.Embed.Description, "**Modo**")
		assert.Contains(dm.Embed.Description, "**Le Serveur**")
		assert.Equal("langage", dm.Embed.Fields[0].Value)
		assert.NotNil(dm.Embed.Thumbnail)
	}

	// warnings never reach the log channel or the audit sinks
	assert.Empty(mc.Sent)
	assert.Empty(auditActions(eng))
}

func TestWarnClosedDMs(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Alice")
	mc.ClosedDMs["111"] = true

	resp := eng.HandleCommand(ctx, TestInvocation("advert", map[string]string{"member": "111", "reason": "langage"}))
	assert.Equal("Je n'ai pas pu envoyer de MP à **Alice**. Ils ont peut-être leurs MPs désactivés ou bloquent le bot.", resp.Content)
	assert.Empty(mc.Directs)
}

func TestSync(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()

	resp := eng.HandleCommand(ctx, TestInvocation("sync", nil))
	assert.Equal("✅ Commandes slash synchronisées pour ce serveur (4 commandes).", resp.Content)
	assert.Equal(4, len(mc.Commands[TestGuildID]))

	n, err := eng.SyncGlobalCommands(ctx)
	assert.NoError(err)
	assert.Equal(4, n)
	assert.Equal(4, len(mc.Commands[""]))

	mc.OverwriteErr = errors.New("rate limited")
	resp = eng.HandleCommand(ctx, TestInvocation("sync", nil))
	assert.Equal("Une erreur s'est produite lors de la synchronisation : rate limited", resp.Content)
}

func TestCommandDefinitions(t *testing.T) {
	assert := assert.New(t)
	eng, _ := EngineTestFixture()

	defs := eng.CommandDefinitions()
	names := []string{}
	for _, d := range defs {
		names = append(names, d.Name)
		assert.NotNil(d.DefaultMemberPermissions, d.Name)
		assert.False(*d.DMPermission, d.Name)
	}
	assert.Equal([]string{"advert", "mute", "sync", "unmute"}, names)
	assert.Equal(int64(discordgo.PermissionKickMembers), *defs[0].DefaultMemberPermissions)
	assert.Equal(int64(discordgo.PermissionManageGuild), *defs[2].DefaultMemberPermissions)
}

func TestPermissionInterceptor(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Alice")

	inv := TestInvocation("mute", map[string]string{"member": "111", "time": "1h", "reason": "spam"})
	inv.ActorPermissions = discordgo.PermissionKickMembers
	resp := eng.HandleCommand(ctx, inv)
	assert.Equal("Tu n'as pas les permissions nécessaires pour utiliser cette commande.", resp.Content)

	inv = TestInvocation("mute", map[string]string{"member": "111", "time": "1h", "reason": "spam"})
	inv.BotPermissions = discordgo.PermissionSendMessages
	resp = eng.HandleCommand(ctx, inv)
	assert.Equal("Il me manque : moderate_members", resp.Content)

	// administrator implies everything
	inv = TestInvocation("sync", nil)
	inv.ActorPermissions = discordgo.PermissionAdministrator
	resp = eng.HandleCommand(ctx, inv)
	assert.True(strings.HasPrefix(resp.Content, "✅"))

	resp = eng.HandleCommand(ctx, TestInvocation("ban", nil))
	assert.Equal("Une erreur inattendue s'est produite : commande inconnue : ban", resp.Content)

	assert.Empty(mc.Timeouts)
}

func TestErrorMessages(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("validation", errorKind(ErrInvalidDuration))
	assert.Equal("permission", errorKind(&PermissionError{Side: SideActor}))
	assert.Equal("delivery", errorKind(&DeliveryError{Target: "x", Err: errors.New("closed")}))
	assert.Equal("platform", errorKind(fmt.Errorf("wrapped: %w", &PlatformError{Action: "lors du test", Err: errors.New("x")})))
	assert.Equal("unexpected", errorKind(errors.New("boom")))

	assert.Equal("Il me manque : kick_members, moderate_members", errorMessage(&PermissionError{Side: SideBot, Missing: permissionList(discordgo.PermissionKickMembers | discordgo.PermissionModerateMembers)}))
	assert.Equal("Une erreur inattendue s'est produite : boom", errorMessage(errors.New("boom")))

	perr := &PermissionError{Side: SideBot, Err: platform.ErrForbidden}
	assert.True(errors.Is(perr, platform.ErrForbidden))
}

func TestMuteZeroDuration(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Alice")

	resp := eng.HandleCommand(ctx, TestInvocation("mute", map[string]string{"member": "111", "time": "0m", "reason": "test"}))
	assert.Equal("✅ **Alice** a été muté pour 0m avec la raison : 'test'.", resp.Content)
	if assert.Equal(1, len(mc.Timeouts)) {
		assert.Equal(TestNow, *mc.Timeouts[0].Until)
	}
}

func TestWarnSendFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Alice")
	mc.SendErr = errors.New("gateway unavailable")

	resp := eng.HandleCommand(ctx, TestInvocation("advert", map[string]string{"member": "111", "reason": "spam"}))
	assert.Equal("Une erreur s'est produite lors de l'envoi de l'avertissement : gateway unavailable", resp.Content)
	assert.Empty(mc.Directs)
}

func TestCommandPanicRecovered(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()

	eng.commands["boom"] = &command{
		handler: func(ctx context.Context, inv *Invocation) (*Response, error) {
			panic("nil map write")
		},
	}

	resp := eng.HandleCommand(ctx, TestInvocation("boom", nil))
	if assert.NotNil(resp) {
		assert.Equal("Une erreur inattendue s'est produite : nil map write", resp.Content)
	}

	// the engine keeps serving afterwards
	insertTarget(mc, "111", "Alice")
	resp = eng.HandleCommand(ctx, TestInvocation("unmute", map[string]string{"member": "111"}))
	assert.Equal("**Alice** n'est pas mute.", resp.Content)
}
