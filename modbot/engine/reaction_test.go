package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/gardien-bot/gardien/modbot/auditstore"
	"github.com/gardien-bot/gardien/modbot/countstore"
	"github.com/gardien-bot/gardien/modbot/platform"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func acceptEvent(userID string) ReactionEvent {
	return ReactionEvent{
		GuildID:   TestGuildID,
		ChannelID: TestRulesChannelID,
		MessageID: "777",
		UserID:    userID,
		Emoji:     AcceptEmoji,
	}
}

func counterValue(t *testing.T, eng *Engine) int {
	st, err := eng.Counters.Load(context.Background())
	assert.NoError(t, err)
	return st.AcceptanceNumber
}

func TestReactionAccept(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Martin")
	assert.NoError(eng.Counters.Save(ctx, countstore.State{AcceptanceNumber: 41}))

	assert.NoError(eng.HandleReactionAdd(ctx, acceptEvent("111")))
	assert.Equal(42, counterValue(t, eng))
	if assert.Equal(1, len(mc.RoleGrants)) {
		assert.Equal(TestAcceptRoleID, mc.RoleGrants[0].RoleID)
		assert.Equal("111", mc.RoleGrants[0].UserID)
	}
	if assert.Equal(1, len(mc.Sent)) {
		assert.Equal(TestLogChannelID, mc.Sent[0].To)
		assert.Equal("✅ Règles Acceptées", mc.Sent[0].Embed.Title)
		assert.Equal("#42", mc.Sent[0].Embed.Fields[1].Value)
		assert.Equal("ID Utilisateur: 111", mc.Sent[0].Embed.Footer.Text)
	}

	// same reaction again: already accepted, nothing happens
	assert.NoError(eng.HandleReactionAdd(ctx, acceptEvent("111")))
	assert.Equal(42, counterValue(t, eng))
	assert.Equal(1, len(mc.RoleGrants))
	assert.Equal(1, len(mc.Sent))

	acts := auditActions(eng)
	if assert.Equal(1, len(acts)) {
		assert.Equal(auditstore.KindAccept, acts[0].Kind)
		assert.Equal(42, acts[0].AcceptanceNumber)
	}
}

func TestReactionIgnored(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Martin")

	wrongChannel := acceptEvent("111")
	wrongChannel.ChannelID = TestLogChannelID
	wrongEmoji := acceptEvent("111")
	wrongEmoji.Emoji = "👍"
	noGuild := acceptEvent("111")
	noGuild.GuildID = ""
	unknownMember := acceptEvent("222")

	for _, evt := range []ReactionEvent{wrongChannel, wrongEmoji, noGuild, unknownMember} {
		assert.NoError(eng.HandleReactionAdd(ctx, evt))
	}
	assert.Equal(0, counterValue(t, eng))
	assert.Empty(mc.RoleGrants)
	assert.Empty(mc.Sent)
}

func TestReactionIgnoresBots(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	bot := &discordgo.Member{User: &discordgo.User{ID: "333", Username: "otherbot", Bot: true}}
	mc.InsertMember(TestGuildID, bot)

	assert.NoError(eng.HandleReactionAdd(ctx, acceptEvent("333")))

	// payload snapshot short-circuits before any lookup
	evt := acceptEvent("333")
	evt.Member = bot
	assert.NoError(eng.HandleReactionAdd(ctx, evt))

	assert.Equal(0, counterValue(t, eng))
	assert.Empty(mc.RoleGrants)
}

func TestReactionGrantFailure(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Martin")

	mc.AddRoleErr = fmt.Errorf("%w: role above bot", platform.ErrForbidden)
	err := eng.HandleReactionAdd(ctx, acceptEvent("111"))
	assert.True(errors.Is(err, platform.ErrForbidden))

	// no counter mutation, nothing posted
	assert.Equal(0, counterValue(t, eng))
	assert.Empty(mc.Sent)
	assert.Empty(auditActions(eng))
}

func TestReactionMissingRole(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Martin")
	eng.Config.AcceptRoleID = "404"

	err := eng.HandleReactionAdd(ctx, acceptEvent("111"))
	assert.True(errors.Is(err, platform.ErrNotFound))
	assert.Equal(0, counterValue(t, eng))
	assert.Empty(mc.RoleGrants)
}

func TestReactionFallbackToRulesChannel(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Martin")
	eng.Config.LogChannelID = "gone"

	assert.NoError(eng.HandleReactionAdd(ctx, acceptEvent("111")))
	if assert.Equal(1, len(mc.Sent)) {
		assert.Equal(TestRulesChannelID, mc.Sent[0].To)
		assert.Equal("**Martin** a accepté les règles du serveur. #1", mc.Sent[0].Text)
	}
}

func TestReactionConcurrentDuplicates(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Martin")
	insertTarget(mc, "112", "Léa")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			assert.NoError(eng.HandleReactionAdd(ctx, acceptEvent(uid)))
		}([]string{"111", "112"}[i%2])
	}
	wg.Wait()

	// each member counted exactly once
	assert.Equal(2, counterValue(t, eng))
	assert.Equal(2, len(mc.RoleGrants))
}

// blocks the first notification until released
type stallingNotifier struct {
	once     sync.Once
	entered  chan struct{}
	release  chan struct{}
	lk       sync.Mutex
	received []int
}

func (n *stallingNotifier) SendAction(ctx context.Context, act *auditstore.Action) error {
	first := false
	n.once.Do(func() { first = true })
	if first {
		close(n.entered)
		<-n.release
	}
	n.lk.Lock()
	defer n.lk.Unlock()
	n.received = append(n.received, act.AcceptanceNumber)
	return nil
}

func TestReactionSlowNotifierDoesNotBlockOthers(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	eng, mc := EngineTestFixture()
	insertTarget(mc, "111", "Martin")
	insertTarget(mc, "112", "Léa")
	n := &stallingNotifier{entered: make(chan struct{}), release: make(chan struct{})}
	eng.Notifier = n

	done := make(chan error)
	go func() {
		done <- eng.HandleReactionAdd(ctx, acceptEvent("111"))
	}()
	<-n.entered

	// the first acceptance is stuck in its notification; the second one still goes through
	assert.NoError(eng.HandleReactionAdd(ctx, acceptEvent("112")))
	assert.Equal(2, counterValue(t, eng))

	close(n.release)
	assert.NoError(<-done)
	assert.ElementsMatch([]int{1, 2}, n.received)
}
