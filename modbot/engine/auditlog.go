package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gardien-bot/gardien/modbot/auditstore"

	"github.com/bwmarrin/discordgo"
)

const (
	colorRed    = 0xe74c3c
	colorBlue   = 0x3498db
	colorGreen  = 0x2ecc71
	colorOrange = 0xe67e22
)

// Posts an embed to the configured log channel.
//
// Returns false only when the log channel could not be resolved; a failed send is logged but
// still counts as resolved.
func (eng *Engine) postLog(ctx context.Context, embed *discordgo.MessageEmbed) bool {
	if eng.Config.LogChannelID == "" {
		return false
	}
	if _, err := eng.Client.Channel(ctx, eng.Config.LogChannelID); err != nil {
		eng.Logger.Warn("log channel not resolvable", "channel", eng.Config.LogChannelID, "err", err)
		return false
	}
	if err := eng.Client.SendEmbed(ctx, eng.Config.LogChannelID, embed); err != nil {
		eng.Logger.Error("failed to post to log channel", "channel", eng.Config.LogChannelID, "err", err)
		logPostErrors.Inc()
	}
	return true
}

// Mirrors an action to the optional audit store and notifier. Failures are logged, never returned:
// the platform mutation already happened.
func (eng *Engine) recordAction(ctx context.Context, act *auditstore.Action) {
	if eng.Audit != nil {
		if err := eng.Audit.Record(ctx, act); err != nil {
			eng.Logger.Error("failed to record audit action", "kind", act.Kind, "target", act.TargetID, "err", err)
		}
	}
	if eng.Notifier != nil {
		if err := eng.Notifier.SendAction(ctx, act); err != nil {
			eng.Logger.Error("sending action notification", "kind", act.Kind, "err", err)
		}
	}
}

func muteEmbed(target, actor *discordgo.Member, token, reason string, at time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🚫 Membre Muté",
		Description: fmt.Sprintf("**%s** a été muté.", displayName(target)),
		Color:       colorRed,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Utilisateur", Value: mention(target), Inline: true},
			{Name: "Durée", Value: token, Inline: true},
			{Name: "Raison", Value: reason, Inline: false},
			{Name: "Modérateur", Value: mention(actor), Inline: true},
		},
		Thumbnail: avatarThumbnail(target),
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Action effectuée par %s", username(actor))},
		Timestamp: at.UTC().Format(time.RFC3339),
	}
}

func unmuteEmbed(target, actor *discordgo.Member, at time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "🔓 Membre Unmute",
		Description: fmt.Sprintf("**%s** a été unmute.", displayName(target)),
		Color:       colorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Utilisateur", Value: mention(target), Inline: true},
			{Name: "Modérateur", Value: mention(actor), Inline: true},
		},
		Thumbnail: avatarThumbnail(target),
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Action effectuée par %s", username(actor))},
		Timestamp: at.UTC().Format(time.RFC3339),
	}
}

func acceptEmbed(member *discordgo.Member, number int, at time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "✅ Règles Acceptées",
		Description: fmt.Sprintf("**%s** a accepté les règles du serveur.", displayName(member)),
		Color:       colorGreen,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Utilisateur", Value: mention(member), Inline: true},
			{Name: "Numéro d'acceptation", Value: fmt.Sprintf("#%d", number), Inline: true},
		},
		Thumbnail: avatarThumbnail(member),
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("ID Utilisateur: %s", member.User.ID)},
		Timestamp: at.UTC().Format(time.RFC3339),
	}
}

func warnEmbed(target *discordgo.Member, sender string, guild *discordgo.Guild, reason string, at time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "⚠️ Avertissement Serveur ⚠️",
		Description: fmt.Sprintf("Bonjour %s,\n\nTu as reçu un avertissement de la part de **%s** sur le serveur **%s**.", displayName(target), sender, guild.Name),
		Color:       colorOrange,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Raison de l'avertissement", Value: reason, Inline: false},
		},
		Footer:    &discordgo.MessageEmbedFooter{Text: "Merci de bien vouloir respecter les règles du serveur."},
		Timestamp: at.UTC().Format(time.RFC3339),
	}
	if guild.Icon != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: discordgo.EndpointGuildIcon(guild.ID, guild.Icon)}
	}
	return embed
}
