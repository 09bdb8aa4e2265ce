package mod

import (
	"fmt"
	"time"

	"vigil/internal/store"

	"github.com/bwmarrin/discordgo"
)

const (
	colorPunish = 0xED4245
	colorLift   = 0x57F287
	colorEdit   = 0x5865F2
)

func caseEmbed(title string, target Actor, c store.Case) *discordgo.MessageEmbed {
	color := colorPunish
	switch c.Type {
	case store.CaseUnban, store.CaseUnmute, store.CaseUntimeout:
		color = colorLift
	}
	embed := &discordgo.MessageEmbed{
		Title:     title,
		Color:     color,
		Timestamp: c.Date.Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Case #%d", c.ID)},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("<@%s> (%s)", target.ID, target.Tag), Inline: true},
			{Name: "Moderator", Value: c.ModTag, Inline: true},
			{Name: "Reason", Value: c.Reason},
		},
	}
	if c.Punishment != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Punishment", Value: c.Punishment, Inline: true,
		})
	}
	if c.Until != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Until", Value: c.Until.UTC().Format("2006-01-02 15:04 UTC"), Inline: true,
		})
	}
	return embed
}

func liftWarnEmbed(target Actor, c store.Case) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:     "Warn lifted",
		Color:     colorLift,
		Timestamp: c.LiftedAt.Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Case #%d", c.ID)},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("<@%s> (%s)", target.ID, target.Tag), Inline: true},
			{Name: "Lifted by", Value: c.LiftedByTag, Inline: true},
			{Name: "Lift reason", Value: c.LiftedReason},
			{Name: "Original reason", Value: c.Reason},
		},
	}
}

func editReasonEmbed(target Actor, c store.Case) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:     "Case updated",
		Color:     colorEdit,
		Timestamp: c.Date.Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Case #%d", c.ID)},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("<@%s> (%s)", target.ID, target.Tag), Inline: true},
			{Name: "Old reason", Value: c.OldReason},
			{Name: "New reason", Value: c.Reason},
		},
	}
}

// RundownEmbed renders the three most recent cases for a user.
func RundownEmbed(target Actor, cases []store.Case) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Rundown for %s", target.Tag),
		Color: colorEdit,
	}
	if len(cases) == 0 {
		embed.Description = "No cases on record."
		return embed
	}
	for _, c := range cases {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s (case #%d)", c.Type, c.ID),
			Value: fmt.Sprintf("**Reason**: %s\n**Moderator**: %s\n**Date**: %s", c.Reason, c.ModTag, c.Date.UTC().Format("2006-01-02 15:04 UTC")),
		})
	}
	return embed
}
