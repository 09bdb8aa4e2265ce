package report

import (
	"fmt"
	"strings"
	"time"

	"vigil/internal/store"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	colorRaid = 0xED4245
	colorSpam = 0xFEE75C
)

// Sender is the slice of discordgo.Session the reporter needs.
type Sender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Reporter posts alerts into the guild's reports channel. Delivery is
// best-effort: a missing channel or a failed send is logged and dropped,
// never propagated to the detection path.
type Reporter struct {
	session Sender
	logger  *zap.Logger
}

func NewReporter(session Sender, logger *zap.Logger) *Reporter {
	return &Reporter{session: session, logger: logger}
}

// RaidAlert notifies moderators that a raid was detected. pingIDs are user
// IDs to mention in the message body, typically moderators who opted into
// offline report pings.
func (r *Reporter) RaidAlert(cfg store.GuildConfig, user *discordgo.User, messageContent string, pingIDs []string) {
	embed := &discordgo.MessageEmbed{
		Title:     "Raid detected",
		Color:     colorRaid,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: mention(user), Inline: true},
		},
	}
	if user != nil {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Account created", Value: accountAge(user), Inline: true,
		})
	}
	if messageContent != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Message", Value: truncate(messageContent, 1024),
		})
	}
	r.send(cfg.ChannelReports, pingContent(cfg, pingIDs), embed)
}

// SpamReport posts a spam detection for moderator review, without pings.
func (r *Reporter) SpamReport(cfg store.GuildConfig, user *discordgo.User, title, messageContent string) {
	embed := &discordgo.MessageEmbed{
		Title:     title,
		Color:     colorSpam,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: mention(user), Inline: true},
		},
	}
	if messageContent != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name: "Message", Value: truncate(messageContent, 1024),
		})
	}
	r.send(cfg.ChannelReports, "", embed)
}

func (r *Reporter) send(channelID, content string, embed *discordgo.MessageEmbed) {
	if channelID == "" {
		r.logger.Warn("report dropped, no reports channel configured")
		return
	}
	data := &discordgo.MessageSend{Content: content, Embeds: []*discordgo.MessageEmbed{embed}}
	if content != "" {
		data.AllowedMentions = &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{
				discordgo.AllowedMentionTypeUsers,
				discordgo.AllowedMentionTypeRoles,
			},
		}
	}
	if _, err := r.session.ChannelMessageSendComplex(channelID, data); err != nil {
		r.logger.Warn("report send failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func pingContent(cfg store.GuildConfig, pingIDs []string) string {
	parts := make([]string, 0, len(pingIDs)+1)
	if cfg.RoleModerator != "" {
		parts = append(parts, "<@&"+cfg.RoleModerator+">")
	}
	for _, id := range pingIDs {
		parts = append(parts, "<@"+id+">")
	}
	return strings.Join(parts, " ")
}

func mention(user *discordgo.User) string {
	if user == nil {
		return "unknown"
	}
	return fmt.Sprintf("<@%s> (%s)", user.ID, user.Username)
}

func accountAge(user *discordgo.User) string {
	ts, err := discordgo.SnowflakeTimestamp(user.ID)
	if err != nil {
		return "unknown"
	}
	return ts.UTC().Format("2006-01-02 15:04 UTC")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
