package bot

import (
	"context"
	"errors"
	"time"

	"vigil/internal/mod"
	"vigil/internal/store"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// executor implements mod.Executor against the live session.
type executor struct {
	b *Bot
}

func (e *executor) Ban(guildID, userID, reason string) error {
	return e.b.session.GuildBanCreateWithReason(guildID, userID, reason, 0)
}

func (e *executor) Unban(guildID, userID, reason string) error {
	return e.b.session.GuildBanDelete(guildID, userID)
}

func (e *executor) Kick(guildID, userID, reason string) error {
	return e.b.session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (e *executor) AddRole(guildID, userID, roleID string) error {
	if roleID == "" {
		return errors.New("role not configured")
	}
	return e.b.session.GuildMemberRoleAdd(guildID, userID, roleID)
}

func (e *executor) RemoveRole(guildID, userID, roleID string) error {
	if roleID == "" {
		return errors.New("role not configured")
	}
	return e.b.session.GuildMemberRoleRemove(guildID, userID, roleID)
}

func (e *executor) Timeout(guildID, userID string, until *time.Time) error {
	return e.b.session.GuildMemberTimeout(guildID, userID, until)
}

// DM sends a direct message, reporting whether delivery worked. Closed DMs
// are a normal condition, not an error.
func (e *executor) DM(userID, content string, embed *discordgo.MessageEmbed) bool {
	channel, err := e.b.session.UserChannelCreate(userID)
	if err != nil {
		return false
	}
	data := &discordgo.MessageSend{Content: content}
	if embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{embed}
	}
	_, err = e.b.session.ChannelMessageSendComplex(channel.ID, data)
	return err == nil
}

func (e *executor) ModLog(cfg store.GuildConfig, embed *discordgo.MessageEmbed) {
	if cfg.ChannelModLogs == "" || embed == nil {
		return
	}
	_, _ = e.b.session.ChannelMessageSendEmbed(cfg.ChannelModLogs, embed)
}

// raidExecutor adapts the executor to the detector's interface, adding the
// raid-only operations.
type raidExecutor struct {
	*executor
}

func (e *raidExecutor) Ban(ctx context.Context, guildID, userID, reason string) error {
	return e.executor.Ban(guildID, userID, reason)
}

// Mute runs the full mute flow with the bot as the acting moderator. A user
// who is already muted counts as handled.
func (e *raidExecutor) Mute(ctx context.Context, guildID string, user *discordgo.User, reason string) error {
	botUser := e.b.session.State.User
	_, err := e.b.svc.Mute(ctx, guildID, mod.Actor{ID: botUser.ID, Tag: botUser.Username}, mod.Actor{ID: user.ID, Tag: user.Username}, user.Bot, 0, reason)
	if errors.Is(err, mod.ErrAlreadyMuted) {
		return nil
	}
	return err
}

// Freeze denies SendMessages for @everyone on every freezeable channel.
// Channels that are already frozen or missing are skipped silently.
func (e *raidExecutor) Freeze(ctx context.Context, cfg store.GuildConfig) {
	guildID := e.b.cfg.GuildID
	for _, channelID := range cfg.FreezeableChannels {
		channel, err := e.b.session.State.Channel(channelID)
		if err != nil {
			channel, err = e.b.session.Channel(channelID)
			if err != nil {
				continue
			}
		}
		var allow, deny int64
		for _, overwrite := range channel.PermissionOverwrites {
			if overwrite.Type == discordgo.PermissionOverwriteTypeRole && overwrite.ID == guildID {
				allow = overwrite.Allow
				deny = overwrite.Deny
				break
			}
		}
		if deny&discordgo.PermissionSendMessages != 0 {
			continue
		}
		deny |= discordgo.PermissionSendMessages
		allow &^= discordgo.PermissionSendMessages
		if err := e.b.session.ChannelPermissionSet(channelID, guildID, discordgo.PermissionOverwriteTypeRole, allow, deny); err != nil {
			e.b.logger.Warn("channel freeze failed", zap.String("channel_id", channelID), zap.Error(err))
		}
	}
}

func (e *raidExecutor) ReportRaid(cfg store.GuildConfig, user *discordgo.User, messageContent string) {
	e.b.reporter.RaidAlert(cfg, user, messageContent, e.b.offlinePingOptIns())
}

func (e *raidExecutor) ReportSpam(cfg store.GuildConfig, user *discordgo.User, title, messageContent string) {
	e.b.reporter.SpamReport(cfg, user, title, messageContent)
}

func (b *Bot) offlinePingOptIns() []string {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ids, err := b.store.Users.OfflinePingOptIns(ctx)
	if err != nil {
		b.logger.Warn("offline ping lookup failed", zap.Error(err))
		return nil
	}
	return ids
}
