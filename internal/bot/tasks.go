package bot

import (
	"context"
	"fmt"
	"time"

	"vigil/internal/store"

	"go.uber.org/zap"
)

// registerTaskCallbacks binds the scheduler's job kinds to their reversal
// actions. All of them treat a missing guild, member or role as already
// resolved.
func (b *Bot) registerTaskCallbacks() {
	b.sched.Register(store.JobUnmute, b.runUnmute)
	b.sched.Register(store.JobUntimeout, b.runUntimeout)
	b.sched.Register(store.JobRemoveBirthday, b.runRemoveBirthday)
	b.sched.Register(store.JobReminder, b.runReminder)
}

func (b *Bot) runUnmute(ctx context.Context, job store.Job) {
	cfg, err := b.guildConfig(ctx)
	if err != nil {
		b.logger.Error("unmute job: guild config load failed", zap.Error(err))
		return
	}
	exec := &executor{b: b}
	_ = exec.RemoveRole(b.cfg.GuildID, job.UserID, cfg.RoleMute)
	if err := b.store.Users.SetMuted(ctx, job.UserID, false); err != nil {
		b.logger.Error("unmute job: profile update failed", zap.String("user_id", job.UserID), zap.Error(err))
	}

	id, err := b.store.Guilds.IncCaseID(ctx, b.cfg.GuildID)
	if err != nil {
		b.logger.Error("unmute job: case id increment failed", zap.Error(err))
		return
	}
	botUser := b.session.State.User
	c := store.Case{
		ID:     id,
		Type:   store.CaseUnmute,
		Date:   time.Now(),
		ModID:  botUser.ID,
		ModTag: botUser.Username,
		Reason: "Temporary mute expired.",
	}
	if err := b.store.Cases.Append(ctx, job.UserID, c); err != nil {
		b.logger.Error("unmute job: case append failed", zap.String("user_id", job.UserID), zap.Error(err))
	}
	_ = exec.DM(job.UserID, "Your mute expired. Welcome back!", nil)
}

func (b *Bot) runUntimeout(ctx context.Context, job store.Job) {
	exec := &executor{b: b}
	_ = exec.Timeout(b.cfg.GuildID, job.UserID, nil)
	if !exec.DM(job.UserID, "Your timeout expired.", nil) {
		b.botspamMention(ctx, job.UserID, "your timeout expired.")
	}
}

func (b *Bot) runRemoveBirthday(ctx context.Context, job store.Job) {
	cfg, err := b.guildConfig(ctx)
	if err != nil {
		b.logger.Error("birthday job: guild config load failed", zap.Error(err))
		return
	}
	_ = (&executor{b: b}).RemoveRole(b.cfg.GuildID, job.UserID, cfg.RoleBirthday)
}

func (b *Bot) runReminder(ctx context.Context, job store.Job) {
	text := fmt.Sprintf("Here's your reminder: %s", job.Payload)
	if !(&executor{b: b}).DM(job.UserID, text, nil) {
		b.botspamMention(ctx, job.UserID, text)
	}
}

// botspamMention is the fallback for closed DMs: ping the user in the
// botspam channel instead.
func (b *Bot) botspamMention(ctx context.Context, userID, text string) {
	cfg, err := b.guildConfig(ctx)
	if err != nil || cfg.ChannelBotspam == "" {
		return
	}
	_, _ = b.session.ChannelMessageSend(cfg.ChannelBotspam, fmt.Sprintf("<@%s> %s", userID, text))
}
