package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"vigil/internal/mod"
	"vigil/internal/perms"
	"vigil/internal/store"
)

func (b *Bot) registerCommands() error {
	userOpt := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: desc,
			Required:    true,
		}
	}
	reasonOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Reason for the action",
		Required:    true,
	}
	caseOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "case_id",
		Description: "Case number",
		Required:    true,
	}

	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "warn",
			Description: "Warn a member",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("Member to warn"), reasonOpt},
		},
		{
			Name:        "liftwarn",
			Description: "Mark a warn as lifted",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("Member the warn belongs to"), caseOpt, reasonOpt},
		},
		{
			Name:        "editreason",
			Description: "Edit the reason of a case",
			Options: []*discordgo.ApplicationCommandOption{
				userOpt("Member the case belongs to"), caseOpt,
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "New reason",
					Required:    true,
				},
			},
		},
		{
			Name:        "kick",
			Description: "Kick a member",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("Member to kick"), reasonOpt},
		},
		{
			Name:        "ban",
			Description: "Ban a user",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("User to ban"), reasonOpt},
		},
		{
			Name:        "unban",
			Description: "Unban a user",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("User to unban"), reasonOpt},
		},
		{
			Name:        "mute",
			Description: "Mute a member, optionally for a limited time",
			Options: []*discordgo.ApplicationCommandOption{
				userOpt("Member to mute"),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "duration",
					Description: "How long, e.g. 30m or 12h. Omit for a permanent mute.",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Reason for the mute",
				},
			},
		},
		{
			Name:        "unmute",
			Description: "Unmute a member",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("Member to unmute"), reasonOpt},
		},
		{
			Name:        "timeout",
			Description: "Time a member out",
			Options: []*discordgo.ApplicationCommandOption{
				userOpt("Member to time out"),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "duration",
					Description: "How long, e.g. 30m or 12h",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "reason",
					Description: "Reason for the timeout",
				},
			},
		},
		{
			Name:        "untimeout",
			Description: "Remove a member's timeout",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("Member to free"), reasonOpt},
		},
		{
			Name:        "rundown",
			Description: "Show the most recent cases for a user",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("User to look up")},
		},
		{
			Name:        "transferprofile",
			Description: "Move cases and karma from an old account to a new one",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "old",
					Description: "Old account",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "new",
					Description: "New account",
					Required:    true,
				},
			},
		},
		{
			Name:        "birthday",
			Description: "Give a member the birthday role until midnight",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("Birthday member")},
		},
		{
			Name:        "karma",
			Description: "Give or take karma",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "give",
					Description: "Give karma to a member",
					Options:     karmaArgs(),
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "take",
					Description: "Take karma from a member",
					Options:     karmaArgs(),
				},
			},
		},
		{
			Name:        "remindme",
			Description: "Get a DM reminder later",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "duration",
					Description: "How long from now, e.g. 45m or 6h",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "text",
					Description: "What to remind you about",
					Required:    true,
				},
			},
		},
		{
			Name:        "spammode",
			Description: "Toggle banning of raid-suspicious accounts created today",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "enabled",
					Description: "Whether accounts created today count toward join cohorts",
					Required:    true,
				},
			},
		},
		{
			Name:        "filter",
			Description: "Manage the word filter",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Add a filtered word",
					Options: []*discordgo.ApplicationCommandOption{
						wordArg("Word to filter"),
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "bypass",
							Description: "Permission level that bypasses this word",
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "notify",
							Description: "Report uses to the reports channel",
						},
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "false_positive",
							Description: "Only match the word as a whole token",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a filtered word",
					Options:     []*discordgo.ApplicationCommandOption{wordArg("Word to remove")},
				},
			},
		},
		{
			Name:        "raidphrase",
			Description: "Manage instant-ban raid phrases",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Add a raid phrase",
					Options:     []*discordgo.ApplicationCommandOption{wordArg("Phrase to ban on sight")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a raid phrase",
					Options:     []*discordgo.ApplicationCommandOption{wordArg("Phrase to remove")},
				},
			},
		},
		{
			Name:        "offlineping",
			Description: "Opt in or out of raid alert pings",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "enabled",
					Description: "Ping me on raid alerts",
					Required:    true,
				},
			},
		},
		{
			Name:        "verify",
			Description: "Exempt a member from raid heuristics",
			Options:     []*discordgo.ApplicationCommandOption{userOpt("Member to verify")},
		},
		{
			Name:        "tag",
			Description: "Canned responses",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "get",
					Description: "Post a tag",
					Options:     []*discordgo.ApplicationCommandOption{nameArg("Tag name")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Create or replace a tag",
					Options: []*discordgo.ApplicationCommandOption{
						nameArg("Tag name"),
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "content",
							Description: "Tag body",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Delete a tag",
					Options:     []*discordgo.ApplicationCommandOption{nameArg("Tag name")},
				},
			},
		},
	}

	appID := b.session.State.User.ID
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, commands); err != nil {
		return fmt.Errorf("register commands: %w", err)
	}
	b.logger.Info("registered commands", zap.Int("count", len(commands)))
	return nil
}

func karmaArgs() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "Member to adjust",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "amount",
			Description: "1 to 3 points",
			Required:    true,
		},
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "reason",
			Description: "Why",
			Required:    true,
		},
	}
}

func wordArg(desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "word",
		Description: desc,
		Required:    true,
	}
}

func nameArg(desc string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "name",
		Description: desc,
		Required:    true,
	}
}

type cmdOptions []*discordgo.ApplicationCommandInteractionDataOption

func (o cmdOptions) byName() map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(o))
	for _, opt := range o {
		m[opt.Name] = opt
	}
	return m
}

func (b *Bot) respond(interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = b.session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = b.session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

func (b *Bot) respondError(interaction *discordgo.InteractionCreate, content string) {
	b.respond(interaction, content, true)
}

// requireLevel answers whether the invoking member may run the command and
// responds with a refusal when they may not.
func (b *Bot) requireLevel(interaction *discordgo.InteractionCreate, level int) bool {
	if b.memberLevel(interaction.Member) >= level {
		return true
	}
	b.respondError(interaction, fmt.Sprintf("That command needs: %s.", perms.LevelName(level)))
	return false
}

// targetOutranks refuses moderation of a member whose level is at or above
// the invoker's.
func (b *Bot) targetOutranks(interaction *discordgo.InteractionCreate, target *discordgo.User) bool {
	member := b.memberForUser(target.ID)
	if member == nil {
		return false
	}
	if member.User == nil {
		member.User = target
	}
	if b.memberLevel(member) < b.memberLevel(interaction.Member) {
		return false
	}
	b.respondError(interaction, "You can't use that command on this member.")
	return true
}

func (b *Bot) invokerActor(interaction *discordgo.InteractionCreate) mod.Actor {
	return actorFor(interaction.Member.User)
}

func actorFor(user *discordgo.User) mod.Actor {
	return mod.Actor{ID: user.ID, Tag: user.String()}
}

func errText(err error) string {
	switch {
	case errors.Is(err, mod.ErrSelfTarget):
		return "You can't run that command on yourself."
	case errors.Is(err, mod.ErrBotTarget):
		return "You can't run that command on bots."
	case errors.Is(err, mod.ErrAlreadyMuted):
		return "That member is already muted."
	case errors.Is(err, mod.ErrNotMuted):
		return "That member is not muted."
	case errors.Is(err, mod.ErrCaseNotFound):
		return "No case with that number."
	case errors.Is(err, mod.ErrNotAWarn):
		return "That case is not a warn."
	case errors.Is(err, mod.ErrAlreadyLifted):
		return "That warn was already lifted."
	case errors.Is(err, mod.ErrKarmaRange):
		return "Karma amount must be between 1 and 3."
	case errors.Is(err, store.ErrDuplicateWord):
		return "That word is already on the list."
	case errors.Is(err, store.ErrWordNotFound):
		return "That word is not on the list."
	case errors.Is(err, store.ErrTagNotFound):
		return "No tag with that name."
	}
	return "Something went wrong: " + err.Error()
}

func (b *Bot) handleWarn(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Moderator) {
		return
	}
	opts := options.byName()
	target := opts["user"].UserValue(b.session)
	if b.targetOutranks(interaction, target) {
		return
	}
	res, err := b.svc.Warn(ctx, interaction.GuildID, b.invokerActor(interaction), actorFor(target), target.Bot, opts["reason"].StringValue())
	if err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	b.respondEmbed(interaction, res.Embed, false)
}

func (b *Bot) handleLiftWarn(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Moderator) {
		return
	}
	opts := options.byName()
	target := opts["user"].UserValue(b.session)
	res, err := b.svc.LiftWarn(ctx, interaction.GuildID, b.invokerActor(interaction), actorFor(target), opts["case_id"].IntValue(), opts["reason"].StringValue())
	if err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	b.respondEmbed(interaction, res.Embed, false)
}

func (b *Bot) handleEditReason(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Moderator) {
		return
	}
	opts := options.byName()
	target := opts["user"].UserValue(b.session)
	res, err := b.svc.EditReason(ctx, interaction.GuildID, b.invokerActor(interaction), actorFor(target), opts["case_id"].IntValue(), opts["reason"].StringValue())
	if err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	b.respondEmbed(interaction, res.Embed, false)
}

func (b *Bot) handleKick(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Moderator) {
		return
	}
	opts := options.byName()
	target := opts["user"].UserValue(b.session)
	if b.targetOutranks(interaction, target) {
		return
	}
	res, err := b.svc.Kick(ctx, interaction.GuildID, b.invokerActor(interaction), actorFor(target), target.Bot, opts["reason"].StringValue())
	if err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	b.respondEmbed(interaction, res.Embed, false)
}

func (b *Bot) handleBan(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Moderator) {
		return
	}
	opts := options.byName()
	target := opts["user"].UserValue(b.session)
	if b.targetOutranks(interaction, target) {
		return
	}
	res, err := b.svc.Ban(ctx, interaction.GuildID, b.invokerActor(interaction), actorFor(target), target.Bot, opts["reason"].StringValue())
	if err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	b.respondEmbed(interaction, res.Embed, false)
}

func (b *Bot) handleUnban(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Moderator) {
		return
	}
	opts := options.byName()
	target := opts["user"].UserValue(b.session)
	res, err := b.svc.Unban(ctx, interaction.GuildID, b.invokerActor(interaction), actorFor(target), opts["reason"].StringValue())
	if err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	b.respondEmbed(interaction, res.Embed, false)
}

func (b *Bot) handleMute(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Moderator) {
		return
	}
	opts := options.byName()
	target := opts["user"].UserValue(b.session)
	if b.targetOutranks(interaction, target) {
		return
	}
	var dur time.Duration
	if opt, ok := opts["duration"]; ok {
		parsed, err := time.ParseDuration(opt.StringValue())
		if err != nil || parsed <= 0 {
			b.respondError(interaction, "Invalid duration. Use something like 30m or 12h.")
			return
		}
		dur = parsed
	}
	reason := "No reason."
	if opt, ok := opts["reason"]; ok {
		reason = opt.StringValue()
	}
	res, err := b.svc.Mute(ctx, interaction.GuildID, b.invokerActor(interaction), actorFor(target), target.Bot, dur, reason)
	if err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	b.respondEmbed(interaction, res.Embed, false)
}

func (b *Bot) handleUnmute(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Moderator) {
		return
	}
	opts := options.byName()
	target := opts["user"].UserValue(b.session)
	res, err := b.svc.Unmute(ctx, interaction.GuildID, b.invokerActor(interaction), actorFor(target), opts["reason"].StringValue())
	if err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	b.respondEmbed(interaction, res.Embed, false)
}

func (b *Bot) handleTimeout(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Moderator) {
		return
	}
	opts := options.byName()
	target := opts["user"].UserValue(b.session)
	if b.targetOutranks(interaction, target) {
		return
	}
	dur, err := time.ParseDuration(opts["duration"].StringValue())
	if err != nil || dur <= 0 {
		b.respondError(interaction, "Invalid duration. Use something like 30m or 12h.")
		return
	}
	reason := "No reason."
	if opt, ok := opts["reason"]; ok {
		reason = opt.StringValue()
	}
	res, err := b.svc.Timeout(ctx, interaction.GuildID, b.invokerActor(interaction), actorFor(target), target.Bot, dur, reason)
	if err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	b.respondEmbed(interaction, res.Embed, false)
}

func (b *Bot) handleUntimeout(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Moderator) {
		return
	}
	opts := options.byName()
	target := opts["user"].UserValue(b.session)
	res, err := b.svc.Untimeout(ctx, interaction.GuildID, b.invokerActor(interaction), actorFor(target), opts["reason"].StringValue())
	if err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	b.respondEmbed(interaction, res.Embed, false)
}

func (b *Bot) handleRundown(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Moderator) {
		return
	}
	target := options.byName()["user"].UserValue(b.session)
	cases, err := b.svc.Rundown(ctx, target.ID)
	if err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	b.respondEmbed(interaction, mod.RundownEmbed(actorFor(target), cases), true)
}

func (b *Bot) handleTransferProfile(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Admin) {
		return
	}
	opts := options.byName()
	oldUser := opts["old"].UserValue(b.session)
	newUser := opts["new"].UserValue(b.session)
	count, err := b.svc.TransferProfile(ctx, oldUser.ID, newUser.ID)
	if err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	b.respond(interaction, fmt.Sprintf("Moved %d cases from %s to %s.", count, oldUser.Mention(), newUser.Mention()), false)
}

func (b *Bot) handleBirthday(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Moderator) {
		return
	}
	target := options.byName()["user"].UserValue(b.session)
	if err := b.svc.Birthday(ctx, interaction.GuildID, target.ID, time.Now()); err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	b.respond(interaction, fmt.Sprintf("Happy birthday, %s!", target.Mention()), false)
}

func (b *Bot) handleKarma(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Trusted) {
		return
	}
	sub := options[0]
	opts := cmdOptions(sub.Options).byName()
	target := opts["user"].UserValue(b.session)
	amount := opts["amount"].IntValue()
	reason := opts["reason"].StringValue()

	var score int64
	var err error
	switch sub.Name {
	case "give":
		score, err = b.svc.GiveKarma(ctx, b.invokerActor(interaction), actorFor(target), target.Bot, amount, reason)
	case "take":
		score, err = b.svc.TakeKarma(ctx, b.invokerActor(interaction), actorFor(target), target.Bot, amount, reason)
	default:
		return
	}
	if err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	b.respond(interaction, fmt.Sprintf("%s now has %d karma.", target.Mention(), score), false)
}

func (b *Bot) handleRemindMe(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	opts := options.byName()
	dur, err := time.ParseDuration(opts["duration"].StringValue())
	if err != nil || dur <= 0 {
		b.respondError(interaction, "Invalid duration. Use something like 45m or 6h.")
		return
	}
	text := opts["text"].StringValue()
	if err := b.sched.Schedule(ctx, store.JobReminder, interaction.Member.User.ID, time.Now().Add(dur), text); err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	b.respond(interaction, fmt.Sprintf("Alright, I'll remind you in %s.", dur), true)
}

func (b *Bot) handleSpamMode(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Admin) {
		return
	}
	enabled := options.byName()["enabled"].BoolValue()
	if err := b.store.Guilds.SetSpamMode(ctx, interaction.GuildID, enabled); err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	if enabled {
		b.respond(interaction, "Spam mode on. Accounts created today now count toward join cohorts.", false)
		return
	}
	b.respond(interaction, "Spam mode off.", false)
}

func (b *Bot) handleFilterWord(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Admin) {
		return
	}
	sub := options[0]
	opts := cmdOptions(sub.Options).byName()
	word := opts["word"].StringValue()

	switch sub.Name {
	case "add":
		entry := store.FilterWord{Word: word, Bypass: perms.Moderator}
		if opt, ok := opts["bypass"]; ok {
			entry.Bypass = int(opt.IntValue())
		}
		if opt, ok := opts["notify"]; ok {
			entry.Notify = opt.BoolValue()
		}
		if opt, ok := opts["false_positive"]; ok {
			entry.FalsePositive = opt.BoolValue()
		}
		if err := b.store.Guilds.AddFilterWord(ctx, interaction.GuildID, entry); err != nil {
			b.respondError(interaction, errText(err))
			return
		}
		b.respond(interaction, fmt.Sprintf("Added `%s` to the filter.", word), false)
	case "remove":
		if err := b.store.Guilds.RemoveFilterWord(ctx, interaction.GuildID, word); err != nil {
			b.respondError(interaction, errText(err))
			return
		}
		b.respond(interaction, fmt.Sprintf("Removed `%s` from the filter.", word), false)
	}
}

func (b *Bot) handleRaidPhrase(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Admin) {
		return
	}
	sub := options[0]
	word := cmdOptions(sub.Options).byName()["word"].StringValue()

	switch sub.Name {
	case "add":
		entry := store.FilterWord{Word: word, Bypass: perms.Moderator}
		if err := b.store.Guilds.AddRaidPhrase(ctx, interaction.GuildID, entry); err != nil {
			b.respondError(interaction, errText(err))
			return
		}
		b.respond(interaction, fmt.Sprintf("Added `%s` to the raid phrases.", word), false)
	case "remove":
		if err := b.store.Guilds.RemoveRaidPhrase(ctx, interaction.GuildID, word); err != nil {
			b.respondError(interaction, errText(err))
			return
		}
		b.respond(interaction, fmt.Sprintf("Removed `%s` from the raid phrases.", word), false)
	}
}

func (b *Bot) handleOfflinePing(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Moderator) {
		return
	}
	enabled := options.byName()["enabled"].BoolValue()
	if err := b.store.Users.SetOfflineReportPing(ctx, interaction.Member.User.ID, enabled); err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	if enabled {
		b.respond(interaction, "You will be pinged on raid alerts.", true)
		return
	}
	b.respond(interaction, "You will no longer be pinged on raid alerts.", true)
}

func (b *Bot) handleVerify(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	if !b.requireLevel(interaction, perms.Moderator) {
		return
	}
	target := options.byName()["user"].UserValue(b.session)
	if err := b.store.Users.SetRaidVerified(ctx, target.ID, true); err != nil {
		b.respondError(interaction, errText(err))
		return
	}
	b.respond(interaction, fmt.Sprintf("%s is now exempt from raid heuristics.", target.Mention()), false)
}

func (b *Bot) handleTag(ctx context.Context, interaction *discordgo.InteractionCreate, options cmdOptions) {
	sub := options[0]
	opts := cmdOptions(sub.Options).byName()
	name := opts["name"].StringValue()

	switch sub.Name {
	case "get":
		tag, err := b.store.Guilds.GetTag(ctx, interaction.GuildID, name)
		if err != nil {
			b.respondError(interaction, errText(err))
			return
		}
		b.respond(interaction, tag.Content, false)
	case "add":
		if !b.requireLevel(interaction, perms.Admin) {
			return
		}
		if err := b.store.Guilds.AddTag(ctx, interaction.GuildID, store.Tag{Name: name, Content: opts["content"].StringValue()}); err != nil {
			b.respondError(interaction, errText(err))
			return
		}
		b.respond(interaction, fmt.Sprintf("Tag `%s` saved.", name), true)
	case "remove":
		if !b.requireLevel(interaction, perms.Admin) {
			return
		}
		if err := b.store.Guilds.RemoveTag(ctx, interaction.GuildID, name); err != nil {
			b.respondError(interaction, errText(err))
			return
		}
		b.respond(interaction, fmt.Sprintf("Tag `%s` removed.", name), true)
	}
}
