package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if event.GuildID != b.cfg.GuildID {
		return
	}
	b.detector.HandleJoin(context.Background(), event.Member)
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID != b.cfg.GuildID {
		return
	}

	member := msg.Member
	if member == nil {
		member = b.memberForUser(msg.Author.ID)
	}
	if member != nil && member.User == nil {
		member.User = msg.Author
	}

	ctx := context.Background()
	if b.filterMessage(ctx, msg.Message, member) {
		return
	}
	b.detector.HandleMessage(ctx, msg.Message, member)
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if interaction.GuildID != b.cfg.GuildID {
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()
	switch data.Name {
	case "warn":
		b.handleWarn(ctx, interaction, data.Options)
	case "liftwarn":
		b.handleLiftWarn(ctx, interaction, data.Options)
	case "editreason":
		b.handleEditReason(ctx, interaction, data.Options)
	case "kick":
		b.handleKick(ctx, interaction, data.Options)
	case "ban":
		b.handleBan(ctx, interaction, data.Options)
	case "unban":
		b.handleUnban(ctx, interaction, data.Options)
	case "mute":
		b.handleMute(ctx, interaction, data.Options)
	case "unmute":
		b.handleUnmute(ctx, interaction, data.Options)
	case "timeout":
		b.handleTimeout(ctx, interaction, data.Options)
	case "untimeout":
		b.handleUntimeout(ctx, interaction, data.Options)
	case "rundown":
		b.handleRundown(ctx, interaction, data.Options)
	case "transferprofile":
		b.handleTransferProfile(ctx, interaction, data.Options)
	case "birthday":
		b.handleBirthday(ctx, interaction, data.Options)
	case "karma":
		b.handleKarma(ctx, interaction, data.Options)
	case "remindme":
		b.handleRemindMe(ctx, interaction, data.Options)
	case "spammode":
		b.handleSpamMode(ctx, interaction, data.Options)
	case "filter":
		b.handleFilterWord(ctx, interaction, data.Options)
	case "raidphrase":
		b.handleRaidPhrase(ctx, interaction, data.Options)
	case "offlineping":
		b.handleOfflinePing(ctx, interaction, data.Options)
	case "verify":
		b.handleVerify(ctx, interaction, data.Options)
	case "tag":
		b.handleTag(ctx, interaction, data.Options)
	}
}
