package bot

import (
	"context"
	"strings"

	"vigil/internal/perms"
	"vigil/internal/store"
	"vigil/internal/textnorm"
	"vigil/internal/utils"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// filterMessage runs the word and invite filters over a message. Returns
// true when the message was removed, in which case the raid checks are
// skipped. Moderators and up bypass the filters entirely.
func (b *Bot) filterMessage(ctx context.Context, msg *discordgo.Message, member *discordgo.Member) bool {
	guild, err := b.session.State.Guild(b.cfg.GuildID)
	if err != nil {
		return false
	}
	cfg, err := b.guildConfig(ctx)
	if err != nil {
		b.logger.Error("guild config load failed", zap.Error(err))
		return false
	}
	for _, id := range cfg.IgnoredChannels {
		if id == msg.ChannelID {
			return false
		}
	}
	if b.oracle.HasAtLeast(guild, member, cfg, perms.Moderator) {
		return false
	}

	return b.wordFilter(ctx, msg, member, guild, cfg) || b.inviteFilter(msg, cfg)
}

func (b *Bot) wordFilter(ctx context.Context, msg *discordgo.Message, member *discordgo.Member, guild *discordgo.Guild, cfg store.GuildConfig) bool {
	folded := textnorm.Fold(msg.Content)
	if folded == "" {
		return false
	}
	noSpaces := textnorm.StripSpaces(folded)
	noPunct := textnorm.StripSpacesAndPunct(folded)

	// lookalike domains in links fold to ascii too
	var hosts []string
	for _, raw := range utils.ExtractURLs(msg.Content) {
		if host, err := utils.NormalizeHost(raw); err == nil {
			hosts = append(hosts, host)
		}
	}

	found := false
	notified := false
	for _, word := range cfg.FilterWords {
		// a zero bypass level means nobody bypasses
		if word.Bypass > 0 && b.oracle.HasAtLeast(guild, member, cfg, word.Bypass) {
			continue
		}
		w := strings.ToLower(word.Word)
		matched := strings.Contains(folded, w) ||
			(!word.FalsePositive && (strings.Contains(noSpaces, w) || strings.Contains(noPunct, w))) ||
			hostsContain(hosts, w)
		if !matched {
			continue
		}
		if word.FalsePositive && !textnorm.HasToken(folded, w) {
			continue
		}

		found = true
		b.deleteMessage(msg)
		if !notified {
			_ = (&executor{b: b}).DM(msg.Author.ID, "Your message contained a word you aren't allowed to say here. Please refrain from saying it!", nil)
			notified = true
		}
		if word.Notify {
			b.reporter.SpamReport(cfg, msg.Author, "Filtered word used", msg.Content)
			return true
		}
	}
	return found
}

// inviteFilter removes invites to guilds outside the whitelist. Invites that
// can't be resolved are treated as hostile.
func (b *Bot) inviteFilter(msg *discordgo.Message, cfg store.GuildConfig) bool {
	codes := utils.ExtractInviteCodes(msg.Content)
	if len(codes) == 0 {
		return false
	}
	for _, code := range codes {
		invite, err := b.session.Invite(code)
		if err == nil && invite.Guild != nil && whitelisted(cfg.WhitelistedGuilds, invite.Guild.ID) {
			continue
		}
		b.deleteMessage(msg)
		b.reporter.SpamReport(cfg, msg.Author, "Invite posted", msg.Content)
		return true
	}
	return false
}

func (b *Bot) deleteMessage(msg *discordgo.Message) {
	_ = b.session.ChannelMessageDelete(msg.ChannelID, msg.ID)
}

func whitelisted(list []string, guildID string) bool {
	for _, id := range list {
		if id == guildID {
			return true
		}
	}
	return false
}

func hostsContain(hosts []string, word string) bool {
	for _, host := range hosts {
		if strings.Contains(host, word) {
			return true
		}
	}
	return false
}
