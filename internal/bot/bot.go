package bot

import (
	"context"
	"time"

	"vigil/internal/config"
	"vigil/internal/mod"
	"vigil/internal/modules/antiraid"
	"vigil/internal/modules/report"
	"vigil/internal/perms"
	"vigil/internal/store"
	"vigil/internal/tasks"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Bot owns the Discord session and wires events into the detector, the
// moderation service and the scheduler.
type Bot struct {
	cfg      config.Config
	logger   *zap.Logger
	store    *store.Store
	session  *discordgo.Session
	oracle   *perms.Oracle
	reporter *report.Reporter
	detector *antiraid.Detector
	svc      *mod.Service
	sched    *tasks.Scheduler
}

func New(cfg config.Config, logger *zap.Logger, st *store.Store, sched *tasks.Scheduler) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		session: session,
		sched:   sched,
	}

	b.oracle = perms.NewOracle(cfg.GuildID, cfg.BotOwnerID)
	b.reporter = report.NewReporter(session, logger)

	exec := &executor{b: b}
	b.svc = mod.NewService(st.Guilds, st.Users, st.Cases, sched, exec, logger)
	b.detector = antiraid.NewDetector(cfg.GuildID, cfg.Thresholds, st.Guilds, st.Users, st.Cases, &permAdapter{b: b}, &raidExecutor{executor: exec}, logger)
	b.detector.SetAppealURL(cfg.AppealURL)

	b.registerTaskCallbacks()

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	return b.registerCommands()
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	user := session.State.User
	b.detector.SetBotUser(user.ID, user.Username)
	if guild, err := session.State.Guild(b.cfg.GuildID); err == nil && guild.Name != "" {
		b.svc.SetGuildName(guild.Name)
	}
	b.logger.Info("discord ready", zap.String("user", user.Username))
}

// guildConfig loads the guild document with a short deadline so event
// handlers never hang on a slow store.
func (b *Bot) guildConfig(ctx context.Context) (store.GuildConfig, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return b.store.Guilds.Get(ctx, b.cfg.GuildID)
}

// permAdapter answers the detector's permission questions from live guild
// state.
type permAdapter struct {
	b *Bot
}

func (p *permAdapter) HasAtLeast(member *discordgo.Member, level int) bool {
	guild, err := p.b.session.State.Guild(p.b.cfg.GuildID)
	if err != nil {
		return false
	}
	cfg, err := p.b.guildConfig(context.Background())
	if err != nil {
		return false
	}
	return p.b.oracle.HasAtLeast(guild, member, cfg, level)
}

func (b *Bot) memberLevel(member *discordgo.Member) int {
	guild, err := b.session.State.Guild(b.cfg.GuildID)
	if err != nil {
		return perms.Everyone
	}
	cfg, err := b.guildConfig(context.Background())
	if err != nil {
		return perms.Everyone
	}
	return b.oracle.LevelOf(guild, member, cfg)
}

func (b *Bot) memberForUser(userID string) *discordgo.Member {
	member, err := b.session.State.Member(b.cfg.GuildID, userID)
	if err == nil {
		return member
	}
	member, err = b.session.GuildMember(b.cfg.GuildID, userID)
	if err != nil {
		return nil
	}
	return member
}
