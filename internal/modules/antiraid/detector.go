package antiraid

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"vigil/internal/cache"
	"vigil/internal/config"
	"vigil/internal/ratebucket"
	"vigil/internal/store"
	"vigil/internal/textnorm"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Detection kinds fed into the meta-escalation bucket.
const (
	kindPingSpam = iota
	kindRaidPhrase
	kindMessageSpam
)

// accountCutoff: accounts created before this date are exempt from the
// join-overtime cohort heuristic.
var accountCutoff = time.Date(2021, time.May, 1, 0, 0, 0, 0, time.UTC)

// Executor carries every Discord side effect the detector triggers. The bot
// layer implements it against the live session; tests swap in a fake.
type Executor interface {
	Ban(ctx context.Context, guildID, userID, reason string) error
	Mute(ctx context.Context, guildID string, user *discordgo.User, reason string) error
	DM(userID, content string, embed *discordgo.MessageEmbed) bool
	ModLog(cfg store.GuildConfig, embed *discordgo.MessageEmbed)
	Freeze(ctx context.Context, cfg store.GuildConfig)
	ReportRaid(cfg store.GuildConfig, user *discordgo.User, messageContent string)
	ReportSpam(cfg store.GuildConfig, user *discordgo.User, title, messageContent string)
}

// PermChecker answers permission-level questions for a member.
type PermChecker interface {
	HasAtLeast(member *discordgo.Member, level int) bool
}

type GuildStore interface {
	Get(ctx context.Context, guildID string) (store.GuildConfig, error)
	IncCaseID(ctx context.Context, guildID string) (int64, error)
}

type UserStore interface {
	Get(ctx context.Context, userID string) (store.UserProfile, error)
}

type CaseStore interface {
	Append(ctx context.Context, userID string, item store.Case) error
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Detector watches joins and messages for raid patterns: join floods,
// same-creation-date join cohorts, ping spam, raid phrases and message spam.
type Detector struct {
	guildID   string
	botID     string
	botTag    string
	appealURL string

	guilds GuildStore
	users  UserStore
	cases  CaseStore
	perms  PermChecker
	exec   Executor
	logger *zap.Logger
	clock  Clock

	pingUserLimit int
	pingRoleLimit int

	joinBucket      *ratebucket.Bucket
	spamBucket      *ratebucket.Bucket
	overtimeBucket  *ratebucket.Bucket
	detectionBucket *ratebucket.Bucket
	alertBucket     *ratebucket.Bucket

	recentJoiners   *cache.Cache[*discordgo.Member]
	spamUsers       *cache.Cache[*discordgo.User]
	overtimeCohorts *cache.Cache[[]*discordgo.Member]
	bannedMemo      *cache.Cache[int]

	// guards check-then-append on the overtime cohorts
	overtimeMu sync.Mutex
	// guards the banned memo so concurrent triggers ban a user once
	banMu sync.Mutex
}

func NewDetector(guildID string, th config.Thresholds, guilds GuildStore, users UserStore, cases CaseStore, perms PermChecker, exec Executor, logger *zap.Logger) *Detector {
	joinWindow := time.Duration(th.JoinWindowSeconds) * time.Second
	spamWindow := time.Duration(th.SpamWindowSeconds) * time.Second
	overtimeWindow := time.Duration(th.OvertimeWindowSeconds) * time.Second
	return &Detector{
		guildID:         guildID,
		guilds:          guilds,
		users:           users,
		cases:           cases,
		perms:           perms,
		exec:            exec,
		logger:          logger,
		clock:           realClock{},
		pingUserLimit:   th.PingUserLimit,
		pingRoleLimit:   th.PingRoleLimit,
		joinBucket:      ratebucket.New(th.JoinRate, joinWindow),
		spamBucket:      ratebucket.New(th.SpamRate, spamWindow),
		// the cohort heuristic bans on the Nth same-date join, not N+1
		overtimeBucket:  ratebucket.New(th.OvertimeRate-1, overtimeWindow),
		detectionBucket: ratebucket.New(th.DetectionRate, time.Duration(th.DetectionWindow)*time.Second),
		alertBucket:     ratebucket.New(1, time.Duration(th.AlertCooldownSeconds)*time.Second),
		recentJoiners:   cache.New[*discordgo.Member](100, 10*time.Second),
		spamUsers:       cache.New[*discordgo.User](100, 10*time.Second),
		overtimeCohorts: cache.New[[]*discordgo.Member](100, overtimeWindow),
		bannedMemo:      cache.New[int](100, 120*time.Second),
	}
}

func (d *Detector) WithClock(clock Clock) {
	d.clock = clock
}

// SetBotUser records the identity stamped on automatic ban cases.
func (d *Detector) SetBotUser(id, tag string) {
	d.botID = id
	d.botTag = tag
}

func (d *Detector) SetAppealURL(url string) {
	d.appealURL = url
}

// HandleJoin runs the join-flood check and the join-overtime cohort
// heuristic for a new member.
func (d *Detector) HandleJoin(ctx context.Context, member *discordgo.Member) {
	if member.User == nil || member.User.Bot {
		return
	}
	now := d.clock.Now()
	d.recentJoiners.Set(member.User.ID, member)

	if d.joinBucket.Record(d.guildID, now) {
		for _, key := range d.recentJoiners.Keys() {
			joiner, ok := d.recentJoiners.Get(key)
			if !ok {
				continue
			}
			d.raidBan(ctx, joiner.User, "Join spam detected.", false)
		}
		if !d.alertBucket.Record(d.guildID, now) {
			cfg, err := d.guilds.Get(ctx, d.guildID)
			if err == nil {
				d.exec.ReportRaid(cfg, member.User, "")
				d.exec.Freeze(ctx, cfg)
			}
		}
	}

	d.checkJoinOvertime(ctx, member, now)
}

func (d *Detector) checkJoinOvertime(ctx context.Context, member *discordgo.Member, now time.Time) {
	created, err := discordgo.SnowflakeTimestamp(member.User.ID)
	if err != nil {
		return
	}
	created = created.UTC()

	// brand new accounts are handled by the join-flood path instead
	if created.After(now.Add(-15 * time.Minute)) {
		return
	}
	if profile, err := d.users.Get(ctx, member.User.ID); err == nil && profile.RaidVerified {
		return
	}
	if created.Before(accountCutoff) {
		return
	}

	cfg, err := d.guilds.Get(ctx, d.guildID)
	if err != nil {
		d.logger.Error("guild config load failed", zap.Error(err))
		return
	}
	if !cfg.BanTodaySpamAccounts && sameDay(created, now) {
		return
	}

	cohortKey := created.Format("January 2, 2006")

	d.overtimeMu.Lock()
	cohort, _ := d.overtimeCohorts.Get(cohortKey)
	for _, m := range cohort {
		if m.User.ID == member.User.ID {
			d.overtimeMu.Unlock()
			return
		}
	}
	cohort = append(cohort, member)
	d.overtimeCohorts.Set(cohortKey, cohort)
	d.overtimeMu.Unlock()

	if d.overtimeBucket.Record(cohortKey, member.JoinedAt) {
		reason := fmt.Sprintf("Join spam over time detected (accounts created %s)", cohortKey)
		d.overtimeMu.Lock()
		members, _ := d.overtimeCohorts.Get(cohortKey)
		d.overtimeCohorts.Set(cohortKey, nil)
		d.overtimeMu.Unlock()
		// subsequent joins of this cohort accumulate from scratch
		d.overtimeBucket.Reset(cohortKey)
		for _, m := range members {
			d.raidBan(ctx, m.User, reason, true)
		}
	}
}

// HandleMessage runs ping-spam, raid-phrase and message-spam checks in
// order, short-circuiting on the first hit. member must carry the author's
// roles for the permission checks.
func (d *Detector) HandleMessage(ctx context.Context, msg *discordgo.Message, member *discordgo.Member) {
	if msg.GuildID == "" || msg.GuildID != d.guildID {
		return
	}
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if d.perms.HasAtLeast(member, 1) {
		return
	}

	cfg, err := d.guilds.Get(ctx, d.guildID)
	if err != nil {
		d.logger.Error("guild config load failed", zap.Error(err))
		return
	}

	switch {
	case d.pingSpam(ctx, msg):
		d.handleDetection(ctx, cfg, msg, kindPingSpam)
	case d.raidPhrase(ctx, cfg, msg, member):
		d.handleDetection(ctx, cfg, msg, kindRaidPhrase)
	case d.messageSpam(ctx, msg):
		d.handleDetection(ctx, cfg, msg, kindMessageSpam)
	}
}

// handleDetection feeds a trip into the meta-escalation bucket. A single
// trip files a report; repeated trips in a short window ban every flagged
// user and freeze the server.
func (d *Detector) handleDetection(ctx context.Context, cfg store.GuildConfig, msg *discordgo.Message, kind int) {
	now := msg.Timestamp
	d.spamUsers.Set(msg.Author.ID, msg.Author)

	escalated := d.detectionBucket.Record(d.guildID, now)
	doFreeze := false
	if escalated && !d.alertBucket.Record(d.guildID, now) {
		d.exec.ReportRaid(cfg, msg.Author, msg.Content)
		doFreeze = true
	}
	if doFreeze {
		d.exec.Freeze(ctx, cfg)
	}

	if kind == kindRaidPhrase {
		return
	}
	title := "Message spam detected"
	if kind == kindPingSpam {
		title = "Ping spam detected"
	}
	if !escalated && !doFreeze {
		d.exec.ReportSpam(cfg, msg.Author, title, msg.Content)
		return
	}
	for _, key := range d.spamUsers.Keys() {
		user, ok := d.spamUsers.Get(key)
		if !ok {
			continue
		}
		d.raidBan(ctx, user, title, false)
	}
}

func (d *Detector) pingSpam(ctx context.Context, msg *discordgo.Message) bool {
	if distinctUsers(msg.Mentions) <= d.pingUserLimit && distinctStrings(msg.MentionRoles) <= d.pingRoleLimit {
		return false
	}
	if err := d.exec.Mute(ctx, d.guildID, msg.Author, "Ping spam"); err != nil {
		d.logger.Warn("ping spam mute failed", zap.String("user_id", msg.Author.ID), zap.Error(err))
	}
	return true
}

func (d *Detector) messageSpam(ctx context.Context, msg *discordgo.Message) bool {
	key := d.guildID + ":" + msg.Author.ID
	if !d.spamBucket.Record(key, msg.Timestamp) {
		return false
	}
	// already muted on an earlier trip in this window
	if d.spamUsers.Contains(msg.Author.ID) {
		return true
	}
	if err := d.exec.Mute(ctx, d.guildID, msg.Author, "Message spam"); err != nil {
		d.logger.Warn("message spam mute failed", zap.String("user_id", msg.Author.ID), zap.Error(err))
	}
	return true
}

// raidPhrase scans the folded message for configured raid phrases. Phrases
// flagged false-positive only match as standalone tokens; anyone below the
// phrase's bypass level gets banned on the spot. A zero bypass level means
// nobody bypasses.
func (d *Detector) raidPhrase(ctx context.Context, cfg store.GuildConfig, msg *discordgo.Message, member *discordgo.Member) bool {
	if d.perms.HasAtLeast(member, 2) {
		return false
	}
	folded := textnorm.Fold(msg.Content)
	if folded == "" {
		return false
	}
	noSpaces := textnorm.StripSpaces(folded)
	noPunct := textnorm.StripSpacesAndPunct(folded)

	for _, phrase := range cfg.RaidPhrases {
		if phrase.Bypass > 0 && d.perms.HasAtLeast(member, phrase.Bypass) {
			continue
		}
		w := strings.ToLower(phrase.Word)
		matched := strings.Contains(folded, w) ||
			(!phrase.FalsePositive && (strings.Contains(noSpaces, w) || strings.Contains(noPunct, w)))
		if !matched {
			continue
		}
		if phrase.FalsePositive && !textnorm.HasToken(folded, w) {
			continue
		}
		d.raidBan(ctx, msg.Author, "Raid phrase detected", false)
		return true
	}
	return false
}

// raidBan bans a user once: the memo absorbs concurrent triggers for the
// same account so only one case and one mod-log post come out.
func (d *Detector) raidBan(ctx context.Context, user *discordgo.User, reason string, dmUser bool) {
	if user == nil {
		return
	}
	d.banMu.Lock()
	if d.bannedMemo.Contains(user.ID) {
		d.banMu.Unlock()
		return
	}
	d.bannedMemo.Set(user.ID, 1)
	d.banMu.Unlock()

	cfg, err := d.guilds.Get(ctx, d.guildID)
	if err != nil {
		d.logger.Error("guild config load failed", zap.Error(err))
		return
	}
	id, err := d.guilds.IncCaseID(ctx, d.guildID)
	if err != nil {
		d.logger.Error("case id increment failed", zap.Error(err))
		return
	}
	c := store.Case{
		ID:         id,
		Type:       store.CaseBan,
		Date:       d.clock.Now(),
		ModID:      d.botID,
		ModTag:     d.botTag,
		Reason:     reason,
		Punishment: "PERMANENT",
	}
	if err := d.cases.Append(ctx, user.ID, c); err != nil {
		d.logger.Error("case append failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	embed := raidBanEmbed(user, c)
	if dmUser {
		content := "You were banned.\n\nThis action was performed automatically."
		if d.appealURL != "" {
			content += " If you think this was a mistake, appeal here: " + d.appealURL
		}
		_ = d.exec.DM(user.ID, content, embed)
	}
	if err := d.exec.Ban(ctx, d.guildID, user.ID, "Raid"); err != nil {
		d.logger.Error("raid ban failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	d.exec.ModLog(cfg, embed)
}

func raidBanEmbed(user *discordgo.User, c store.Case) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:     "Member banned",
		Color:     0xED4245,
		Timestamp: c.Date.Format(time.RFC3339),
		Footer:    &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Case #%d", c.ID)},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: fmt.Sprintf("<@%s> (%s)", user.ID, user.Username), Inline: true},
			{Name: "Moderator", Value: c.ModTag, Inline: true},
			{Name: "Punishment", Value: c.Punishment, Inline: true},
			{Name: "Reason", Value: c.Reason},
		},
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func distinctUsers(users []*discordgo.User) int {
	seen := make(map[string]struct{}, len(users))
	for _, u := range users {
		seen[u.ID] = struct{}{}
	}
	return len(seen)
}

func distinctStrings(ids []string) int {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}
