package antiraid

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"vigil/internal/config"
	"vigil/internal/store"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type fakeGuilds struct {
	mu     sync.Mutex
	cfg    store.GuildConfig
	nextID int64
}

func (f *fakeGuilds) Get(ctx context.Context, guildID string) (store.GuildConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg, nil
}

func (f *fakeGuilds) IncCaseID(ctx context.Context, guildID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return f.nextID, nil
}

type fakeUsers struct {
	mu       sync.Mutex
	verified map[string]bool
}

func (f *fakeUsers) Get(ctx context.Context, userID string) (store.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return store.UserProfile{UserID: userID, RaidVerified: f.verified[userID]}, nil
}

type fakeCases struct {
	mu       sync.Mutex
	appended map[string][]store.Case
}

func (f *fakeCases) Append(ctx context.Context, userID string, item store.Case) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appended == nil {
		f.appended = make(map[string][]store.Case)
	}
	f.appended[userID] = append(f.appended[userID], item)
	return nil
}

type fakePerms struct {
	levels map[string]int
}

func (f *fakePerms) HasAtLeast(member *discordgo.Member, level int) bool {
	if member == nil || member.User == nil {
		return false
	}
	return f.levels[member.User.ID] >= level
}

type fakeExecutor struct {
	mu      sync.Mutex
	banned  []string
	muted   []string
	dms     []string
	modlogs int
	freezes int
	raids   int
	spams   []string
}

func (f *fakeExecutor) Ban(ctx context.Context, guildID, userID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banned = append(f.banned, userID)
	return nil
}

func (f *fakeExecutor) Mute(ctx context.Context, guildID string, user *discordgo.User, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = append(f.muted, user.ID)
	return nil
}

func (f *fakeExecutor) DM(userID, content string, embed *discordgo.MessageEmbed) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms = append(f.dms, userID)
	return true
}

func (f *fakeExecutor) ModLog(cfg store.GuildConfig, embed *discordgo.MessageEmbed) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modlogs++
}

func (f *fakeExecutor) Freeze(ctx context.Context, cfg store.GuildConfig) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.freezes++
}

func (f *fakeExecutor) ReportRaid(cfg store.GuildConfig, user *discordgo.User, messageContent string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raids++
}

func (f *fakeExecutor) ReportSpam(cfg store.GuildConfig, user *discordgo.User, title, messageContent string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spams = append(f.spams, title)
}

func (f *fakeExecutor) banCount(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.banned {
		if id == userID {
			n++
		}
	}
	return n
}

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

const discordEpochMS = 1420070400000

// snowflakeFor builds a user id whose embedded creation time is t.
func snowflakeFor(t time.Time, seq int64) string {
	id := (t.UnixMilli()-discordEpochMS)<<22 | seq
	return strconv.FormatInt(id, 10)
}

func newTestDetector(cfg store.GuildConfig) (*Detector, *fakeExecutor, *fakeGuilds, *fakeCases, *fakeClock, *fakePerms) {
	guilds := &fakeGuilds{cfg: cfg}
	users := &fakeUsers{verified: make(map[string]bool)}
	cases := &fakeCases{}
	perms := &fakePerms{levels: make(map[string]int)}
	exec := &fakeExecutor{}
	d := NewDetector("g", config.DefaultConfig().Thresholds, guilds, users, cases, perms, exec, zap.NewNop())
	d.SetBotUser("bot", "vigil#0000")
	clock := &fakeClock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	d.WithClock(clock)
	return d, exec, guilds, cases, clock, perms
}

func joiner(created time.Time, seq int64, joined time.Time) *discordgo.Member {
	return &discordgo.Member{
		User:     &discordgo.User{ID: snowflakeFor(created, seq)},
		JoinedAt: joined,
	}
}

func TestJoinFloodBansRecentJoinersOnce(t *testing.T) {
	d, exec, _, _, clock, _ := newTestDetector(store.GuildConfig{})
	ctx := context.Background()
	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC) // old accounts, overtime path inert

	var members []*discordgo.Member
	for i := 0; i < 11; i++ {
		m := joiner(created, int64(i), clock.now)
		members = append(members, m)
		d.HandleJoin(ctx, m)
		clock.now = clock.now.Add(100 * time.Millisecond)
	}

	for _, m := range members {
		if got := exec.banCount(m.User.ID); got != 1 {
			t.Fatalf("joiner %s banned %d times, want 1", m.User.ID, got)
		}
	}
	if exec.raids != 1 || exec.freezes != 1 {
		t.Fatalf("raids=%d freezes=%d, want 1 each", exec.raids, exec.freezes)
	}
}

func TestJoinFloodAlertCooldownSuppressesSecondReport(t *testing.T) {
	d, exec, _, _, clock, _ := newTestDetector(store.GuildConfig{})
	ctx := context.Background()
	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		d.HandleJoin(ctx, joiner(created, int64(i), clock.now))
		clock.now = clock.now.Add(100 * time.Millisecond)
	}
	// second flood inside the 10 minute alert cooldown
	clock.now = clock.now.Add(30 * time.Second)
	for i := 100; i < 112; i++ {
		d.HandleJoin(ctx, joiner(created, int64(i), clock.now))
		clock.now = clock.now.Add(100 * time.Millisecond)
	}

	if exec.raids != 1 {
		t.Fatalf("raids=%d, want 1 inside cooldown", exec.raids)
	}
}

func TestJoinOvertimeBansWholeCohort(t *testing.T) {
	d, exec, _, _, clock, _ := newTestDetector(store.GuildConfig{})
	ctx := context.Background()

	base := clock.now
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var cohort []*discordgo.Member
	for i, offset := range []time.Duration{0, 600 * time.Second, 1200 * time.Second, 1800 * time.Second} {
		clock.now = base.Add(offset)
		m := joiner(created, int64(i), clock.now)
		cohort = append(cohort, m)
		d.HandleJoin(ctx, m)
	}

	for _, m := range cohort {
		if got := exec.banCount(m.User.ID); got != 1 {
			t.Fatalf("cohort member %s banned %d times, want 1", m.User.ID, got)
		}
	}
	// every cohort member got the appeal DM
	if len(exec.dms) != 4 {
		t.Fatalf("dms=%d, want 4", len(exec.dms))
	}

	// different creation date right after: unaffected
	clock.now = base.Add(1801 * time.Second)
	other := joiner(time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC), 50, clock.now)
	d.HandleJoin(ctx, other)
	if got := exec.banCount(other.User.ID); got != 0 {
		t.Fatalf("other-date joiner banned %d times, want 0", got)
	}

	// the ban wave reset the cohort counter, so the next same-date joiner
	// starts a fresh cohort instead of tripping immediately
	clock.now = base.Add(1802 * time.Second)
	straggler := joiner(created, 51, clock.now)
	d.HandleJoin(ctx, straggler)
	if got := exec.banCount(straggler.User.ID); got != 0 {
		t.Fatalf("straggler banned %d times, want 0", got)
	}
}

func TestJoinOvertimeSkipsExemptAccounts(t *testing.T) {
	d, exec, guilds, _, clock, _ := newTestDetector(store.GuildConfig{})
	ctx := context.Background()
	base := clock.now

	// accounts predating the cutoff never count toward a cohort
	old := time.Date(2021, 4, 30, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		d.HandleJoin(ctx, joiner(old, int64(i), clock.now))
		clock.now = clock.now.Add(2 * time.Second)
	}
	if len(exec.banned) != 0 {
		t.Fatalf("banned %v, want none for pre-cutoff accounts", exec.banned)
	}

	// accounts created today are skipped unless spam mode is on
	today := base.Add(-16 * time.Minute)
	for i := 10; i < 16; i++ {
		d.HandleJoin(ctx, joiner(today, int64(i), clock.now))
		clock.now = clock.now.Add(2 * time.Second)
	}
	if len(exec.banned) != 0 {
		t.Fatalf("banned %v, want none for today accounts", exec.banned)
	}

	guilds.mu.Lock()
	guilds.cfg.BanTodaySpamAccounts = true
	guilds.mu.Unlock()
	for i := 20; i < 24; i++ {
		d.HandleJoin(ctx, joiner(today, int64(i), clock.now))
		clock.now = clock.now.Add(2 * time.Second)
	}
	if len(exec.banned) != 4 {
		t.Fatalf("banned %d users, want 4 in spam mode", len(exec.banned))
	}
}

func message(author *discordgo.User, content string, ts time.Time) *discordgo.Message {
	return &discordgo.Message{
		GuildID:   "g",
		Author:    author,
		Content:   content,
		Timestamp: ts,
	}
}

func memberOf(u *discordgo.User) *discordgo.Member {
	return &discordgo.Member{User: u}
}

func TestMessageSpamMutesOnce(t *testing.T) {
	d, exec, _, _, _, _ := newTestDetector(store.GuildConfig{})
	ctx := context.Background()
	author := &discordgo.User{ID: "spammer"}

	ts := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 9; i++ {
		d.HandleMessage(ctx, message(author, fmt.Sprintf("flood %d", i), ts), memberOf(author))
		ts = ts.Add(500 * time.Millisecond)
	}

	if len(exec.muted) != 1 || exec.muted[0] != "spammer" {
		t.Fatalf("muted = %v, want single mute", exec.muted)
	}
	if len(exec.spams) == 0 {
		t.Fatal("no spam report filed")
	}
}

func TestPingSpamMutes(t *testing.T) {
	d, exec, _, _, _, _ := newTestDetector(store.GuildConfig{})
	author := &discordgo.User{ID: "pinger"}

	msg := message(author, "hi", time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	for i := 0; i < 5; i++ {
		msg.Mentions = append(msg.Mentions, &discordgo.User{ID: fmt.Sprintf("m%d", i)})
	}
	d.HandleMessage(context.Background(), msg, memberOf(author))

	if len(exec.muted) != 1 {
		t.Fatalf("muted = %v, want pinger muted", exec.muted)
	}
}

func TestTrustedAuthorSkipsAllChecks(t *testing.T) {
	d, exec, _, _, _, perms := newTestDetector(store.GuildConfig{
		RaidPhrases: []store.FilterWord{{Word: "free nitro"}},
	})
	author := &discordgo.User{ID: "trusted"}
	perms.levels["trusted"] = 1

	d.HandleMessage(context.Background(), message(author, "free nitro", time.Now()), memberOf(author))

	if len(exec.banned) != 0 || len(exec.muted) != 0 {
		t.Fatalf("trusted author hit: banned=%v muted=%v", exec.banned, exec.muted)
	}
}

func TestRaidPhraseBansImmediately(t *testing.T) {
	d, exec, _, cases, _, _ := newTestDetector(store.GuildConfig{
		RaidPhrases: []store.FilterWord{{Word: "free nitro"}},
	})
	author := &discordgo.User{ID: "phisher"}

	d.HandleMessage(context.Background(), message(author, "claim your FREE NITRO now", time.Now()), memberOf(author))

	if exec.banCount("phisher") != 1 {
		t.Fatalf("banned = %v, want phisher once", exec.banned)
	}
	got := cases.appended["phisher"]
	if len(got) != 1 || got[0].Type != store.CaseBan || got[0].Punishment != "PERMANENT" {
		t.Fatalf("cases = %+v", got)
	}
}

func TestRaidPhraseMatchesHomoglyphs(t *testing.T) {
	d, exec, _, _, _, _ := newTestDetector(store.GuildConfig{
		RaidPhrases: []store.FilterWord{{Word: "discord"}},
	})
	author := &discordgo.User{ID: "evader"}

	// Cyrillic lookalikes and inserted spaces folded to ascii
	d.HandleMessage(context.Background(), message(author, "jоin d i s с о r d nоw", time.Now()), memberOf(author))

	if exec.banCount("evader") != 1 {
		t.Fatalf("banned = %v, want evader", exec.banned)
	}
}

func TestFalsePositivePhraseRequiresExactToken(t *testing.T) {
	cfg := store.GuildConfig{
		RaidPhrases: []store.FilterWord{{Word: "cp", FalsePositive: true}},
	}

	d, exec, _, _, _, _ := newTestDetector(cfg)
	author := &discordgo.User{ID: "innocent"}
	// substring inside a longer token must not match
	d.HandleMessage(context.Background(), message(author, "i love my macpro", time.Now()), memberOf(author))
	if len(exec.banned) != 0 {
		t.Fatalf("substring matched false-positive phrase: %v", exec.banned)
	}

	d2, exec2, _, _, _, _ := newTestDetector(cfg)
	author2 := &discordgo.User{ID: "guilty"}
	// standalone token must match
	d2.HandleMessage(context.Background(), message(author2, "selling cp here", time.Now()), memberOf(author2))
	if exec2.banCount("guilty") != 1 {
		t.Fatalf("token did not match false-positive phrase: %v", exec2.banned)
	}
}

func TestRaidPhraseBypassLevel(t *testing.T) {
	d, exec, _, _, _, perms := newTestDetector(store.GuildConfig{
		RaidPhrases: []store.FilterWord{{Word: "free nitro", Bypass: 1}},
	})
	author := &discordgo.User{ID: "helper"}
	perms.levels["helper"] = 1
	// level 1 via a per-phrase bypass but not the global message skip:
	// force the global skip off by checking phrase level only
	d.raidPhrase(context.Background(), store.GuildConfig{
		RaidPhrases: []store.FilterWord{{Word: "free nitro", Bypass: 1}},
	}, message(author, "free nitro", time.Now()), memberOf(author))

	if len(exec.banned) != 0 {
		t.Fatalf("bypass level ignored: %v", exec.banned)
	}
}

func TestModeratorBypassPhraseBansRegularMembers(t *testing.T) {
	cfg := store.GuildConfig{
		RaidPhrases: []store.FilterWord{{Word: "free nitro", Bypass: 2}},
	}
	d, exec, _, _, _, perms := newTestDetector(cfg)

	author := &discordgo.User{ID: "member"}
	d.HandleMessage(context.Background(), message(author, "free nitro", time.Now()), memberOf(author))
	if exec.banCount("member") != 1 {
		t.Fatalf("banned = %v, want member once", exec.banned)
	}

	// an author at exactly the bypass level is exempt from the phrase
	modAuthor := &discordgo.User{ID: "mod"}
	perms.levels["mod"] = 2
	d.raidPhrase(context.Background(), cfg, message(modAuthor, "free nitro", time.Now()), memberOf(modAuthor))
	if exec.banCount("mod") != 0 {
		t.Fatalf("bypass-level author banned: %v", exec.banned)
	}
}

func TestConcurrentRaidBanProducesOneCase(t *testing.T) {
	d, exec, _, cases, _, _ := newTestDetector(store.GuildConfig{})
	user := &discordgo.User{ID: "target"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.raidBan(context.Background(), user, "Join spam detected.", false)
		}()
	}
	wg.Wait()

	if got := exec.banCount("target"); got != 1 {
		t.Fatalf("banned %d times, want 1", got)
	}
	if len(cases.appended["target"]) != 1 {
		t.Fatalf("cases = %d, want 1", len(cases.appended["target"]))
	}
	if exec.modlogs != 1 {
		t.Fatalf("modlogs = %d, want 1", exec.modlogs)
	}
}

func TestMetaEscalationBansFlaggedUsers(t *testing.T) {
	d, exec, _, _, _, _ := newTestDetector(store.GuildConfig{})
	ctx := context.Background()
	ts := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	// five distinct ping spammers inside the detection window
	for i := 0; i < 5; i++ {
		author := &discordgo.User{ID: fmt.Sprintf("spammer%d", i)}
		msg := message(author, "raid", ts.Add(time.Duration(i)*time.Second))
		for j := 0; j < 5; j++ {
			msg.Mentions = append(msg.Mentions, &discordgo.User{ID: fmt.Sprintf("m%d", j)})
		}
		d.HandleMessage(ctx, msg, memberOf(author))
	}

	if len(exec.banned) == 0 {
		t.Fatal("escalation did not ban flagged users")
	}
	if exec.raids != 1 || exec.freezes != 1 {
		t.Fatalf("raids=%d freezes=%d, want 1 each", exec.raids, exec.freezes)
	}
}
