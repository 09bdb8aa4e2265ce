package store

import "time"

type CaseType string

const (
	CaseKick      CaseType = "KICK"
	CaseBan       CaseType = "BAN"
	CaseUnban     CaseType = "UNBAN"
	CaseWarn      CaseType = "WARN"
	CaseLiftWarn  CaseType = "LIFTWARN"
	CaseMute      CaseType = "MUTE"
	CaseUnmute    CaseType = "UNMUTE"
	CaseTimeout   CaseType = "TIMEOUT"
	CaseUntimeout CaseType = "UNTIMEOUT"
)

// Case is one recorded moderation action against a user. Immutable once
// written except for the lift and edit-reason transitions, which mutate the
// embedded document in place and re-save the collection.
type Case struct {
	ID           int64      `bson:"id"`
	Type         CaseType   `bson:"type"`
	Date         time.Time  `bson:"date"`
	Until        *time.Time `bson:"until,omitempty"`
	ModID        string     `bson:"mod_id"`
	ModTag       string     `bson:"mod_tag"`
	Reason       string     `bson:"reason"`
	OldReason    string     `bson:"old_reason,omitempty"`
	Punishment   string     `bson:"punishment,omitempty"`
	Lifted       bool       `bson:"lifted"`
	LiftedBy     string     `bson:"lifted_by,omitempty"`
	LiftedByTag  string     `bson:"lifted_by_tag,omitempty"`
	LiftedAt     *time.Time `bson:"lifted_at,omitempty"`
	LiftedReason string     `bson:"lifted_reason,omitempty"`
}

// CaseCollection holds every case for one punished user, insertion order
// preserved.
type CaseCollection struct {
	UserID string `bson:"_id"`
	Cases  []Case `bson:"cases"`
}

// ByID returns a pointer into Cases for the case with the given id, or nil.
func (c *CaseCollection) ByID(id int64) *Case {
	for i := range c.Cases {
		if c.Cases[i].ID == id {
			return &c.Cases[i]
		}
	}
	return nil
}

// Rundown returns up to limit most-recent cases excluding unmutes, sorted
// newest first.
func (c *CaseCollection) Rundown(limit int) []Case {
	var out []Case
	for _, item := range c.Cases {
		if item.Type == CaseUnmute {
			continue
		}
		out = append(out, item)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Date.After(out[i].Date) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// FilterWord is one configured phrase, shared between the word filter and
// the raid-phrase list. FalsePositive restricts matching to exact
// whitespace-delimited tokens.
type FilterWord struct {
	Word          string `bson:"word"`
	Bypass        int    `bson:"bypass"`
	Notify        bool   `bson:"notify"`
	FalsePositive bool   `bson:"false_positive"`
}

type Tag struct {
	Name     string `bson:"name"`
	Content  string `bson:"content"`
	UseCount int64  `bson:"use_count"`
}

// GuildConfig is the singleton document for the managed community. CaseID is
// the next available case number, bumped through Guilds.IncCaseID.
type GuildConfig struct {
	ID                    string       `bson:"_id"`
	CaseID                int64        `bson:"case_id"`
	RoleTrusted           string       `bson:"role_trusted"`
	RoleModerator         string       `bson:"role_moderator"`
	RoleMute              string       `bson:"role_mute"`
	RoleBirthday          string       `bson:"role_birthday"`
	ChannelModLogs        string       `bson:"channel_mod_logs"`
	ChannelReports        string       `bson:"channel_reports"`
	ChannelBotspam        string       `bson:"channel_botspam"`
	FreezeableChannels    []string     `bson:"freezeable_channels"`
	FilterWords           []FilterWord `bson:"filter_words"`
	RaidPhrases           []FilterWord `bson:"raid_phrases"`
	WhitelistedGuilds     []string     `bson:"whitelisted_guilds"`
	IgnoredChannels       []string     `bson:"ignored_channels"`
	Tags                  []Tag        `bson:"tags"`
	BanTodaySpamAccounts  bool         `bson:"ban_today_spam_accounts"`
}

// KarmaEntry is one append-only history record; CounterpartyID is the giver
// on received entries and the receiver on given entries.
type KarmaEntry struct {
	Amount         int64     `bson:"amount"`
	CounterpartyID string    `bson:"counterparty_id"`
	Date           time.Time `bson:"date"`
	Reason         string    `bson:"reason"`
}

// UserProfile is lazily created on first access and never deleted, only
// reassigned to a new id during a profile transfer.
type UserProfile struct {
	UserID               string       `bson:"_id"`
	Karma                int64        `bson:"karma"`
	KarmaGivenHistory    []KarmaEntry `bson:"karma_given_history"`
	KarmaReceivedHistory []KarmaEntry `bson:"karma_received_history"`
	IsMuted              bool         `bson:"is_muted"`
	RaidVerified         bool         `bson:"raid_verified"`
	OfflineReportPing    bool         `bson:"offline_report_ping"`
}

type JobKind string

const (
	JobUnmute         JobKind = "unmute"
	JobUntimeout      JobKind = "untimeout"
	JobRemoveBirthday JobKind = "remove_birthday"
	JobReminder       JobKind = "reminder"
)

// Job is a persisted one-shot action. Key is kind:user so at most one live
// job exists per (kind, user); scheduling again replaces it.
type Job struct {
	Key     string    `bson:"_id"`
	Kind    JobKind   `bson:"kind"`
	UserID  string    `bson:"user_id"`
	DueAt   time.Time `bson:"due_at"`
	Payload string    `bson:"payload,omitempty"`
}

func JobKey(kind JobKind, userID string) string {
	return string(kind) + ":" + userID
}
