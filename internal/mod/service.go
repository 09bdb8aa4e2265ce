package mod

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vigil/internal/store"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// Target-state rejections, rendered back to the invoker by the bot layer.
var (
	ErrSelfTarget    = errors.New("you can't call that on yourself")
	ErrBotTarget     = errors.New("you can't call that on bots")
	ErrAlreadyMuted  = errors.New("this user is already muted")
	ErrNotMuted      = errors.New("this user is not muted")
	ErrCaseNotFound  = errors.New("no case with that id")
	ErrNotAWarn      = errors.New("that case is not a warn case")
	ErrAlreadyLifted = errors.New("that case was already lifted")
	ErrKarmaRange    = errors.New("karma amount must be between 1 and 3")
)

// Actor identifies a user on either side of a moderation action.
type Actor struct {
	ID  string
	Tag string
}

// GuildStore, UserStore and CaseStore are the slices of the Mongo
// repositories the service needs; in-memory fakes stand in for them in
// tests.
type GuildStore interface {
	Get(ctx context.Context, guildID string) (store.GuildConfig, error)
	IncCaseID(ctx context.Context, guildID string) (int64, error)
}

type UserStore interface {
	Get(ctx context.Context, userID string) (store.UserProfile, error)
	SetMuted(ctx context.Context, userID string, muted bool) error
	AddKarmaReceived(ctx context.Context, userID string, entry store.KarmaEntry) (int64, error)
	AddKarmaGiven(ctx context.Context, userID string, entry store.KarmaEntry) error
	Transfer(ctx context.Context, oldID, newID string) error
}

type CaseStore interface {
	Collection(ctx context.Context, userID string) (store.CaseCollection, error)
	Append(ctx context.Context, userID string, item store.Case) error
	Save(ctx context.Context, coll store.CaseCollection) error
	Transfer(ctx context.Context, oldID, newID string) (int, error)
}

type Scheduler interface {
	Schedule(ctx context.Context, kind store.JobKind, userID string, dueAt time.Time, payload string) error
	Cancel(ctx context.Context, kind store.JobKind, userID string) error
}

// Executor carries the Discord side effects. The bot layer implements it
// against the live session.
type Executor interface {
	Ban(guildID, userID, reason string) error
	Unban(guildID, userID, reason string) error
	Kick(guildID, userID, reason string) error
	AddRole(guildID, userID, roleID string) error
	RemoveRole(guildID, userID, roleID string) error
	Timeout(guildID, userID string, until *time.Time) error
	DM(userID, content string, embed *discordgo.MessageEmbed) bool
	ModLog(cfg store.GuildConfig, embed *discordgo.MessageEmbed)
}

// Result is what a completed action hands back to the command layer.
type Result struct {
	Case  store.Case
	Embed *discordgo.MessageEmbed
	DMed  bool
	// Extra carries operation-specific output, e.g. transferred case count.
	Extra int
}

// Service runs moderation actions: it writes the case ledger, flips profile
// state, schedules reversals and drives Discord through the executor.
// Permission checks against the invoking member happen in the bot layer
// before the service is called.
type Service struct {
	guilds    GuildStore
	users     UserStore
	cases     CaseStore
	sched     Scheduler
	exec      Executor
	logger    *zap.Logger
	guildName string
}

func NewService(guilds GuildStore, users UserStore, cases CaseStore, sched Scheduler, exec Executor, logger *zap.Logger) *Service {
	return &Service{guilds: guilds, users: users, cases: cases, sched: sched, exec: exec, logger: logger}
}

// SetGuildName sets the display name used in DM texts. Called once the
// session knows the guild.
func (s *Service) SetGuildName(name string) {
	s.guildName = name
}

// newCase allocates the next case id and fills the common fields. The
// increment and the append are two independent store calls: a crash in
// between leaves a gap in case ids, which is fine, ids only need to be
// unique.
func (s *Service) newCase(ctx context.Context, guildID string, t store.CaseType, mod Actor, reason string) (store.Case, error) {
	id, err := s.guilds.IncCaseID(ctx, guildID)
	if err != nil {
		return store.Case{}, fmt.Errorf("increment case id: %w", err)
	}
	return store.Case{
		ID:     id,
		Type:   t,
		Date:   time.Now(),
		ModID:  mod.ID,
		ModTag: mod.Tag,
		Reason: reason,
	}, nil
}

func (s *Service) modLog(ctx context.Context, guildID string, embed *discordgo.MessageEmbed) {
	cfg, err := s.guilds.Get(ctx, guildID)
	if err != nil {
		s.logger.Error("guild config load failed", zap.Error(err))
		return
	}
	s.exec.ModLog(cfg, embed)
}

func validateTarget(mod, target Actor, targetIsBot bool) error {
	if target.ID == mod.ID {
		return ErrSelfTarget
	}
	if targetIsBot {
		return ErrBotTarget
	}
	return nil
}

func (s *Service) Warn(ctx context.Context, guildID string, mod, target Actor, targetIsBot bool, reason string) (*Result, error) {
	if err := validateTarget(mod, target, targetIsBot); err != nil {
		return nil, err
	}
	c, err := s.newCase(ctx, guildID, store.CaseWarn, mod, reason)
	if err != nil {
		return nil, err
	}
	c.Punishment = "WARN"
	if err := s.cases.Append(ctx, target.ID, c); err != nil {
		return nil, fmt.Errorf("append case: %w", err)
	}
	embed := caseEmbed("Member warned", target, c)
	dmed := s.exec.DM(target.ID, fmt.Sprintf("You were warned in %s.", s.guildName), embed)
	s.modLog(ctx, guildID, embed)
	return &Result{Case: c, Embed: embed, DMed: dmed}, nil
}

func (s *Service) LiftWarn(ctx context.Context, guildID string, mod, target Actor, caseID int64, reason string) (*Result, error) {
	coll, err := s.cases.Collection(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("load cases: %w", err)
	}
	c := coll.ByID(caseID)
	switch {
	case c == nil:
		return nil, ErrCaseNotFound
	case c.Type != store.CaseWarn:
		return nil, ErrNotAWarn
	case c.Lifted:
		return nil, ErrAlreadyLifted
	}
	now := time.Now()
	c.Lifted = true
	c.LiftedBy = mod.ID
	c.LiftedByTag = mod.Tag
	c.LiftedAt = &now
	c.LiftedReason = reason
	if err := s.cases.Save(ctx, coll); err != nil {
		return nil, fmt.Errorf("save cases: %w", err)
	}
	embed := liftWarnEmbed(target, *c)
	dmed := s.exec.DM(target.ID, fmt.Sprintf("Your warn was lifted in %s.", s.guildName), embed)
	s.modLog(ctx, guildID, embed)
	return &Result{Case: *c, Embed: embed, DMed: dmed}, nil
}

func (s *Service) EditReason(ctx context.Context, guildID string, mod, target Actor, caseID int64, newReason string) (*Result, error) {
	coll, err := s.cases.Collection(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("load cases: %w", err)
	}
	c := coll.ByID(caseID)
	if c == nil {
		return nil, ErrCaseNotFound
	}
	c.OldReason = c.Reason
	c.Reason = newReason
	c.Date = time.Now()
	if err := s.cases.Save(ctx, coll); err != nil {
		return nil, fmt.Errorf("save cases: %w", err)
	}
	embed := editReasonEmbed(target, *c)
	dmed := s.exec.DM(target.ID, fmt.Sprintf("Your case was updated in %s.", s.guildName), embed)
	s.modLog(ctx, guildID, embed)
	return &Result{Case: *c, Embed: embed, DMed: dmed}, nil
}

func (s *Service) Kick(ctx context.Context, guildID string, mod, target Actor, targetIsBot bool, reason string) (*Result, error) {
	if err := validateTarget(mod, target, targetIsBot); err != nil {
		return nil, err
	}
	c, err := s.newCase(ctx, guildID, store.CaseKick, mod, reason)
	if err != nil {
		return nil, err
	}
	if err := s.cases.Append(ctx, target.ID, c); err != nil {
		return nil, fmt.Errorf("append case: %w", err)
	}
	embed := caseEmbed("Member kicked", target, c)
	dmed := s.exec.DM(target.ID, fmt.Sprintf("You were kicked from %s.", s.guildName), embed)
	if err := s.exec.Kick(guildID, target.ID, auditReason(mod, reason)); err != nil {
		return nil, fmt.Errorf("kick: %w", err)
	}
	s.modLog(ctx, guildID, embed)
	return &Result{Case: c, Embed: embed, DMed: dmed}, nil
}

func (s *Service) Ban(ctx context.Context, guildID string, mod, target Actor, targetIsBot bool, reason string) (*Result, error) {
	if err := validateTarget(mod, target, targetIsBot); err != nil {
		return nil, err
	}
	c, err := s.newCase(ctx, guildID, store.CaseBan, mod, reason)
	if err != nil {
		return nil, err
	}
	c.Punishment = "PERMANENT"
	if err := s.cases.Append(ctx, target.ID, c); err != nil {
		return nil, fmt.Errorf("append case: %w", err)
	}
	embed := caseEmbed("Member banned", target, c)
	dmed := s.exec.DM(target.ID, fmt.Sprintf("You were banned from %s.", s.guildName), embed)
	// ban by id so it also lands on users who already left
	if err := s.exec.Ban(guildID, target.ID, auditReason(mod, reason)); err != nil {
		return nil, fmt.Errorf("ban: %w", err)
	}
	s.modLog(ctx, guildID, embed)
	return &Result{Case: c, Embed: embed, DMed: dmed}, nil
}

func (s *Service) Unban(ctx context.Context, guildID string, mod, target Actor, reason string) (*Result, error) {
	if err := s.exec.Unban(guildID, target.ID, auditReason(mod, reason)); err != nil {
		return nil, fmt.Errorf("unban: %w", err)
	}
	c, err := s.newCase(ctx, guildID, store.CaseUnban, mod, reason)
	if err != nil {
		return nil, err
	}
	if err := s.cases.Append(ctx, target.ID, c); err != nil {
		return nil, fmt.Errorf("append case: %w", err)
	}
	embed := caseEmbed("Member unbanned", target, c)
	s.modLog(ctx, guildID, embed)
	return &Result{Case: c, Embed: embed}, nil
}

// Mute gives the target the mute role. dur == 0 means permanent; otherwise
// an unmute job is scheduled, replacing any pending one.
func (s *Service) Mute(ctx context.Context, guildID string, mod, target Actor, targetIsBot bool, dur time.Duration, reason string) (*Result, error) {
	if err := validateTarget(mod, target, targetIsBot); err != nil {
		return nil, err
	}
	profile, err := s.users.Get(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if profile.IsMuted {
		return nil, ErrAlreadyMuted
	}
	c, err := s.newCase(ctx, guildID, store.CaseMute, mod, reason)
	if err != nil {
		return nil, err
	}
	if dur > 0 {
		until := c.Date.Add(dur)
		c.Until = &until
		c.Punishment = dur.String()
		if err := s.sched.Schedule(ctx, store.JobUnmute, target.ID, until, ""); err != nil {
			return nil, fmt.Errorf("schedule unmute: %w", err)
		}
	} else {
		c.Punishment = "PERMANENT"
	}
	if err := s.cases.Append(ctx, target.ID, c); err != nil {
		return nil, fmt.Errorf("append case: %w", err)
	}
	if err := s.users.SetMuted(ctx, target.ID, true); err != nil {
		return nil, fmt.Errorf("set muted: %w", err)
	}
	cfg, err := s.guilds.Get(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("guild config: %w", err)
	}
	if err := s.exec.AddRole(guildID, target.ID, cfg.RoleMute); err != nil {
		return nil, fmt.Errorf("add mute role: %w", err)
	}
	embed := caseEmbed("Member muted", target, c)
	dmed := s.exec.DM(target.ID, fmt.Sprintf("You have been muted in %s.", s.guildName), embed)
	s.exec.ModLog(cfg, embed)
	return &Result{Case: c, Embed: embed, DMed: dmed}, nil
}

func (s *Service) Unmute(ctx context.Context, guildID string, mod, target Actor, reason string) (*Result, error) {
	profile, err := s.users.Get(ctx, target.ID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if !profile.IsMuted {
		return nil, ErrNotMuted
	}
	cfg, err := s.guilds.Get(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("guild config: %w", err)
	}
	if err := s.exec.RemoveRole(guildID, target.ID, cfg.RoleMute); err != nil {
		return nil, fmt.Errorf("remove mute role: %w", err)
	}
	if err := s.users.SetMuted(ctx, target.ID, false); err != nil {
		return nil, fmt.Errorf("set muted: %w", err)
	}
	_ = s.sched.Cancel(ctx, store.JobUnmute, target.ID)
	c, err := s.newCase(ctx, guildID, store.CaseUnmute, mod, reason)
	if err != nil {
		return nil, err
	}
	if err := s.cases.Append(ctx, target.ID, c); err != nil {
		return nil, fmt.Errorf("append case: %w", err)
	}
	embed := caseEmbed("Member unmuted", target, c)
	dmed := s.exec.DM(target.ID, fmt.Sprintf("You have been unmuted in %s.", s.guildName), embed)
	s.exec.ModLog(cfg, embed)
	return &Result{Case: c, Embed: embed, DMed: dmed}, nil
}

// Timeout uses Discord's native communication timeout and schedules its
// removal.
func (s *Service) Timeout(ctx context.Context, guildID string, mod, target Actor, targetIsBot bool, dur time.Duration, reason string) (*Result, error) {
	if err := validateTarget(mod, target, targetIsBot); err != nil {
		return nil, err
	}
	if dur <= 0 {
		return nil, fmt.Errorf("timeout needs a positive duration")
	}
	c, err := s.newCase(ctx, guildID, store.CaseTimeout, mod, reason)
	if err != nil {
		return nil, err
	}
	until := c.Date.Add(dur)
	c.Until = &until
	c.Punishment = dur.String()
	if err := s.exec.Timeout(guildID, target.ID, &until); err != nil {
		return nil, fmt.Errorf("timeout: %w", err)
	}
	if err := s.cases.Append(ctx, target.ID, c); err != nil {
		return nil, fmt.Errorf("append case: %w", err)
	}
	if err := s.sched.Schedule(ctx, store.JobUntimeout, target.ID, until, ""); err != nil {
		return nil, fmt.Errorf("schedule untimeout: %w", err)
	}
	embed := caseEmbed("Member timed out", target, c)
	dmed := s.exec.DM(target.ID, fmt.Sprintf("You have been timed out in %s.", s.guildName), embed)
	s.modLog(ctx, guildID, embed)
	return &Result{Case: c, Embed: embed, DMed: dmed}, nil
}

func (s *Service) Untimeout(ctx context.Context, guildID string, mod, target Actor, reason string) (*Result, error) {
	if err := s.exec.Timeout(guildID, target.ID, nil); err != nil {
		return nil, fmt.Errorf("remove timeout: %w", err)
	}
	_ = s.sched.Cancel(ctx, store.JobUntimeout, target.ID)
	c, err := s.newCase(ctx, guildID, store.CaseUntimeout, mod, reason)
	if err != nil {
		return nil, err
	}
	if err := s.cases.Append(ctx, target.ID, c); err != nil {
		return nil, fmt.Errorf("append case: %w", err)
	}
	embed := caseEmbed("Timeout removed", target, c)
	dmed := s.exec.DM(target.ID, fmt.Sprintf("Your timeout was removed in %s.", s.guildName), embed)
	s.modLog(ctx, guildID, embed)
	return &Result{Case: c, Embed: embed, DMed: dmed}, nil
}

// Rundown returns the target's three most recent cases, unmutes excluded.
func (s *Service) Rundown(ctx context.Context, userID string) ([]store.Case, error) {
	coll, err := s.cases.Collection(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cases: %w", err)
	}
	return coll.Rundown(3), nil
}

// TransferProfile moves a user profile and its case collection to a new id.
// The old collection is left emptied, not deleted. Returns the number of
// transferred cases.
func (s *Service) TransferProfile(ctx context.Context, oldID, newID string) (int, error) {
	if err := s.users.Transfer(ctx, oldID, newID); err != nil {
		return 0, fmt.Errorf("transfer profile: %w", err)
	}
	count, err := s.cases.Transfer(ctx, oldID, newID)
	if err != nil {
		return 0, fmt.Errorf("transfer cases: %w", err)
	}
	return count, nil
}

// Birthday gives the target the birthday role for the rest of the calendar
// day and schedules its removal at local midnight.
func (s *Service) Birthday(ctx context.Context, guildID, userID string, now time.Time) error {
	cfg, err := s.guilds.Get(ctx, guildID)
	if err != nil {
		return fmt.Errorf("guild config: %w", err)
	}
	if cfg.RoleBirthday == "" {
		return nil
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).Add(24 * time.Hour)
	if err := s.sched.Schedule(ctx, store.JobRemoveBirthday, userID, midnight, ""); err != nil {
		return fmt.Errorf("schedule birthday removal: %w", err)
	}
	if err := s.exec.AddRole(guildID, userID, cfg.RoleBirthday); err != nil {
		return fmt.Errorf("add birthday role: %w", err)
	}
	_ = s.exec.DM(userID, "According to my calculations, today is your birthday! You have the birthday role for the rest of the day.", nil)
	return nil
}

// GiveKarma adds 1-3 karma to the target, recording history on both sides.
// Returns the target's new karma score.
func (s *Service) GiveKarma(ctx context.Context, giver, target Actor, targetIsBot bool, amount int64, reason string) (int64, error) {
	return s.applyKarma(ctx, giver, target, targetIsBot, amount, reason)
}

// TakeKarma removes 1-3 karma from the target.
func (s *Service) TakeKarma(ctx context.Context, giver, target Actor, targetIsBot bool, amount int64, reason string) (int64, error) {
	return s.applyKarma(ctx, giver, target, targetIsBot, -amount, reason)
}

func (s *Service) applyKarma(ctx context.Context, giver, target Actor, targetIsBot bool, amount int64, reason string) (int64, error) {
	abs := amount
	if abs < 0 {
		abs = -abs
	}
	if abs < 1 || abs > 3 {
		return 0, ErrKarmaRange
	}
	if err := validateTarget(giver, target, targetIsBot); err != nil {
		return 0, err
	}
	now := time.Now()
	score, err := s.users.AddKarmaReceived(ctx, target.ID, store.KarmaEntry{
		Amount:         amount,
		CounterpartyID: giver.ID,
		Date:           now,
		Reason:         reason,
	})
	if err != nil {
		return 0, fmt.Errorf("karma received: %w", err)
	}
	if err := s.users.AddKarmaGiven(ctx, giver.ID, store.KarmaEntry{
		Amount:         amount,
		CounterpartyID: target.ID,
		Date:           now,
		Reason:         reason,
	}); err != nil {
		return 0, fmt.Errorf("karma given: %w", err)
	}
	return score, nil
}

func auditReason(mod Actor, reason string) string {
	return mod.Tag + ": " + reason
}
