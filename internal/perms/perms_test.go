package perms

import (
	"testing"

	"vigil/internal/store"

	"github.com/bwmarrin/discordgo"
)

func testGuild() *discordgo.Guild {
	return &discordgo.Guild{
		ID:      "guild",
		OwnerID: "owner",
		Roles: []*discordgo.Role{
			{ID: "guild", Permissions: 0},
			{ID: "mods", Permissions: discordgo.PermissionKickMembers},
			{ID: "staff", Permissions: discordgo.PermissionManageServer},
			{ID: "trusted", Permissions: 0},
		},
	}
}

func member(id string, roles ...string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id}, Roles: roles}
}

func TestLevelOf(t *testing.T) {
	o := NewOracle("guild", "botowner")
	guild := testGuild()
	cfg := store.GuildConfig{RoleTrusted: "trusted", RoleModerator: "mods"}

	tests := []struct {
		name string
		m    *discordgo.Member
		want int
	}{
		{"plain member", member("u1"), Everyone},
		{"trusted role", member("u2", "trusted"), Trusted},
		{"moderator role", member("u3", "mods"), Moderator},
		{"manage server role", member("u4", "staff"), Admin},
		{"guild owner", member("owner"), Owner},
		{"bot owner", member("botowner"), BotOwner},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := o.LevelOf(guild, tt.m, cfg); got != tt.want {
				t.Fatalf("LevelOf = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHasAtLeastSatisfiedByHigherLevel(t *testing.T) {
	o := NewOracle("guild", "botowner")
	guild := testGuild()
	cfg := store.GuildConfig{RoleTrusted: "trusted", RoleModerator: "mods"}

	mod := member("u1", "mods")
	if !o.HasAtLeast(guild, mod, cfg, Trusted) {
		t.Fatal("moderator should satisfy trusted level")
	}
	if o.HasAtLeast(guild, mod, cfg, Admin) {
		t.Fatal("moderator should not satisfy admin level")
	}
}

func TestWrongGuildIsEveryone(t *testing.T) {
	o := NewOracle("guild", "")
	other := testGuild()
	other.ID = "other"
	cfg := store.GuildConfig{RoleModerator: "mods"}
	if got := o.LevelOf(other, member("u1", "mods"), cfg); got != Everyone {
		t.Fatalf("LevelOf on foreign guild = %d, want %d", got, Everyone)
	}
}
