package perms

import (
	"vigil/internal/store"

	"github.com/bwmarrin/discordgo"
)

// Permission levels, lowest to highest. Every level is satisfied by any
// higher one.
const (
	Everyone  = 0
	Trusted   = 1
	Moderator = 2
	Admin     = 3
	Owner     = 4
	BotOwner  = 5
)

var levelNames = map[int]string{
	Everyone:  "Everyone and up",
	Trusted:   "Trusted members and up",
	Moderator: "Moderators and up",
	Admin:     "Administrators and up",
	Owner:     "Guild owner and up",
	BotOwner:  "Bot owner",
}

// Oracle computes a member's permission level from their roles, the guild
// role mappings in config, and guild ownership.
type Oracle struct {
	guildID    string
	botOwnerID string
}

func NewOracle(guildID, botOwnerID string) *Oracle {
	return &Oracle{guildID: guildID, botOwnerID: botOwnerID}
}

func (o *Oracle) HasAtLeast(guild *discordgo.Guild, member *discordgo.Member, cfg store.GuildConfig, level int) bool {
	return o.LevelOf(guild, member, cfg) >= level
}

func (o *Oracle) LevelOf(guild *discordgo.Guild, member *discordgo.Member, cfg store.GuildConfig) int {
	if guild == nil || member == nil || member.User == nil {
		return Everyone
	}
	if guild.ID != o.guildID {
		return Everyone
	}
	if o.botOwnerID != "" && member.User.ID == o.botOwnerID {
		return BotOwner
	}
	if guild.OwnerID == member.User.ID {
		return Owner
	}
	if memberHasManageGuild(guild, member) {
		return Admin
	}
	if hasRole(member, cfg.RoleModerator) {
		return Moderator
	}
	if hasRole(member, cfg.RoleTrusted) {
		return Trusted
	}
	return Everyone
}

func LevelName(level int) string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return "Unknown"
}

func hasRole(member *discordgo.Member, roleID string) bool {
	if roleID == "" {
		return false
	}
	for _, id := range member.Roles {
		if id == roleID {
			return true
		}
	}
	return false
}

func memberHasManageGuild(guild *discordgo.Guild, member *discordgo.Member) bool {
	perms := int64(0)
	roleMap := make(map[string]*discordgo.Role, len(guild.Roles))
	for _, role := range guild.Roles {
		roleMap[role.ID] = role
		if role.ID == guild.ID {
			perms |= role.Permissions
		}
	}
	for _, roleID := range member.Roles {
		if role := roleMap[roleID]; role != nil {
			perms |= role.Permissions
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return perms&discordgo.PermissionManageServer != 0
}
