package report

import (
	"strings"
	"testing"

	"vigil/internal/store"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type fakeSender struct {
	channelID string
	data      *discordgo.MessageSend
	calls     int
}

func (f *fakeSender) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channelID = channelID
	f.data = data
	f.calls++
	return &discordgo.Message{ID: "1"}, nil
}

func TestRaidAlertPingsModRoleAndOptedInUsers(t *testing.T) {
	sender := &fakeSender{}
	r := NewReporter(sender, zap.NewNop())
	cfg := store.GuildConfig{ChannelReports: "reports", RoleModerator: "modrole"}

	r.RaidAlert(cfg, &discordgo.User{ID: "123", Username: "raider"}, "join flood", []string{"42"})

	if sender.channelID != "reports" {
		t.Fatalf("sent to %q, want reports channel", sender.channelID)
	}
	if !strings.Contains(sender.data.Content, "<@&modrole>") {
		t.Errorf("content %q missing moderator role ping", sender.data.Content)
	}
	if !strings.Contains(sender.data.Content, "<@42>") {
		t.Errorf("content %q missing offline ping", sender.data.Content)
	}
	if len(sender.data.Embeds) != 1 || sender.data.Embeds[0].Title != "Raid detected" {
		t.Fatal("raid embed missing")
	}
}

func TestSpamReportHasNoPings(t *testing.T) {
	sender := &fakeSender{}
	r := NewReporter(sender, zap.NewNop())
	cfg := store.GuildConfig{ChannelReports: "reports", RoleModerator: "modrole"}

	r.SpamReport(cfg, &discordgo.User{ID: "123", Username: "spammer"}, "Possible spammer", "buy nitro")

	if sender.data.Content != "" {
		t.Fatalf("spam report content = %q, want empty", sender.data.Content)
	}
}

func TestReportDroppedWithoutChannel(t *testing.T) {
	sender := &fakeSender{}
	r := NewReporter(sender, zap.NewNop())

	r.SpamReport(store.GuildConfig{}, &discordgo.User{ID: "1"}, "t", "m")

	if sender.calls != 0 {
		t.Fatalf("send called %d times, want 0", sender.calls)
	}
}
