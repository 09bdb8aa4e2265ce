package utils

import "testing"

func TestExtractInviteCodes(t *testing.T) {
	tests := []struct {
		content string
		want    []string
	}{
		{"join https://discord.gg/abc123 now", []string{"abc123"}},
		{"discord.com/invite/xyz", []string{"xyz"}},
		{"https://discordapp.com/invite/old-one", []string{"old-one"}},
		{"two discord.gg/a and discord.gg/b", []string{"a", "b"}},
		{"no invites here", nil},
	}
	for _, tt := range tests {
		got := ExtractInviteCodes(tt.content)
		if len(got) != len(tt.want) {
			t.Fatalf("ExtractInviteCodes(%q) = %v, want %v", tt.content, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("ExtractInviteCodes(%q) = %v, want %v", tt.content, got, tt.want)
			}
		}
	}
}

func TestNormalizeHostPunycode(t *testing.T) {
	host, err := NormalizeHost("https://яндекс.рф/path")
	if err != nil {
		t.Fatal(err)
	}
	if host != "xn--d1acpjx3f.xn--p1ai" {
		t.Fatalf("host = %q", host)
	}

	host, err = NormalizeHost("Example.COM/page")
	if err != nil {
		t.Fatal(err)
	}
	if host != "example.com" {
		t.Fatalf("host = %q", host)
	}
}
