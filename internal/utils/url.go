package utils

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var (
	urlRegex    = regexp.MustCompile(`https?://[^\s]+`)
	inviteRegex = regexp.MustCompile(`(?:https?://)?discord(?:(?:app)?\.com/invite|\.gg)/+([a-zA-Z0-9-]+)`)
)

func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

// ExtractInviteCodes pulls invite codes out of message content, matching
// discord.gg and discord.com/invite links with or without a scheme.
func ExtractInviteCodes(content string) []string {
	var codes []string
	for _, match := range inviteRegex.FindAllStringSubmatch(content, -1) {
		codes = append(codes, match[1])
	}
	return codes
}

// NormalizeHost lowercases a URL's host and converts internationalized
// hostnames to their ASCII form, so lookalike domains compare against
// filter entries in one alphabet.
func NormalizeHost(raw string) (string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	host := strings.ToLower(parsed.Hostname())
	if asciiHost, err := idna.ToASCII(host); err == nil {
		host = asciiHost
	}
	return host, nil
}
