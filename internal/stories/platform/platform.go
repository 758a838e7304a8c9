package platform

import (
	"net/url"
	"strings"
)

type Platform string

const (
	YouTube   Platform = "youtube"
	TikTok    Platform = "tiktok"
	Instagram Platform = "instagram"
	Unknown   Platform = "unknown"
)

// Порядок важен: первое совпадение по хосту выигрывает.
var hostRules = []struct {
	platform Platform
	hosts    []string
}{
	{YouTube, []string{"youtube.com", "youtu.be"}},
	{TikTok, []string{"tiktok.com", "vt.tiktok.com"}},
	{Instagram, []string{"instagram.com"}},
}

// Detect classifies a link by its host.
func Detect(raw string) Platform {
	host := hostOf(raw)
	if host == "" {
		return Unknown
	}

	for _, rule := range hostRules {
		for _, h := range rule.hosts {
			if strings.Contains(host, h) {
				return rule.platform
			}
		}
	}

	return Unknown
}

// Normalize trims the link at the first '&', dropping tracking and playlist tails.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if i := strings.Index(raw, "&"); i >= 0 {
		return raw[:i]
	}
	return raw
}

// ExtractURL returns the first http(s) link found in a message text.
func ExtractURL(text string) (string, bool) {
	for _, field := range strings.Fields(text) {
		lower := strings.ToLower(field)
		if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
			return field, true
		}
	}
	return "", false
}

func hostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
