package localization

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	s, err := NewService()
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	tests := []struct {
		lang, key string
		params    map[string]interface{}
		prefix    string
	}{
		{"ru", "download.quota_exceeded", map[string]interface{}{"limit": 10}, "⚠️ Лимит 10"},
		{"ru", "download.age_restricted", nil, "🚫 возрастные ограничения"},
		{"en", "download.fetching", nil, "⏳ Downloading"},
		{"de", "common.busy", nil, "⏳ Предыдущая"},
		{"ru", "missing.key", nil, "missing.key"},
	}

	for _, tt := range tests {
		got := s.Get(tt.lang, tt.key, tt.params)
		if !strings.HasPrefix(got, tt.prefix) {
			t.Errorf("Get(%q, %q) = %q, want prefix %q", tt.lang, tt.key, got, tt.prefix)
		}
	}
}

// Все ключи русского словаря должны быть и в английском.
func TestTranslationsComplete(t *testing.T) {
	s, err := NewService()
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	var walk func(prefix string, node map[string]interface{})
	walk = func(prefix string, node map[string]interface{}) {
		for k, v := range node {
			key := prefix + k
			if child, ok := v.(map[string]interface{}); ok {
				walk(key+".", child)
				continue
			}
			if _, ok := s.lookup("en", key); !ok {
				t.Errorf("en translation missing %q", key)
			}
		}
	}
	walk("", s.translations["ru"])
}

func TestLang(t *testing.T) {
	tests := map[string]string{
		"ru":    "ru",
		"en-US": "en",
		"EN":    "en",
		"uk":    "ru",
		"":      "ru",
	}
	for in, want := range tests {
		if got := Lang(in); got != want {
			t.Errorf("Lang(%q) = %q, want %q", in, got, want)
		}
	}
}
