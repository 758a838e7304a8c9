package localization

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed translations/*.yaml
var translationsFS embed.FS

const DefaultLang = "ru"

var languages = []string{"ru", "en"}

// Params подстановки для плейсхолдеров {{key}}.
type Params map[string]interface{}

type Service struct {
	translations map[string]map[string]interface{}
}

func NewService() (*Service, error) {
	s := &Service{
		translations: make(map[string]map[string]interface{}),
	}

	for _, lang := range languages {
		data, err := translationsFS.ReadFile(fmt.Sprintf("translations/%s.yaml", lang))
		if err != nil {
			return nil, fmt.Errorf("read %s translations: %w", lang, err)
		}

		var translations map[string]interface{}
		if err := yaml.Unmarshal(data, &translations); err != nil {
			return nil, fmt.Errorf("parse %s translations: %w", lang, err)
		}

		s.translations[lang] = translations
	}

	return s, nil
}

// Lang приводит language_code из Telegram к поддерживаемому языку.
func Lang(code string) string {
	code = strings.ToLower(code)
	for _, lang := range languages {
		if strings.HasPrefix(code, lang) {
			return lang
		}
	}
	return DefaultLang
}

// Get retrieves a translation by key for the given language
// Key format: "section.key". Missing keys fall back to Russian, then to the key itself.
func (s *Service) Get(lang, key string, params map[string]interface{}) string {
	text, ok := s.lookup(lang, key)
	if !ok && lang != DefaultLang {
		text, ok = s.lookup(DefaultLang, key)
	}
	if !ok {
		return key
	}

	return replacePlaceholders(text, params)
}

func (s *Service) lookup(lang, key string) (string, bool) {
	var current interface{} = s.translations[lang]
	for _, part := range strings.Split(key, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return "", false
		}
		current = m[part]
	}

	text, ok := current.(string)
	return text, ok
}

func replacePlaceholders(text string, params map[string]interface{}) string {
	for key, value := range params {
		text = strings.ReplaceAll(text, "{{"+key+"}}", fmt.Sprint(value))
	}
	return text
}
