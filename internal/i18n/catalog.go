// Package i18n holds the English and Arabic UI strings and picks a locale
// for a request.
package i18n

import (
	"embed"
	"fmt"
	"strings"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/yegors/wmo-decoder/pkg/logger"
)

//go:embed active.*.toml
var localeFS embed.FS

// Supported locales
const (
	English = "en"
	Arabic  = "ar"
)

// Message IDs
const (
	AppTitle              = "app_title"
	AppSubtitle           = "app_subtitle"
	InputPlaceholder      = "input_placeholder"
	Submit                = "submit"
	Submitting            = "submitting"
	Try                   = "try"
	Loading               = "loading"
	ErrorTitle            = "error_title"
	ResultTitle           = "result_title"
	ResultSubtitle        = "result_subtitle"
	Verified              = "verified"
	CodeLabel             = "code_label"
	NumericLabel          = "numeric_label"
	NameLabel             = "name_label"
	DescriptionLabel      = "description_label"
	DescriptionArLabel    = "description_ar_label"
	SourcesLabel          = "sources_label"
	HistoryTitle          = "history_title"
	FooterBasis           = "footer_basis"
	FooterReference       = "footer_reference"
	SetupTitle            = "setup_title"
	SetupStepKey          = "setup_step_key"
	SetupStepEnv          = "setup_step_env"
	SetupStepRestart      = "setup_step_restart"
	SetupStepRestrictions = "setup_step_restrictions"
	SetupKeyLink          = "setup_key_link"
	SetupConsoleLink      = "setup_console_link"
)

var supported = []language.Tag{language.English, language.Arabic}

// Catalog is a thin wrapper around go-i18n's Bundle plus a locale matcher.
type Catalog struct {
	bundle   *goi18n.Bundle
	tags     []language.Tag
	matcher  language.Matcher
	fallback language.Tag
	logger   *logger.Logger
}

// New loads the embedded message files. An unknown defaultLocale falls back to English.
func New(defaultLocale string, log *logger.Logger) (*Catalog, error) {
	fallback := language.English
	if tag, err := language.Parse(defaultLocale); err == nil && baseOf(tag) == Arabic {
		fallback = language.Arabic
	}

	bundle := goi18n.NewBundle(fallback)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range []string{"active.en.toml", "active.ar.toml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	// The matcher falls back to its first tag, so the default goes first.
	tags := []language.Tag{fallback}
	for _, t := range supported {
		if t != fallback {
			tags = append(tags, t)
		}
	}

	return &Catalog{
		bundle:   bundle,
		tags:     tags,
		matcher:  language.NewMatcher(tags),
		fallback: fallback,
		logger:   log.Named("i18n"),
	}, nil
}

// Default returns the configured fallback locale
func (c *Catalog) Default() string {
	return baseOf(c.fallback)
}

// Match picks a supported locale. An explicit lang (a query parameter) wins
// over the Accept-Language header.
func (c *Catalog) Match(lang, acceptLanguage string) string {
	var wanted []language.Tag
	if lang = strings.TrimSpace(lang); lang != "" {
		if tag, err := language.Parse(lang); err == nil {
			wanted = append(wanted, tag)
		}
	}
	if len(wanted) == 0 && acceptLanguage != "" {
		tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
		if err == nil {
			wanted = tags
		}
	}
	if len(wanted) == 0 {
		return c.Default()
	}

	_, idx, conf := c.matcher.Match(wanted...)
	if conf == language.No {
		return c.Default()
	}
	if idx < 0 || idx >= len(c.tags) {
		return c.Default()
	}
	return baseOf(c.tags[idx])
}

// Dir returns the text direction for locale
func Dir(locale string) string {
	if locale == Arabic {
		return "rtl"
	}
	return "ltr"
}

// T renders the message identified by key for the given locale.
// Missing keys fall back to the default locale, then to the key itself.
func (c *Catalog) T(locale, key string) string {
	return c.TData(locale, key, nil)
}

// TData is T with template data for messages that take arguments
func (c *Catalog) TData(locale, key string, data map[string]any) string {
	if key == "" {
		return ""
	}

	languages := []string{}
	if locale != "" {
		languages = append(languages, locale)
	}
	languages = append(languages, c.fallback.String())

	localizer := goi18n.NewLocalizer(c.bundle, languages...)
	msg, err := localizer.Localize(&goi18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		c.logger.Warn("Localize failed",
			logger.String("key", key),
			logger.String("locale", locale),
			logger.Error(err))
		return key
	}
	return msg
}

func baseOf(tag language.Tag) string {
	base, _ := tag.Base()
	return base.String()
}
