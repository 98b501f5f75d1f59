// Package presenter turns session state into localized views and renders
// them as HTML.
package presenter

import (
	"github.com/yegors/wmo-decoder/internal/i18n"
	"github.com/yegors/wmo-decoder/internal/session"
	"github.com/yegors/wmo-decoder/internal/wxcode"
)

// Mode is the single region of the result card that is visible
type Mode string

const (
	ModeIdle    Mode = "idle"
	ModeLoading Mode = "loading"
	ModeError   Mode = "error"
	ModeResult  Mode = "result"
)

// Links used by the troubleshooting checklist
const (
	APIKeyURL         = "https://aistudio.google.com/app/apikey"
	CloudConsoleURL   = "https://console.cloud.google.com/apis/credentials"
	APIKeyEnvVarNames = "GEMINI_API_KEY or API_KEY"
)

// Localizer is the subset of the message catalogue the presenter needs
type Localizer interface {
	T(locale, key string) string
	TData(locale, key string, data map[string]any) string
}

// Field is one labelled value on the result card
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
	RTL   bool   `json:"rtl,omitempty"`
}

// Step is one troubleshooting checklist item
type Step struct {
	Text      string `json:"text"`
	LinkLabel string `json:"link_label,omitempty"`
	LinkURL   string `json:"link_url,omitempty"`
}

// Checklist is the setup help shown for configuration errors
type Checklist struct {
	Title string `json:"title"`
	Steps []Step `json:"steps"`
}

// Result is the populated result card
type Result struct {
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle"`
	Code          Field    `json:"code"`
	NumericCode   *Field   `json:"numeric_code,omitempty"`
	Name          Field    `json:"name"`
	NameAr        string   `json:"name_ar,omitempty"`
	Description   *Field   `json:"description,omitempty"`
	DescriptionAr *Field   `json:"description_ar,omitempty"`
	Verified      string   `json:"verified,omitempty"`
	SourcesLabel  string   `json:"sources_label,omitempty"`
	Sources       []string `json:"sources,omitempty"`
}

// View is what the result card shows for one state. Exactly one of
// LoadingLabel, Error and Result is populated, according to Mode.
type View struct {
	Mode         Mode        `json:"mode"`
	Locale       string      `json:"locale"`
	Dir          string      `json:"dir"`
	LoadingLabel string      `json:"loading_label,omitempty"`
	ErrorTitle   string      `json:"error_title,omitempty"`
	Error        string      `json:"error,omitempty"`
	ErrorKind    wxcode.Kind `json:"error_kind,omitempty"`
	Checklist    *Checklist  `json:"checklist,omitempty"`
	Result       *Result     `json:"result,omitempty"`
}

// Presenter builds views from session state
type Presenter struct {
	messages Localizer
}

// New creates a presenter using messages for labels
func New(messages Localizer) *Presenter {
	return &Presenter{messages: messages}
}

// Present is a pure function of state and locale
func (p *Presenter) Present(state session.State, locale string) View {
	v := View{Locale: locale, Dir: i18n.Dir(locale)}

	switch {
	case state.Loading:
		v.Mode = ModeLoading
		v.LoadingLabel = p.messages.T(locale, i18n.Loading)
	case state.Err != nil:
		v.Mode = ModeError
		v.ErrorTitle = p.messages.T(locale, i18n.ErrorTitle)
		v.Error = state.Err.Message
		v.ErrorKind = state.Err.Kind
		if state.Err.Kind == wxcode.KindConfiguration {
			v.Checklist = p.Checklist(locale)
		}
	case state.Result != nil:
		v.Mode = ModeResult
		v.Result = p.result(state.Result, locale)
	default:
		v.Mode = ModeIdle
	}
	return v
}

func (p *Presenter) result(rec *wxcode.Record, locale string) *Result {
	t := func(key string) string { return p.messages.T(locale, key) }

	r := &Result{
		Title:    t(i18n.ResultTitle),
		Subtitle: t(i18n.ResultSubtitle),
		Code:     Field{Label: t(i18n.CodeLabel), Value: rec.Code},
		Name:     Field{Label: t(i18n.NameLabel), Value: rec.Name},
		NameAr:   rec.NameAr,
	}
	if rec.HasNumericCode() {
		r.NumericCode = &Field{Label: t(i18n.NumericLabel), Value: rec.NumericCode}
	}
	if rec.Description != "" {
		r.Description = &Field{Label: t(i18n.DescriptionLabel), Value: rec.Description}
	}
	if rec.DescriptionAr != "" {
		r.DescriptionAr = &Field{Label: t(i18n.DescriptionArLabel), Value: rec.DescriptionAr, RTL: true}
	}
	if len(rec.SourceURLs) > 0 {
		r.Verified = t(i18n.Verified)
		r.SourcesLabel = t(i18n.SourcesLabel)
		r.Sources = append([]string(nil), rec.SourceURLs...)
	}
	return r
}

// Checklist returns the API key setup steps in locale
func (p *Presenter) Checklist(locale string) *Checklist {
	t := func(key string) string { return p.messages.T(locale, key) }

	return &Checklist{
		Title: t(i18n.SetupTitle),
		Steps: []Step{
			{Text: t(i18n.SetupStepKey), LinkLabel: t(i18n.SetupKeyLink), LinkURL: APIKeyURL},
			{Text: p.messages.TData(locale, i18n.SetupStepEnv, map[string]any{"EnvVars": APIKeyEnvVarNames})},
			{Text: t(i18n.SetupStepRestart)},
			{Text: t(i18n.SetupStepRestrictions), LinkLabel: t(i18n.SetupConsoleLink), LinkURL: CloudConsoleURL},
		},
	}
}
