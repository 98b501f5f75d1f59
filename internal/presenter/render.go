package presenter

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/yegors/wmo-decoder/internal/i18n"
	"github.com/yegors/wmo-decoder/internal/query"
	"github.com/yegors/wmo-decoder/internal/session"
	"github.com/yegors/wmo-decoder/internal/templating"
	"github.com/yegors/wmo-decoder/internal/wxcode"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))

// Chrome holds the page labels around the result card
type Chrome struct {
	Title, Subtitle              string
	Placeholder                  string
	Submit, Submitting, Try      string
	FooterBasis, FooterReference string
}

// HistoryItem is one row of the recent lookups list
type HistoryItem struct {
	ID        string
	Code      string
	Name      string
	NameAr    string
	Time      string // local clock time
	Timestamp string // RFC 3339
}

// History is the recent lookups list
type History struct {
	Locale string
	Title  string
	Items  []HistoryItem
}

// Page is everything the full page template needs
type Page struct {
	Locale       string
	Dir          string
	Version      uint64
	Busy         bool
	Chrome       Chrome
	View         View
	Examples     []query.Example
	History      History
	ReferenceURL string
}

// Page builds the full page model for snap
func (p *Presenter) Page(snap session.Snapshot, locale string) Page {
	t := func(key string) string { return p.messages.T(locale, key) }

	return Page{
		Locale:  locale,
		Dir:     i18n.Dir(locale),
		Version: snap.Version,
		Busy:    snap.State.Loading,
		Chrome: Chrome{
			Title:           t(i18n.AppTitle),
			Subtitle:        t(i18n.AppSubtitle),
			Placeholder:     t(i18n.InputPlaceholder),
			Submit:          t(i18n.Submit),
			Submitting:      t(i18n.Submitting),
			Try:             t(i18n.Try),
			FooterBasis:     t(i18n.FooterBasis),
			FooterReference: t(i18n.FooterReference),
		},
		View:         p.Present(snap.State, locale),
		Examples:     query.Examples(),
		History:      p.History(snap.History, locale),
		ReferenceURL: templating.WMOReferenceURL,
	}
}

// History builds the recent lookups list. Times are shown in the server's local zone.
func (p *Presenter) History(entries []wxcode.HistoryEntry, locale string) History {
	items := make([]HistoryItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, HistoryItem{
			ID:        e.ID,
			Code:      e.Code,
			Name:      e.Name,
			NameAr:    e.NameAr,
			Time:      e.CreatedAt.Local().Format(time.TimeOnly),
			Timestamp: e.CreatedAt.Format(time.RFC3339),
		})
	}

	return History{
		Locale: locale,
		Title:  p.messages.T(locale, i18n.HistoryTitle),
		Items:  items,
	}
}

// Render writes the result card fragment for v
func Render(w io.Writer, v View) error {
	if err := templates.ExecuteTemplate(w, "card", v); err != nil {
		return fmt.Errorf("failed to render card: %w", err)
	}
	return nil
}

// RenderString is Render into a string, for websocket pushes
func RenderString(v View) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderState renders the card and history fragments pushed to live clients
func (p *Presenter) RenderState(snap session.Snapshot, locale string) (map[string]any, error) {
	view := p.Present(snap.State, locale)

	var card, hist bytes.Buffer
	if err := Render(&card, view); err != nil {
		return nil, err
	}
	if err := RenderHistory(&hist, p.History(snap.History, locale)); err != nil {
		return nil, err
	}

	return map[string]any{
		"version": snap.Version,
		"loading": snap.State.Loading,
		"mode":    view.Mode,
		"locale":  locale,
		"card":    card.String(),
		"history": hist.String(),
	}, nil
}

// RenderHistory writes the recent lookups fragment
func RenderHistory(w io.Writer, h History) error {
	if err := templates.ExecuteTemplate(w, "history", h); err != nil {
		return fmt.Errorf("failed to render history: %w", err)
	}
	return nil
}

// RenderPage writes the full HTML page
func RenderPage(w io.Writer, page Page) error {
	if err := templates.ExecuteTemplate(w, "page", page); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}
