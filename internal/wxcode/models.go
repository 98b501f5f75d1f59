package wxcode

import "time"

// NotApplicable marks a record with no synoptic (WMO 4677) equivalent
const NotApplicable = "N/A"

// Fallback values used when a model reply cannot be parsed
const (
	UnknownCode      = "UNKNOWN"
	TranslationError = "Translation Error"
)

// Record is one translated weather code. Treat as immutable once built.
type Record struct {
	Code          string   `json:"code"`
	NumericCode   string   `json:"numeric_code"` // WMO 4677 number or NotApplicable
	Name          string   `json:"name"`
	NameAr        string   `json:"name_ar,omitempty"`
	Description   string   `json:"description"`
	DescriptionAr string   `json:"description_ar,omitempty"`
	SourceURLs    []string `json:"source_urls"`
}

// Clone returns a deep copy so callers never share the URL slice
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.SourceURLs != nil {
		c.SourceURLs = make([]string, len(r.SourceURLs))
		copy(c.SourceURLs, r.SourceURLs)
	}
	return &c
}

// HasNumericCode reports whether a synoptic code should be displayed
func (r *Record) HasNumericCode() bool {
	return r.NumericCode != "" && r.NumericCode != NotApplicable
}

// HistoryEntry is a record retained in the lookup history
type HistoryEntry struct {
	Record
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}
