package wxcode

import (
	"regexp"
	"strings"
)

// Labels expected in a model reply, one per line as "LABEL: value"
const (
	LabelCode          = "CODE"
	LabelNumericCode   = "NUMERIC_CODE"
	LabelName          = "NAME"
	LabelNameAr        = "NAME_AR"
	LabelDescription   = "DESCRIPTION"
	LabelDescriptionAr = "DESCRIPTION_AR"
)

// Labels lists every label in template order
var Labels = []string{
	LabelCode,
	LabelNumericCode,
	LabelName,
	LabelNameAr,
	LabelDescription,
	LabelDescriptionAr,
}

// A label only counts at the start of a line, so NUMERIC_CODE never
// satisfies CODE. Bold markers around the label are tolerated.
var labelPatterns = func() map[string]*regexp.Regexp {
	m := make(map[string]*regexp.Regexp, len(Labels))
	for _, label := range Labels {
		m[label] = regexp.MustCompile(`(?im)^[ \t]*(?:\*\*)?` + label + `(?:\*\*)?[ \t]*:(.*)$`)
	}
	return m
}()

// ParseResult is the outcome of parsing one reply
type ParseResult struct {
	Record *Record
	Parsed bool // false when the fallback record was produced
}

// Parse extracts a Record from a plain-text model reply. When CODE or NAME is
// missing the fallback record carries the raw reply as its description.
func Parse(reply string, sourceURLs []string) ParseResult {
	fields := ExtractFields(reply)
	urls := DedupURLs(sourceURLs)

	code, hasCode := fields[LabelCode]
	name, hasName := fields[LabelName]
	if !hasCode || !hasName {
		return ParseResult{
			Record: &Record{
				Code:        UnknownCode,
				NumericCode: NotApplicable,
				Name:        TranslationError,
				Description: reply,
				SourceURLs:  urls,
			},
		}
	}

	numeric, ok := fields[LabelNumericCode]
	if !ok {
		numeric = NotApplicable
	}

	return ParseResult{
		Record: &Record{
			Code:          code,
			NumericCode:   numeric,
			Name:          name,
			NameAr:        fields[LabelNameAr],
			Description:   fields[LabelDescription],
			DescriptionAr: fields[LabelDescriptionAr],
			SourceURLs:    urls,
		},
		Parsed: true,
	}
}

// ExtractFields returns the cleaned value of every label found in reply.
// Labels whose value is empty after cleaning are treated as absent.
func ExtractFields(reply string) map[string]string {
	fields := make(map[string]string, len(Labels))
	for _, label := range Labels {
		match := labelPatterns[label].FindStringSubmatch(reply)
		if match == nil {
			continue
		}
		if v := cleanValue(match[1]); v != "" {
			fields[label] = v
		}
	}
	return fields
}

func cleanValue(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
}

// DedupURLs drops blanks and repeats, keeping first-occurrence order
func DedupURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
