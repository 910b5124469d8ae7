package dispatch

import (
	"fmt"
	"math"
	"net/http"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLanguageHeader is the request header carrying the language id.
const DefaultLanguageHeader = "X-Locale"

// Site resolves numeric language ids to the languages it is configured for.
type Site interface {
	LanguageByID(id int) (SiteLanguage, error)
}

// SiteLanguage is one language of a site.
type SiteLanguage struct {
	ID    int          `json:"id"`
	Tag   language.Tag `json:"locale"`
	Title string       `json:"title,omitempty"`
}

// StaticSite is a Site backed by a fixed set of languages.
type StaticSite struct {
	languages map[int]SiteLanguage
}

// NewSite builds a StaticSite. Later entries win on duplicate ids.
func NewSite(langs ...SiteLanguage) *StaticSite {
	s := &StaticSite{languages: make(map[int]SiteLanguage, len(langs))}
	for _, l := range langs {
		s.languages[l.ID] = l
	}
	return s
}

// LanguageByID returns the language with the given id. An id the site does
// not know is an internal error wrapping ErrUnknownLanguage, answered with a
// 500 like any other unclassified fault.
func (s *StaticSite) LanguageByID(id int) (SiteLanguage, error) {
	l, ok := s.languages[id]
	if !ok {
		return SiteLanguage{}, fmt.Errorf("%w: %d", ErrUnknownLanguage, id)
	}
	return l, nil
}

// resolveLanguage reads the language header, looks the id up on the site and
// returns r carrying the RequestContext. Errors wrapping ErrHostRequest are
// fatal; any other error goes through fault normalization.
func (d *Dispatcher) resolveLanguage(r *http.Request) (*http.Request, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil request", ErrHostRequest)
	}

	site, ok := SiteFromContext(r.Context())
	if !ok {
		site = d.site
	}
	if site == nil {
		return r, fmt.Errorf("%w: no site attached to request", ErrHostRequest)
	}

	id := d.defaultLanguage
	if values := r.Header.Values(d.languageHeader); len(values) > 0 {
		id = parseLanguageID(values[0])
	}

	lang, err := site.LanguageByID(id)
	if err != nil {
		return r, err
	}

	rc := &RequestContext{
		Method:   r.Method,
		Path:     r.URL.Path,
		Header:   r.Header.Clone(),
		Language: lang,
	}
	return SetValue(r, rc), nil
}

// parseLanguageID converts a header value the way an integer cast would.
// Leading whitespace and a sign are accepted and parsing stops at the first
// non-digit. No digits at all yields 0; values out of range saturate at
// math.MaxInt or math.MinInt.
func parseLanguageID(s string) int {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}

	n := 0
	for i := 0; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		d := int(s[i] - '0')
		if n > (math.MaxInt-d)/10 {
			if neg {
				return math.MinInt
			}
			return math.MaxInt
		}
		n = n*10 + d
	}
	if neg {
		return -n
	}
	return n
}
