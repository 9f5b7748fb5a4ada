// Package normalizer turns raw, informal search text into a cleaned query
// plus the filters and sort preferences it implies.
package normalizer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Sumit-Saurabh98/indexsearch/internal/domain"
	"github.com/Sumit-Saurabh98/indexsearch/internal/lexicon"
)

var (
	nonTokenChars = regexp.MustCompile(`[^a-z0-9+]`)
	whitespace    = regexp.MustCompile(`\s+`)
	storage       = regexp.MustCompile(`(?i)(\d+)\s*(gb|tb)`)

	// Tried in order; the first that matches decides the price.
	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)under\s*(\d+)k?\s*(rupees?|rs\.?|₹)?`),
		regexp.MustCompile(`(?i)below\s*(\d+)k?\s*(rupees?|rs\.?|₹)?`),
		regexp.MustCompile(`(?i)(\d+)k?\s*(rupees?|rs\.?|₹)`),
		regexp.MustCompile(`(?i)₹\s*(\d+)k?`),
	}
	upperBound = regexp.MustCompile(`(?i)under|below`)
)

type expansion struct {
	re   *regexp.Regexp
	from string
	to   string
}

type intent struct {
	re *regexp.Regexp
	lexicon.Intent
}

type color struct {
	re   *regexp.Regexp
	name string
}

// Normalizer applies a lexicon to queries. It is immutable and safe for
// concurrent use.
type Normalizer struct {
	expansions []expansion
	spelling   map[string]string
	intents    []intent
	colors     []color
}

// New compiles lex into a Normalizer.
func New(lex *lexicon.Lexicon) *Normalizer {
	n := &Normalizer{
		expansions: make([]expansion, 0, len(lex.Hinglish)),
		spelling:   make(map[string]string, len(lex.Spelling)),
		intents:    make([]intent, 0, len(lex.Intents)),
		colors:     make([]color, 0, len(lex.Colors)),
	}
	for _, m := range lex.Hinglish {
		n.expansions = append(n.expansions, expansion{re: wholeWord(m.From), from: m.From, to: m.To})
	}
	for _, m := range lex.Spelling {
		if _, dup := n.spelling[m.From]; !dup {
			n.spelling[m.From] = m.To
		}
	}
	for _, in := range lex.Intents {
		n.intents = append(n.intents, intent{re: wholeWord(in.Keyword), Intent: in})
	}
	for _, c := range lex.Colors {
		n.colors = append(n.colors, color{re: wholeWord(c), name: c})
	}
	return n
}

func wholeWord(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(term) + `\b`)
}

var defaultNormalizer = New(lexicon.Default())

// Normalize parses raw with the embedded lexicon.
func Normalize(raw string) domain.ParsedQuery {
	return defaultNormalizer.Normalize(raw)
}

// Normalize parses raw into a ParsedQuery. It never fails; blank input
// yields an empty result.
func (n *Normalizer) Normalize(raw string) domain.ParsedQuery {
	original := strings.TrimSpace(raw)
	if original == "" {
		return domain.ParsedQuery{}
	}

	parsed := domain.ParsedQuery{OriginalQuery: original}
	query := strings.ToLower(original)

	query = n.expand(query, &parsed)
	query = n.correct(query, &parsed)
	query = n.extractIntents(query, &parsed)
	n.extractColor(query, &parsed)
	extractStorage(query, &parsed)
	extractPrice(query, &parsed)

	parsed.ProcessedQuery = strings.TrimSpace(whitespace.ReplaceAllString(query, " "))
	return parsed
}

func (n *Normalizer) expand(query string, parsed *domain.ParsedQuery) string {
	for _, e := range n.expansions {
		if !e.re.MatchString(query) {
			continue
		}
		query = e.re.ReplaceAllLiteralString(query, e.to)
		parsed.Corrections = append(parsed.Corrections, domain.Correction{
			From: e.from,
			To:   e.to,
			Kind: domain.CorrectionHinglish,
		})
	}
	return query
}

func (n *Normalizer) correct(query string, parsed *domain.ParsedQuery) string {
	words := strings.Fields(query)
	for i, word := range words {
		cleaned := nonTokenChars.ReplaceAllString(word, "")
		to, ok := n.spelling[cleaned]
		if !ok {
			continue
		}
		words[i] = to
		parsed.Corrections = append(parsed.Corrections, domain.Correction{
			From: cleaned,
			To:   to,
			Kind: domain.CorrectionSpelling,
		})
	}
	return strings.Join(words, " ")
}

func (n *Normalizer) extractIntents(query string, parsed *domain.ParsedQuery) string {
	for _, in := range n.intents {
		if !in.re.MatchString(query) {
			continue
		}
		if in.SortBy != "" {
			parsed.ExtractedSort.SortBy = in.SortBy
			parsed.ExtractedSort.SortOrder = in.SortOrder
		}
		if in.InStock {
			inStock := true
			parsed.ExtractedSort.InStock = &inStock
		}
		query = strings.TrimSpace(in.re.ReplaceAllLiteralString(query, ""))
	}
	return query
}

func (n *Normalizer) extractColor(query string, parsed *domain.ParsedQuery) {
	for _, c := range n.colors {
		if c.re.MatchString(query) {
			parsed.ExtractedFilters.Color = c.name
		}
	}
}

func extractStorage(query string, parsed *domain.ParsedQuery) {
	matches := storage.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return
	}
	last := matches[len(matches)-1]
	parsed.ExtractedFilters.Storage = last[1] + strings.ToUpper(last[2])
}

func extractPrice(query string, parsed *domain.ParsedQuery) {
	for _, p := range pricePatterns {
		loc := p.FindStringSubmatchIndex(query)
		if loc == nil {
			continue
		}
		digits := query[loc[2]:loc[3]]
		price, err := strconv.ParseFloat(digits, 64)
		if err != nil {
			return
		}
		if loc[3] < len(query) && (query[loc[3]] == 'k' || query[loc[3]] == 'K') {
			price *= 1000
		}

		if upperBound.MatchString(query) {
			parsed.ExtractedFilters.MaxPrice = &price
			return
		}
		lo := math.Floor(price * 0.8)
		hi := math.Ceil(price * 1.2)
		parsed.ExtractedFilters.MinPrice = &lo
		parsed.ExtractedFilters.MaxPrice = &hi
		return
	}
}
