// Package lexicon holds the static vocabulary used to normalize search
// queries: colloquial expansions, misspellings, intent keywords and colors.
package lexicon

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

// Mapping rewrites one term into zero or more canonical words.
type Mapping struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Intent binds a keyword to a sort directive or a stock filter.
type Intent struct {
	Keyword   string `yaml:"keyword"`
	SortBy    string `yaml:"sortBy"`
	SortOrder string `yaml:"sortOrder"`
	InStock   bool   `yaml:"inStock"`
}

// Lexicon is the complete vocabulary. Slices keep file order, which decides
// the outcome when terms overlap.
type Lexicon struct {
	Hinglish []Mapping `yaml:"hinglish"`
	Spelling []Mapping `yaml:"spelling"`
	Intents  []Intent  `yaml:"intents"`
	Colors   []string  `yaml:"colors"`
}

var loadDefault = sync.OnceValues(func() (*Lexicon, error) {
	return Parse(defaultLexicon)
})

// Default returns the embedded lexicon, parsed once per process.
func Default() *Lexicon {
	lex, err := loadDefault()
	if err != nil {
		panic(fmt.Sprintf("lexicon: embedded vocabulary is invalid: %v", err))
	}
	return lex
}

// Parse decodes and validates a YAML lexicon. Terms are lower-cased.
func Parse(data []byte) (*Lexicon, error) {
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if err := lex.normalize(); err != nil {
		return nil, err
	}
	return &lex, nil
}

func (l *Lexicon) normalize() error {
	for i := range l.Hinglish {
		m := &l.Hinglish[i]
		m.From = strings.ToLower(strings.TrimSpace(m.From))
		if m.From == "" {
			return fmt.Errorf("lexicon: hinglish entry %d has no term", i)
		}
	}

	for i := range l.Spelling {
		m := &l.Spelling[i]
		m.From = strings.ToLower(strings.TrimSpace(m.From))
		if m.From == "" || strings.ContainsAny(m.From, " \t") {
			return fmt.Errorf("lexicon: spelling entry %d must be a single token, got %q", i, m.From)
		}
		if m.To == "" {
			return fmt.Errorf("lexicon: spelling entry %q has no correction", m.From)
		}
	}

	for i := range l.Intents {
		in := &l.Intents[i]
		in.Keyword = strings.ToLower(strings.TrimSpace(in.Keyword))
		if in.Keyword == "" {
			return fmt.Errorf("lexicon: intent entry %d has no keyword", i)
		}
		if in.SortBy == "" && !in.InStock {
			return fmt.Errorf("lexicon: intent %q binds no directive", in.Keyword)
		}
		if in.SortBy != "" && in.SortOrder != "asc" && in.SortOrder != "desc" {
			return fmt.Errorf("lexicon: intent %q has invalid sort order %q", in.Keyword, in.SortOrder)
		}
	}

	for i, c := range l.Colors {
		l.Colors[i] = strings.ToLower(strings.TrimSpace(c))
		if l.Colors[i] == "" {
			return fmt.Errorf("lexicon: color entry %d is empty", i)
		}
	}
	return nil
}
