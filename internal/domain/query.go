package domain

// CorrectionKind names the lexicon table that produced a correction.
type CorrectionKind string

const (
	CorrectionHinglish CorrectionKind = "hinglish"
	CorrectionSpelling CorrectionKind = "spelling"
)

// Correction records one rewrite applied to the raw query.
type Correction struct {
	From string         `json:"from"`
	To   string         `json:"to"`
	Kind CorrectionKind `json:"type"`
}

// ExtractedFilters are constraints recovered from the query text.
type ExtractedFilters struct {
	MinPrice *float64 `json:"minPrice,omitempty"`
	MaxPrice *float64 `json:"maxPrice,omitempty"`
	Color    string   `json:"color,omitempty"`
	Storage  string   `json:"storage,omitempty"`
}

// IsZero reports whether nothing was extracted.
func (f ExtractedFilters) IsZero() bool {
	return f.MinPrice == nil && f.MaxPrice == nil && f.Color == "" && f.Storage == ""
}

// ExtractedSort is the sort or stock directive implied by intent keywords.
type ExtractedSort struct {
	SortBy    string `json:"sortBy,omitempty"`
	SortOrder string `json:"sortOrder,omitempty"`
	InStock   *bool  `json:"inStock,omitempty"`
}

// IsZero reports whether no intent keyword fired.
func (s ExtractedSort) IsZero() bool {
	return s.SortBy == "" && s.SortOrder == "" && s.InStock == nil
}

// ParsedQuery is the normalized form of a raw search query.
type ParsedQuery struct {
	OriginalQuery    string           `json:"originalQuery"`
	ProcessedQuery   string           `json:"processedQuery"`
	ExtractedFilters ExtractedFilters `json:"extractedFilters"`
	ExtractedSort    ExtractedSort    `json:"extractedSort"`
	Corrections      []Correction     `json:"corrections"`
}
