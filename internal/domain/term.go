package domain

// Lang identifies one of the three languages a term is translated into
type Lang string

const (
	LangHebrew  Lang = "he"
	LangEnglish Lang = "en"
	LangRussian Lang = "ru"
)

// ParseLang normalizes user input like "rus" or "ru-RU" to a Lang.
// Unknown values fall back to English.
func ParseLang(s string) Lang {
	switch {
	case s == "he" || s == "iw":
		return LangHebrew
	case len(s) >= 2 && s[:2] == "ru":
		return LangRussian
	default:
		return LangEnglish
	}
}

// Translations holds a term in every supported language.
// Primary (Hebrew) is the answer side of every quiz card.
type Translations struct {
	Primary   string // he
	Secondary string // en
	Tertiary  string // ru
}

// In returns the translation for the given language
func (t Translations) In(lang Lang) string {
	switch lang {
	case LangHebrew:
		return t.Primary
	case LangRussian:
		return t.Tertiary
	default:
		return t.Secondary
	}
}

// Term is a vocabulary entry
type Term struct {
	ID           int64
	Translations Translations
	CategoryIDs  []int64
}

// CorrectAnswer returns the value a quiz answer is compared against
func (t Term) CorrectAnswer() string {
	return t.Translations.Primary
}

// InCategory reports whether the term belongs to the category
func (t Term) InCategory(categoryID int64) bool {
	for _, id := range t.CategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}

// NormalizeCategoryIDs merges a scalar category id and a list of ids into
// a deduplicated set. Zero ids are dropped.
func NormalizeCategoryIDs(scalar int64, ids ...int64) []int64 {
	seen := make(map[int64]struct{}, len(ids)+1)
	out := make([]int64, 0, len(ids)+1)
	add := func(id int64) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(scalar)
	for _, id := range ids {
		add(id)
	}
	return out
}

// FilterByCategory returns the terms belonging to the category, preserving order
func FilterByCategory(terms []Term, categoryID int64) []Term {
	var out []Term
	for _, t := range terms {
		if t.InCategory(categoryID) {
			out = append(out, t)
		}
	}
	return out
}

// Category groups terms
type Category struct {
	ID    int64
	Slug  string
	Names map[Lang]string
}

// Name returns the localized name, falling back to English and then to the slug
func (c Category) Name(lang Lang) string {
	if name := c.Names[lang]; name != "" {
		return name
	}
	if name := c.Names[LangEnglish]; name != "" {
		return name
	}
	return c.Slug
}
