// Package option describes the catalog of content categories a user can subscribe to.
package option

import (
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Option is a single catalog entry. Name is the slug clients use as the option id.
type Option struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// Defaults returns the catalog seeded into an empty store.
func Defaults() []Option {
	return []Option{
		{Name: "true-random", Description: "Completely random Wikipedia articles", IsActive: true},
		{Name: "trending", Description: "Currently popular articles", IsActive: true},
		{Name: "brand-new", Description: "Recently created articles", IsActive: true},
		{Name: "science", Description: "Articles about science, tech, and innovation", IsActive: true},
		{Name: "history", Description: "Historical events, figures, and periods", IsActive: true},
		{Name: "culture", Description: "Music, literature, art, and cultural topics", IsActive: true},
	}
}

// DisplayName upper-cases the first letter of name and turns the first hyphen after it
// into a space: "true-random" becomes "True random". Ids with several hyphens keep the rest,
// so the result is for display only and can't be turned back into an id.
func DisplayName(name string) string {
	if name == "" {
		return ""
	}
	first, size := utf8.DecodeRuneInString(name)

	return string(unicode.ToUpper(first)) + strings.Replace(name[size:], "-", " ", 1)
}

// ActiveSortedByName drops inactive options and orders the rest by name.
func ActiveSortedByName(options []Option) []Option {
	result := make([]Option, 0, len(options))
	for _, opt := range options {
		if opt.IsActive {
			result = append(result, opt)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}
