// Package search derives the filtered, highlighted catalog listing.
package search

import (
	"sort"
	"strings"

	"github.com/Lixing-Zhang/storefront/internal/models"
)

// AllCategories is the selection sentinel that disables category filtering
const AllCategories = "All"

const lowStockThreshold = 5

// Badge is the stock label shown on a catalog card
type Badge string

const (
	BadgeOutOfStock Badge = "out_of_stock"
	BadgeLowStock   Badge = "low_stock"
	BadgeInStock    Badge = "in_stock"
)

// CategoryResolver maps category ids to display names and colors
type CategoryResolver interface {
	CategoryName(id string) string
	CategoryColor(id string) string
}

// Query selects catalog items. Categories holds category names.
type Query struct {
	Text           string
	Categories     []string
	HideOutOfStock bool
}

// Fragment is a piece of display text; Match marks a search hit
type Fragment struct {
	Text  string `json:"text"`
	Match bool   `json:"match"`
}

// Result is one listed item with its highlighted text
type Result struct {
	Item                 models.InventoryItem `json:"item"`
	CategoryName         string               `json:"categoryName"`
	CategoryColor        string               `json:"categoryColor"`
	NameFragments        []Fragment           `json:"nameFragments"`
	CategoryFragments    []Fragment           `json:"categoryFragments"`
	DescriptionFragments []Fragment           `json:"descriptionFragments"`
}

// StockBadge labels an available quantity
func StockBadge(available int) Badge {
	switch {
	case available <= 0:
		return BadgeOutOfStock
	case available <= lowStockThreshold:
		return BadgeLowStock
	default:
		return BadgeInStock
	}
}

// ToggleCategory applies a category click to the selection. Choosing All
// clears it; any other name is added or removed.
func ToggleCategory(selected []string, name string) []string {
	if name == AllCategories {
		return []string{}
	}

	out := make([]string, 0, len(selected)+1)
	found := false
	for _, s := range selected {
		if s == name {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, name)
	}
	return out
}

// Filter returns the items matching q in catalog order. It never mutates items.
func Filter(items []models.InventoryItem, resolver CategoryResolver, q Query) []Result {
	text := strings.TrimSpace(q.Text)
	needle := strings.ToLower(text)
	categories := categorySet(q.Categories)

	results := make([]Result, 0, len(items))
	for _, item := range items {
		if q.HideOutOfStock && item.Stock <= 0 {
			continue
		}

		name := resolver.CategoryName(item.CategoryID)
		if categories != nil {
			if _, ok := categories[name]; !ok {
				continue
			}
		}

		if needle != "" &&
			!strings.Contains(strings.ToLower(item.Name), needle) &&
			!strings.Contains(strings.ToLower(item.Description), needle) &&
			!strings.Contains(strings.ToLower(name), needle) {
			continue
		}

		results = append(results, Result{
			Item:                 item,
			CategoryName:         name,
			CategoryColor:        resolver.CategoryColor(item.CategoryID),
			NameFragments:        Highlight(item.Name, text),
			CategoryFragments:    Highlight(name, text),
			DescriptionFragments: Highlight(item.Description, text),
		})
	}
	return results
}

// categorySet is nil when no category filter applies
func categorySet(selected []string) map[string]struct{} {
	set := make(map[string]struct{}, len(selected))
	for _, s := range selected {
		if s == AllCategories {
			return nil
		}
		set[s] = struct{}{}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// Highlight splits text around case-insensitive literal occurrences of term
func Highlight(text, term string) []Fragment {
	term = strings.TrimSpace(term)
	if term == "" {
		return []Fragment{{Text: text}}
	}

	lowerText := strings.ToLower(text)
	lowerTerm := strings.ToLower(term)
	// lower-casing can change byte lengths outside ASCII
	if len(lowerText) != len(text) || len(lowerTerm) != len(term) {
		return []Fragment{{Text: text}}
	}

	var fragments []Fragment
	for start := 0; start < len(text); {
		i := strings.Index(lowerText[start:], lowerTerm)
		if i < 0 {
			fragments = append(fragments, Fragment{Text: text[start:]})
			break
		}
		if i > 0 {
			fragments = append(fragments, Fragment{Text: text[start : start+i]})
		}
		end := start + i + len(term)
		fragments = append(fragments, Fragment{Text: text[start+i : end], Match: true})
		start = end
	}
	if len(fragments) == 0 {
		fragments = []Fragment{{Text: text}}
	}
	return fragments
}

// CategoryCount is the number of catalog items in a category
type CategoryCount struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Count int    `json:"count"`
}

// CategoryCounts counts items per resolved category name, sorted by name
func CategoryCounts(items []models.InventoryItem, resolver CategoryResolver) []CategoryCount {
	index := map[string]int{}
	var counts []CategoryCount
	for _, item := range items {
		name := resolver.CategoryName(item.CategoryID)
		i, ok := index[name]
		if !ok {
			i = len(counts)
			index[name] = i
			counts = append(counts, CategoryCount{Name: name, Color: resolver.CategoryColor(item.CategoryID)})
		}
		counts[i].Count++
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Name < counts[j].Name })
	return counts
}
