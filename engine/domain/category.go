package domain

import (
	"sort"
	"strings"
)

// ProductCategory is the closed product vocabulary shared by all sources.
type ProductCategory string

const (
	Honey      ProductCategory = "honey"
	Beeswax    ProductCategory = "beeswax"
	Milk       ProductCategory = "milk"
	RawMilk    ProductCategory = "raw_milk"
	Eggs       ProductCategory = "eggs"
	Meat       ProductCategory = "meat"
	Sausages   ProductCategory = "sausages"
	Vegetables ProductCategory = "vegetables"
	Potatoes   ProductCategory = "potatoes"
	Fish       ProductCategory = "fish"
	Shellfish  ProductCategory = "shellfish"
	Cheese     ProductCategory = "cheese"
	Bread      ProductCategory = "bread"
	Drinks     ProductCategory = "drinks"
	Seasonal   ProductCategory = "seasonal"
)

// labels maps category ids to Norwegian display labels.
var labels = map[ProductCategory]string{
	Honey:      "Honning",
	Beeswax:    "Bievoks",
	Milk:       "Melk",
	RawMilk:    "Råmelk",
	Eggs:       "Egg",
	Meat:       "Kjøtt",
	Sausages:   "Pølser",
	Vegetables: "Grønnsaker",
	Potatoes:   "Poteter",
	Fish:       "Fisk",
	Shellfish:  "Skalldyr",
	Cheese:     "Ost",
	Bread:      "Brød",
	Drinks:     "Drikke",
	Seasonal:   "Sesongvarer",
}

// Label returns the Norwegian display label for a category.
func (c ProductCategory) Label() string {
	if l, ok := labels[c]; ok {
		return l
	}
	return string(c)
}

// categoryKeywords maps Norwegian food terms to categories. Substring match,
// so "biehonning" hits "honning" and "storfekjøtt" hits "kjøtt".
var categoryKeywords = []struct {
	category ProductCategory
	words    []string
}{
	{Honey, []string{"honning", "bie", "birøkt"}},
	{Milk, []string{"melk", "meieri"}},
	{RawMilk, []string{"råmelk"}},
	{Eggs, []string{"egg", "høns"}},
	{Meat, []string{"kjøtt", "storfe", "sau", "lam", "gris", "svin", "slakteri"}},
	{Sausages, []string{"pølse", "speke"}},
	{Vegetables, []string{"grønnsak", "tomat", "salat", "gulrot", "frukt", "bær"}},
	{Potatoes, []string{"potet"}},
	{Fish, []string{"fisk", "sild", "laks", "torsk", "sjømat"}},
	{Shellfish, []string{"skalldyr", "reke", "krabbe"}},
	{Cheese, []string{"ost", "ysteri"}},
	{Bread, []string{"brød", "bakeri", "lefse", "flatbrød"}},
	{Drinks, []string{"sider", "drikke", "bryggeri"}},
	{Seasonal, []string{"gårdsbutikk"}},
}

// InferCategories matches Norwegian keyword substrings against free text and
// returns the categories found. The result is never empty: text with no
// recognizable food terms falls back to Seasonal so the producer still shows
// up in category browsing.
func InferCategories(text string) []ProductCategory {
	lower := LowerNO(text)
	var out []ProductCategory
	for _, kw := range categoryKeywords {
		for _, w := range kw.words {
			if strings.Contains(lower, w) {
				out = append(out, kw.category)
				break
			}
		}
	}
	return UniqueCategories(out)
}

// UniqueCategories removes duplicates preserving order and substitutes
// Seasonal for an empty set.
func UniqueCategories(cats []ProductCategory) []ProductCategory {
	seen := make(map[ProductCategory]struct{}, len(cats))
	out := make([]ProductCategory, 0, len(cats))
	for _, c := range cats {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	if len(out) == 0 {
		out = append(out, Seasonal)
	}
	return out
}

// AllCategories returns the vocabulary sorted by id, for validation and the
// categories endpoint.
func AllCategories() []ProductCategory {
	out := make([]ProductCategory, 0, len(labels))
	for c := range labels {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
