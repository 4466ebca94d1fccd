package catalog

import (
	"fmt"
	"strings"
)

// CategoryDefinition describes a top-level notification category.
type CategoryDefinition struct {
	Code          string                  `json:"code"`
	Name          string                  `json:"name"`
	SubCategories []SubCategoryDefinition `json:"subCategories"`
}

// SubCategoryDefinition describes a sub-category. CategoryCode is the lookup key of the
// owning category; it is assigned when the catalog is built and never changes afterwards.
type SubCategoryDefinition struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	CategoryCode string `json:"categoryCode"`
}

type subRef struct {
	category int
	index    int
}

// Catalog is an immutable, code-indexed snapshot of category definitions.
type Catalog struct {
	categories []CategoryDefinition
	byCode     map[string]int
	subByCode  map[string]subRef
}

// Empty returns a catalog with no categories.
func Empty() *Catalog {
	return &Catalog{
		byCode:    map[string]int{},
		subByCode: map[string]subRef{},
	}
}

// Build indexes the supplied categories. Codes are trimmed and must be unique
// case-insensitively; sub-category codes are unique across the whole catalog.
func Build(categories []CategoryDefinition) (*Catalog, error) {
	c := &Catalog{
		categories: make([]CategoryDefinition, 0, len(categories)),
		byCode:     make(map[string]int, len(categories)),
		subByCode:  make(map[string]subRef),
	}

	for _, category := range categories {
		code := strings.TrimSpace(category.Code)
		key := normalizeCode(code)
		if key == "" {
			return nil, fmt.Errorf("catalog: category %q has an empty code", category.Name)
		}
		if _, exists := c.byCode[key]; exists {
			return nil, fmt.Errorf("catalog: duplicate category code %q", code)
		}

		position := len(c.categories)
		entry := CategoryDefinition{
			Code:          code,
			Name:          strings.TrimSpace(category.Name),
			SubCategories: make([]SubCategoryDefinition, 0, len(category.SubCategories)),
		}

		for _, sub := range category.SubCategories {
			subCode := strings.TrimSpace(sub.Code)
			subKey := normalizeCode(subCode)
			if subKey == "" {
				return nil, fmt.Errorf("catalog: sub-category of %q has an empty code", code)
			}
			if _, exists := c.subByCode[subKey]; exists {
				return nil, fmt.Errorf("catalog: duplicate sub-category code %q", subCode)
			}
			c.subByCode[subKey] = subRef{category: position, index: len(entry.SubCategories)}
			entry.SubCategories = append(entry.SubCategories, SubCategoryDefinition{
				Code:         subCode,
				Name:         strings.TrimSpace(sub.Name),
				CategoryCode: code,
			})
		}

		c.byCode[key] = position
		c.categories = append(c.categories, entry)
	}

	return c, nil
}

// Categories returns the ordered category list. The result is a copy.
func (c *Catalog) Categories() []CategoryDefinition {
	if c == nil {
		return nil
	}
	out := make([]CategoryDefinition, len(c.categories))
	for i, category := range c.categories {
		out[i] = cloneCategory(category)
	}
	return out
}

// Len reports the number of categories.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.categories)
}

// CategoryByCode looks up a category case-insensitively.
func (c *Catalog) CategoryByCode(code string) (CategoryDefinition, bool) {
	key := normalizeCode(code)
	if c == nil || key == "" {
		return CategoryDefinition{}, false
	}
	position, ok := c.byCode[key]
	if !ok {
		return CategoryDefinition{}, false
	}
	return cloneCategory(c.categories[position]), true
}

// SubCategoryByCode looks up a sub-category case-insensitively.
func (c *Catalog) SubCategoryByCode(code string) (SubCategoryDefinition, bool) {
	key := normalizeCode(code)
	if c == nil || key == "" {
		return SubCategoryDefinition{}, false
	}
	ref, ok := c.subByCode[key]
	if !ok {
		return SubCategoryDefinition{}, false
	}
	return c.categories[ref.category].SubCategories[ref.index], true
}

func cloneCategory(category CategoryDefinition) CategoryDefinition {
	subs := make([]SubCategoryDefinition, len(category.SubCategories))
	copy(subs, category.SubCategories)
	category.SubCategories = subs
	return category
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
