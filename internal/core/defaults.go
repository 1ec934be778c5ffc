package core

import "strings"

const (
	// PlaceholderCategoryName labels expense groups whose category no longer exists.
	PlaceholderCategoryName  = "Sem categoria"
	PlaceholderCategoryColor = "#666"
)

// ImportPalette colours categories created by an import, by position.
var ImportPalette = []string{
	"#ef4444", "#f59e0b", "#10b981", "#3b82f6", "#8b5cf6",
	"#ec4899", "#14b8a6", "#f97316", "#06b6d4", "#84cc16",
}

// DefaultCategories is the shared taxonomy every store starts with.
var DefaultCategories = []Category{
	{ID: "cat-1", Name: "Alimentação", Color: "#ef4444", Type: Expense},
	{ID: "cat-2", Name: "Transporte", Color: "#f59e0b", Type: Expense},
	{ID: "cat-3", Name: "Moradia", Color: "#8b5cf6", Type: Expense},
	{ID: "cat-4", Name: "Lazer", Color: "#ec4899", Type: Expense},
	{ID: "cat-5", Name: "Saúde", Color: "#14b8a6", Type: Expense},
	{ID: "cat-6", Name: "Educação", Color: "#3b82f6", Type: Expense},
	{ID: "cat-7", Name: "Salário", Color: "#10b981", Type: Income},
	{ID: "cat-8", Name: "Freelance", Color: "#22c55e", Type: Income},
	{ID: "cat-9", Name: "Investimentos", Color: "#059669", Type: Income},
}

var savingsNames = map[string]struct{}{
	"savings":  {},
	"poupança": {},
	"poupanca": {},
}

// PaletteColor returns the palette colour for the i-th imported category.
func PaletteColor(i int) string {
	if i < 0 {
		i = -i
	}
	return ImportPalette[i%len(ImportPalette)]
}

// IsSavingsName reports whether a category name designates savings.
func IsSavingsName(name string) bool {
	_, ok := savingsNames[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// SameCategoryName compares names the way imports deduplicate them.
func SameCategoryName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
