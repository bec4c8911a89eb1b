package analysis

import "sentiment-dashboard/internal/models"

// AllCategories selects every row.
const AllCategories = "All"

// FilterByCategory returns the rows whose product equals selection, in source
// order. AllCategories returns every row. The input table is not modified.
func FilterByCategory(table *models.ReviewTable, selection string) *models.ReviewTable {
	if selection == AllCategories {
		return table.Where(func(models.ReviewRecord) bool { return true })
	}
	return table.Where(func(r models.ReviewRecord) bool { return r.Product == selection })
}

// Categories lists distinct products in first-seen order.
func Categories(table *models.ReviewTable) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range table.Records() {
		if !seen[rec.Product] {
			seen[rec.Product] = true
			out = append(out, rec.Product)
		}
	}
	return out
}
