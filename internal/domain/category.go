package domain

// DeriveCategories returns FilterAll followed by each distinct category in
// first-occurrence order.
func DeriveCategories(items []Quote) []string {
	out := []string{FilterAll}
	seen := make(map[string]struct{}, len(items))

	for _, q := range items {
		if _, ok := seen[q.Category]; ok {
			continue
		}

		seen[q.Category] = struct{}{}
		out = append(out, q.Category)
	}

	return out
}

// RestoreSelection resolves the active filter from a persisted value.
// A present value is used as is, even when no quote carries that category
// any more. An absent or blank value falls back to FilterAll.
func RestoreSelection(persisted string, present bool) string {
	if !present || persisted == "" {
		return FilterAll
	}

	return persisted
}

// HasCategory reports whether category is one of the known categories.
func HasCategory(categories []string, category string) bool {
	for _, c := range categories {
		if c == category {
			return true
		}
	}

	return false
}
