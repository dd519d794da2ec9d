package usecase

import (
	"slices"
	"strconv"
	"strings"

	"image-pipeline/internal/domain"
)

// GenerateSrcset groups variants by format and renders each group as an
// HTML srcset value, "url 320w, url 768w", ordered by ascending width.
// Formats without variants are absent.
func GenerateSrcset(variants []domain.Variant) map[domain.Format]string {
	groups := make(map[domain.Format][]domain.Variant)
	for _, v := range variants {
		groups[v.Format] = append(groups[v.Format], v)
	}

	srcset := make(map[domain.Format]string, len(groups))
	for format, group := range groups {
		slices.SortStableFunc(group, func(a, b domain.Variant) int {
			return a.Width - b.Width
		})

		entries := make([]string, 0, len(group))
		for _, v := range group {
			entries = append(entries, v.URL+" "+strconv.Itoa(v.Width)+"w")
		}
		srcset[format] = strings.Join(entries, ", ")
	}
	return srcset
}
