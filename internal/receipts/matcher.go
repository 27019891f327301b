package receipts

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/tilldesk/tilldesk/internal/catalog"
)

// folder gives locale-independent case folding, so "Maíz" on a receipt
// matches a product saved as "MAÍZ".
var folder = cases.Fold()

// MatchProduct finds the catalog product a receipt line refers to. Exact
// case-folded name match wins; otherwise a substring match in either
// direction (receipts often carry truncated or prefixed names).
func MatchProduct(products []catalog.Product, name string) (catalog.Product, bool) {
	needle := folder.String(strings.TrimSpace(name))
	if needle == "" {
		return catalog.Product{}, false
	}

	for _, p := range products {
		if folder.String(p.Name) == needle {
			return p, true
		}
	}
	for _, p := range products {
		folded := folder.String(p.Name)
		if strings.Contains(folded, needle) || strings.Contains(needle, folded) {
			return p, true
		}
	}
	return catalog.Product{}, false
}
