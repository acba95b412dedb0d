package ledger

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"bot-inventory/internal/repo"
)

// NormalizeName collapses whitespace so "  basmati   rice " and "basmati rice" are one product.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func filterByQuery(items []repo.Product, query string) []repo.Product {
	query = strings.ToLower(NormalizeName(query))
	if query == "" {
		return items
	}
	type scored struct {
		product repo.Product
		score   int
	}
	var matches []scored
	for _, item := range items {
		if score := matchScore(item, query); score > 0 {
			matches = append(matches, scored{item, score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	res := make([]repo.Product, len(matches))
	for i, m := range matches {
		res[i] = m.product
	}
	return res
}

func matchScore(item repo.Product, query string) int {
	name := strings.ToLower(item.Name)
	score := 0
	if name == query {
		score += 8
	}
	if strings.HasPrefix(name, query) {
		score += 4
	}
	if strings.Contains(name, query) {
		score += 2
	}
	for _, word := range strings.Fields(query) {
		if strings.Contains(name, word) {
			score++
		}
	}
	return score
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func formatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// Summary renders a one-line confirmation for an applied mutation.
func Summary(res *Result) string {
	if res == nil || res.Product == nil || res.Transaction == nil {
		return ""
	}
	t := res.Transaction
	verb := "Added"
	if t.Type == repo.TxSell {
		verb = "Sold"
	}
	return fmt.Sprintf("%s %s %s at ₹%.2f (total ₹%.2f). In stock: %s.",
		verb, formatQuantity(t.Quantity), t.ProductName, t.Price, t.Total, formatQuantity(res.Product.Quantity))
}
