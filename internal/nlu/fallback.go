package nlu

import (
	"regexp"
	"strconv"
	"strings"
)

// Keyword lists cover English and romanised Hindi (Hinglish). Longer phrases
// come first so alternation prefers them.
const (
	sellWords   = `bech do|bechna|becho|bechi|becha|bech|sell|sold|sale`
	addWords    = `add karo|add kar|add|purchased|purchase|bought|buy|kharido|kharida|kharid|restock`
	unitWords   = `kilograms|kilogram|kilos|kilo|kgs|kg|grams|gram|gms|gm|g|pieces|piece|pcs|pc|dozens|dozen|litres|litre|liters|liter|ltrs|ltr|ml|l|packets|packet|pkts|pkt|boxes|box|bottles|bottle|bags|bag|units|unit`
	fillerWords = `rupees|rupee|rupaye|rupaiye|rs|at|for|to|per|each|me|mein|in|ka|ki|ke|karo|kar|please|pls`
	numberWords = `one|two|three|four|five|six|seven|eight|nine|ten`
	numeral     = `(\d+(?:\.\d+)?)`
)

var (
	sellRegex = regexp.MustCompile(`\b(?:` + sellWords + `)\b`)
	addRegex  = regexp.MustCompile(`\b(?:` + addWords + `)\b`)

	// Checked in order; the first hit wins.
	pricePatterns = []*regexp.Regexp{
		regexp.MustCompile(`₹\s*` + numeral),
		regexp.MustCompile(numeral + `\s*(?:rupees|rupee|rupaye|rupaiye|rs)\b`),
		regexp.MustCompile(`\b(?:to|at|for)\s+` + numeral),
		regexp.MustCompile(numeral + `\s*₹`),
	}
	trailingNumberRegex = regexp.MustCompile(`(?:^|\s)` + numeral + `\s*$`)

	quantityRegex     = regexp.MustCompile(numeral + `\s*(?:(` + unitWords + `)\b)?`)
	wordQuantityRegex = regexp.MustCompile(`\b(` + numberWords + `)\b\s*(?:(` + unitWords + `)\b)?`)
	numeralRegex      = regexp.MustCompile(`\d+(?:\.\d+)?`)

	productStripRegexes = []*regexp.Regexp{
		numeralRegex,
		regexp.MustCompile(`₹`),
		regexp.MustCompile(`\b(?:` + fillerWords + `)\b`),
		regexp.MustCompile(`\b(?:` + sellWords + `|` + addWords + `)\b`),
		regexp.MustCompile(`\b(?:` + unitWords + `)\b`),
		regexp.MustCompile(`\b(?:` + numberWords + `)\b`),
		// Marks stay: Devanagari vowel signs are combining characters.
		regexp.MustCompile(`[^\p{L}\p{M}\p{N}\s-]+`),
	}
	leadingArticleRegex = regexp.MustCompile(`^(?:(?:a|an|the|of)\s+)+`)
)

var wordNumbers = map[string]float64{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// span is a half-open byte range inside the lower-cased command.
type span struct{ start, end int }

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

// ParseFallback turns a command into an Intent using keyword and pattern
// matching only. It never fails; an empty Product means the caller has to
// ask the user which product they meant.
func ParseFallback(text string) Intent {
	lower := strings.ToLower(text)

	price, priceSpan := extractPrice(lower)
	return Intent{
		Action:   detectAction(lower),
		Product:  extractProduct(lower),
		Quantity: extractQuantity(lower, priceSpan),
		Price:    price,
		Source:   SourceFallback,
	}
}

// detectAction picks sell or add. When both or neither keyword set matches,
// the leading word decides; failing that the command is read as add, the
// less destructive interpretation.
func detectAction(lower string) Action {
	sell := sellRegex.MatchString(lower)
	add := addRegex.MatchString(lower)
	switch {
	case sell && !add:
		return ActionSell
	case add && !sell:
		return ActionAdd
	}

	fields := strings.Fields(lower)
	if len(fields) > 0 {
		first := fields[0]
		switch {
		case strings.HasPrefix(first, "sell"), strings.HasPrefix(first, "sold"), strings.HasPrefix(first, "bech"):
			return ActionSell
		case strings.HasPrefix(first, "add"), strings.HasPrefix(first, "buy"), strings.HasPrefix(first, "purchase"), strings.HasPrefix(first, "kharid"):
			return ActionAdd
		}
	}
	return ActionAdd
}

func extractPrice(lower string) (*float64, span) {
	for _, p := range pricePatterns {
		m := p.FindStringSubmatchIndex(lower)
		if m == nil {
			continue
		}
		if val, err := strconv.ParseFloat(lower[m[2]:m[3]], 64); err == nil && val >= 0 {
			return &val, span{m[2], m[3]}
		}
	}

	// A bare number closing the command reads as a price when some other
	// number before it can be the quantity ("2 kg sugar 200", "five kg rice 200").
	if m := trailingNumberRegex.FindStringSubmatchIndex(lower); m != nil {
		if head := lower[:m[2]]; numeralRegex.MatchString(head) || wordQuantityRegex.MatchString(head) {
			if val, err := strconv.ParseFloat(lower[m[2]:m[3]], 64); err == nil {
				return &val, span{m[2], m[3]}
			}
		}
	}
	return nil, span{-1, -1}
}

func extractQuantity(lower string, priceSpan span) float64 {
	for _, m := range quantityRegex.FindAllStringSubmatchIndex(lower, -1) {
		if (span{m[2], m[3]}).overlaps(priceSpan) {
			continue
		}
		qty, err := strconv.ParseFloat(lower[m[2]:m[3]], 64)
		if err != nil || qty <= 0 {
			break
		}
		if m[4] >= 0 && isDozen(lower[m[4]:m[5]]) {
			qty *= 12
		}
		return qty
	}

	if m := wordQuantityRegex.FindStringSubmatch(lower); m != nil {
		qty := wordNumbers[m[1]]
		if isDozen(m[2]) {
			qty *= 12
		}
		return qty
	}
	return 1
}

func isDozen(unit string) bool {
	return strings.HasPrefix(unit, "dozen")
}

func extractProduct(lower string) string {
	p := lower
	for _, re := range productStripRegexes {
		p = re.ReplaceAllString(p, " ")
	}
	p = strings.Join(strings.Fields(p), " ")
	p = leadingArticleRegex.ReplaceAllString(p, "")

	words := make([]string, 0, maxProductTokens)
	for _, w := range strings.Fields(p) {
		if strings.Trim(w, "-") == "" {
			continue
		}
		words = append(words, w)
		if len(words) == maxProductTokens {
			break
		}
	}
	return strings.Join(words, " ")
}
