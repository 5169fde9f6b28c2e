// internal/pipeline/intent/parser.go
package intent

import (
	"regexp"
	"strings"
)

// WeightedMention is an inline allocation token such as "SBER.MOEX:0.4"
// or a percent-first pair such as "60% stocks".
type WeightedMention struct {
	Mention string
	Weight  float64
}

// ParsedQuery is the surface-level reading of the query text: candidate
// instrument mentions plus any inline parameters. No directory lookups
// happen here.
type ParsedQuery struct {
	Mentions         []string
	WeightedMentions []WeightedMention
	Currency         string
	Years            int
	Rebalancing      string
	// HasPortfolioMarker is set when the query carries
	// portfolio-construction vocabulary without inline weights; the
	// classifier assigns equal weights downstream.
	HasPortfolioMarker bool
	// HasComparisonMarker is set when the query carries explicit
	// comparison vocabulary ("compare", "vs"), which outranks the
	// single-entity rule.
	HasComparisonMarker bool
	// MacroCurrency is set when the query asks about inflation for a
	// recognizable region, e.g. "RUB" for "inflation in russia".
	MacroCurrency string
}

var (
	weightTokenRe  = regexp.MustCompile(`^([A-Za-z0-9]+\.[A-Za-z]+):([0-9]*\.?[0-9]+%?)$`)
	percentTokenRe = regexp.MustCompile(`^([0-9]*\.?[0-9]+)%$`)
	currencyRe     = regexp.MustCompile(`(?i)\bin\s+(usd|eur|rub|gbp)\b`)
	yearsRe        = regexp.MustCompile(`(?i)\b(?:for|over|last|past)\s+(\d{1,2})\s+years?\b`)
	rebalanceRe    = regexp.MustCompile(`(?i)\brebalanc\w*\s+(monthly|quarterly|yearly|annually)\b`)
	separatorRe    = regexp.MustCompile(`(?i)\s+(?:vs\.?|versus|against|and)\s+|,`)
)

// inflationRegions maps region words or phrases to the currency of
// their inflation series.
var inflationRegions = map[string]string{
	"russia":  "RUB",
	"russian": "RUB",
	"us":      "USD",
	"usa":     "USD",
	"america": "USD",
	"united states": "USD",
	"europe":   "EUR",
	"eurozone": "EUR",
	"germany":  "EUR",
	"uk":       "GBP",
	"britain":  "GBP",
}

// comparisonWords are the explicit comparison markers. "vs"/"versus"/
// "against" also act as mention separators.
var comparisonWords = []string{"compare", "comparison", "vs", "versus", "against"}

// fillerPhrases are leading chatter stripped before mention extraction.
var fillerPhrases = []string{
	"tell me about",
	"what about",
	"how about",
	"show me",
	"compare",
	"analyze",
	"analyse",
	"describe",
	"what is",
	"how is",
	"how did",
	"performance of",
}

// Parse reads the query text into mentions and inline parameters.
func Parse(text string) *ParsedQuery {
	parsed := &ParsedQuery{}
	working := strings.TrimSpace(text)

	lowerFull := strings.ToLower(working)
	hasPortfolioWord := containsWord(lowerFull, "portfolio")
	for _, word := range comparisonWords {
		if containsWord(lowerFull, word) {
			parsed.HasComparisonMarker = true
			break
		}
	}

	// Inline portfolio allocations are consumed token by token.
	var rest []string
	for _, tok := range strings.Fields(working) {
		m := weightTokenRe.FindStringSubmatch(strings.Trim(tok, ",;"))
		if m == nil {
			rest = append(rest, tok)
			continue
		}
		w, err := ParseWeightToken(m[2])
		if err != nil {
			rest = append(rest, tok)
			continue
		}
		parsed.WeightedMentions = append(parsed.WeightedMentions, WeightedMention{
			Mention: m[1],
			Weight:  w,
		})
	}

	// Percent-first allocations ("portfolio 60% stocks 40% bonds").
	if len(parsed.WeightedMentions) == 0 {
		if pairs, leftover, ok := splitPercentPairs(rest, hasPortfolioWord); ok {
			parsed.WeightedMentions = pairs
			rest = leftover
		}
	}
	working = strings.Join(rest, " ")

	if m := currencyRe.FindStringSubmatch(working); m != nil {
		parsed.Currency = strings.ToUpper(m[1])
		working = strings.Replace(working, m[0], " ", 1)
	}
	if m := yearsRe.FindStringSubmatch(working); m != nil {
		parsed.Years = atoiSafe(m[1])
		working = strings.Replace(working, m[0], " ", 1)
	}
	if m := rebalanceRe.FindStringSubmatch(working); m != nil {
		switch strings.ToLower(m[1]) {
		case "monthly":
			parsed.Rebalancing = "month"
		case "quarterly":
			parsed.Rebalancing = "quarter"
		default:
			parsed.Rebalancing = "year"
		}
		working = strings.Replace(working, m[0], " ", 1)
	}

	lower := strings.ToLower(working)
	if strings.Contains(lower, "inflation") {
		parsed.MacroCurrency = "USD"
		for region, currency := range inflationRegions {
			if matchRegion(lower, region) {
				parsed.MacroCurrency = currency
				break
			}
		}
		return parsed
	}

	if hasPortfolioWord {
		if len(parsed.WeightedMentions) == 0 {
			parsed.HasPortfolioMarker = true
		}
		lower = strings.ReplaceAll(lower, "portfolio of", " ")
		lower = strings.ReplaceAll(lower, "portfolio", " ")
	}
	for _, phrase := range fillerPhrases {
		lower = strings.ReplaceAll(lower, phrase, " ")
	}
	lower = strings.Trim(lower, " ?!.")

	for _, part := range separatorRe.Split(lower, -1) {
		mention := strings.TrimSpace(part)
		if mention == "" {
			continue
		}
		parsed.Mentions = append(parsed.Mentions, mention)
	}

	return parsed
}

// splitPercentPairs reads "60% stocks 40% bonds" style allocations: a
// percent token opens a pair, the following tokens form its mention.
// Tokens before the first percent token are returned as leftover. A
// lone pair only counts when portfolio vocabulary is present, so
// phrases like "apple up 40%" keep their plain reading.
func splitPercentPairs(tokens []string, hasPortfolioWord bool) ([]WeightedMention, []string, bool) {
	var pairs []WeightedMention
	var leftover []string
	open := false

	for _, tok := range tokens {
		m := percentTokenRe.FindStringSubmatch(strings.Trim(tok, ",;"))
		if m != nil {
			w, err := ParseWeightToken(m[1] + "%")
			if err != nil {
				leftover = append(leftover, tok)
				continue
			}
			pairs = append(pairs, WeightedMention{Weight: w})
			open = true
			continue
		}
		if open {
			word := strings.Trim(tok, ",;")
			if strings.EqualFold(word, "and") || word == "" {
				open = false
				continue
			}
			last := &pairs[len(pairs)-1]
			if last.Mention == "" {
				last.Mention = word
			} else {
				last.Mention += " " + word
			}
			continue
		}
		leftover = append(leftover, tok)
	}

	complete := pairs[:0]
	for _, p := range pairs {
		if p.Mention != "" {
			complete = append(complete, p)
		}
	}
	if len(complete) == 0 || (len(complete) == 1 && !hasPortfolioWord) {
		return nil, tokens, false
	}
	return complete, leftover, true
}

// matchRegion matches single-word regions on word boundaries and
// multi-word regions as phrases.
func matchRegion(text, region string) bool {
	if strings.Contains(region, " ") {
		return strings.Contains(text, region)
	}
	return containsWord(text, region)
}

func containsWord(text, word string) bool {
	for _, f := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == '?' || r == '.' || r == '!'
	}) {
		if f == word {
			return true
		}
	}
	return false
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
