package segment

import "strings"

// CategoryGeneral is assigned when no category keyword matches.
const CategoryGeneral = "general"

// categoryRule maps a category to the keywords that vote for it.
// Evaluation order breaks score ties deterministically.
type categoryRule struct {
	name     string
	keywords []string
}

var categoryRules = []categoryRule{
	{"deployment", []string{"deployment", "install", "setup", "configuration"}},
	{"performance", []string{"performance", "speed", "latency", "throughput"}},
	{"features", []string{"feature", "functionality", "capability"}},
	{"scalability", []string{"scale", "scalability", "distributed", "cluster"}},
	{"security", []string{"security", "authentication", "encryption"}},
	{"integration", []string{"integration", "connector", "plugin"}},
}

// Categories lists all assignable category names, general last.
func Categories() []string {
	names := make([]string, 0, len(categoryRules)+1)
	for _, rule := range categoryRules {
		names = append(names, rule.name)
	}
	return append(names, CategoryGeneral)
}

// Classify scores a section's content and title against the keyword
// rules and returns the best-scoring category, or "general" when no
// keyword appears.
func Classify(content, title string) string {
	haystack := strings.ToLower(content) + " " + strings.ToLower(title)

	best := CategoryGeneral
	bestScore := 0
	for _, rule := range categoryRules {
		score := 0
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				score++
			}
		}
		if score > bestScore {
			best = rule.name
			bestScore = score
		}
	}
	return best
}
