// Package segment splits markdown documentation into indexable sections.
//
// The pipeline replaces code blocks with compact placeholders, strips
// YAML frontmatter, cuts the document at its headers, and classifies
// each section into a coarse category. Section fields are bounded to
// fit varchar columns in the index store.
package segment

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Field bounds matching the index store's varchar columns.
const (
	MaxTitleLength   = 512
	MaxContentLength = 65535
)

const ellipsis = "..."

// Section is one indexable slice of a markdown document. The header
// line itself is part of Content so the title contributes to the
// embedding.
type Section struct {
	Title    string
	Level    int
	Content  string
	Category string
}

// Segmenter converts markdown documents into sections.
type Segmenter struct {
	maxTitleLength   int
	maxContentLength int
}

// New creates a Segmenter with the standard field bounds.
func New() *Segmenter {
	return &Segmenter{
		maxTitleLength:   MaxTitleLength,
		maxContentLength: MaxContentLength,
	}
}

var headerPattern = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// Segment runs the full pipeline on a markdown document and returns its
// sections plus any frontmatter metadata. A document with no headers
// becomes a single level-0 "Main Content" section.
func (s *Segmenter) Segment(markdown string) ([]Section, Metadata) {
	cleaned := normalizeCodeBlocks(markdown)
	meta, body := extractFrontmatter(cleaned)
	sections := s.extractSections(body)

	for i := range sections {
		sections[i].Category = Classify(sections[i].Content, sections[i].Title)
	}
	return sections, meta
}

// extractSections cuts the document at markdown headers. Each section
// spans from its header line to the start of the next header.
func (s *Segmenter) extractSections(markdown string) []Section {
	matches := headerPattern.FindAllStringSubmatchIndex(markdown, -1)
	if len(matches) == 0 {
		return []Section{{
			Title:   "Main Content",
			Level:   0,
			Content: truncate(markdown, s.maxContentLength),
		}}
	}

	sections := make([]Section, 0, len(matches))
	for i, m := range matches {
		end := len(markdown)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		hashes := markdown[m[2]:m[3]]
		title := markdown[m[4]:m[5]]
		content := strings.TrimSpace(markdown[m[0]:end])

		sections = append(sections, Section{
			Title:   truncate(title, s.maxTitleLength),
			Level:   len(hashes),
			Content: truncate(content, s.maxContentLength),
		})
	}
	return sections
}

// truncate bounds text to max characters, cutting at the last word
// boundary and appending an ellipsis. The result never exceeds max.
func truncate(text string, max int) string {
	if utf8.RuneCountInString(text) <= max {
		return text
	}

	runes := []rune(text)
	cut := runes[:max-len(ellipsis)]
	truncated := string(cut)
	if idx := strings.LastIndex(truncated, " "); idx > 0 {
		truncated = truncated[:idx]
	}
	return strings.TrimRight(truncated, " \t\n") + ellipsis
}
