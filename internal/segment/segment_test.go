package segment

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentBasicDocument(t *testing.T) {
	doc := `# Getting Started

Welcome to the guide.

## Installation

Run the installer to set up the cluster.

### Verify

Check the version.
`
	sections, _ := New().Segment(doc)

	require.Len(t, sections, 3)
	assert.Equal(t, "Getting Started", sections[0].Title)
	assert.Equal(t, 1, sections[0].Level)
	assert.Equal(t, "Installation", sections[1].Title)
	assert.Equal(t, 2, sections[1].Level)
	assert.Equal(t, "Verify", sections[2].Title)
	assert.Equal(t, 3, sections[2].Level)

	// The header line belongs to the section content.
	assert.True(t, strings.HasPrefix(sections[0].Content, "# Getting Started"))
	assert.Contains(t, sections[1].Content, "Run the installer")
	assert.NotContains(t, sections[0].Content, "Installation\n\nRun")
}

func TestSegmentSectionsCoverDocument(t *testing.T) {
	doc := `# Alpha

first paragraph of alpha

## Beta

second paragraph, beta details

## Gamma

closing notes for gamma
`
	sections, _ := New().Segment(doc)
	require.Len(t, sections, 3)

	joined := ""
	for _, s := range sections {
		joined += s.Content + "\n"
	}
	for _, line := range strings.Split(doc, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		assert.Contains(t, joined, line)
	}
}

func TestSegmentHeadlessDocument(t *testing.T) {
	sections, _ := New().Segment("Just some prose without any headers.\n")

	require.Len(t, sections, 1)
	assert.Equal(t, "Main Content", sections[0].Title)
	assert.Equal(t, 0, sections[0].Level)
	assert.Contains(t, sections[0].Content, "Just some prose")
}

func TestSegmentFrontmatter(t *testing.T) {
	doc := "---\ntitle: Guide\ntags: [a, b]\n---\n# Body\n\ntext\n"

	sections, meta := New().Segment(doc)

	require.Len(t, sections, 1)
	assert.Equal(t, "Guide", meta["title"])
	assert.NotContains(t, sections[0].Content, "tags:")
}

func TestFrontmatterInvalidYAMLKeepsDocument(t *testing.T) {
	doc := "---\n: [broken\n---\n# Body\n"

	meta, body := extractFrontmatter(doc)

	assert.Empty(t, meta)
	assert.Equal(t, doc, body)
}

func TestFrontmatterUnterminated(t *testing.T) {
	doc := "---\ntitle: x\nno closing delimiter\n"

	meta, body := extractFrontmatter(doc)

	assert.Empty(t, meta)
	assert.Equal(t, doc, body)
}

func TestNormalizeFencedCodeBlock(t *testing.T) {
	doc := "before\n```python\nprint('hi')\nx = 1\n```\nafter"

	got := normalizeCodeBlocks(doc)

	assert.Equal(t, "before\n[CODE_BLOCK_python: Code example]\nafter", got)
}

func TestNormalizeFencedBlockWithoutLanguage(t *testing.T) {
	doc := "```\nplain\n```"

	got := normalizeCodeBlocks(doc)

	assert.Equal(t, "[CODE_BLOCK_code: Code example]", got)
}

func TestNormalizeIndentedRunCollapses(t *testing.T) {
	doc := "text\n    line one\n    line two\n\tline three\nmore text"

	got := normalizeCodeBlocks(doc)

	assert.Equal(t, "text\n[CODE_BLOCK: Indented code example]\nmore text", got)
}

func TestNormalizeSeparateIndentedRuns(t *testing.T) {
	doc := "a\n    code\nb\n    code\nc"

	got := normalizeCodeBlocks(doc)

	assert.Equal(t, 2, strings.Count(got, "[CODE_BLOCK: Indented code example]"))
}

func TestTruncateShortTextUnchanged(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 100))
}

func TestTruncateCutsAtWordBoundary(t *testing.T) {
	text := strings.Repeat("word ", 200)

	got := truncate(text, 50)

	assert.LessOrEqual(t, len(got), 50)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.False(t, strings.Contains(strings.TrimSuffix(got, "..."), "wor "),
		"must not cut mid-word")
}

func TestTruncateIdempotent(t *testing.T) {
	text := strings.Repeat("alpha beta gamma ", 100)

	once := truncate(text, 64)
	twice := truncate(once, 64)

	assert.Equal(t, once, twice)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		content string
		title   string
		want    string
	}{
		{"deployment keywords", "how to install and setup the service", "", "deployment"},
		{"security keywords", "enable authentication and encryption", "", "security"},
		{"title contributes", "nothing special here", "Performance tuning", "performance"},
		{"no keywords", "completely unrelated prose", "Notes", "general"},
		{"tie prefers earlier category", "install latency", "", "deployment"},
		{"higher score wins", "install speed latency throughput", "", "performance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.content, tt.title))
		})
	}
}

func TestCategoriesListsGeneralLast(t *testing.T) {
	cats := Categories()
	assert.Equal(t, CategoryGeneral, cats[len(cats)-1])
	assert.Contains(t, cats, "deployment")
}

func TestSegmentTitleTruncation(t *testing.T) {
	long := strings.Repeat("verylongword ", 100)
	doc := "# " + long + "\ncontent"

	sections, _ := New().Segment(doc)

	require.Len(t, sections, 1)
	assert.LessOrEqual(t, len(sections[0].Title), MaxTitleLength)
	assert.True(t, strings.HasSuffix(sections[0].Title, "..."))
}
