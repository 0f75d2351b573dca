package segment

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Metadata holds parsed YAML frontmatter keys.
type Metadata map[string]any

// extractFrontmatter splits leading YAML frontmatter from a markdown
// document. The block must start at the first byte with "---\n" and
// close with a "\n---\n" delimiter. Invalid YAML leaves the document
// untouched: a bad frontmatter block must never drop a file from the
// index.
func extractFrontmatter(content string) (Metadata, string) {
	if !strings.HasPrefix(content, "---\n") {
		return Metadata{}, content
	}

	end := strings.Index(content[4:], "\n---\n")
	if end == -1 {
		return Metadata{}, content
	}
	end += 4

	var meta Metadata
	if err := yaml.Unmarshal([]byte(content[4:end]), &meta); err != nil {
		return Metadata{}, content
	}
	if meta == nil {
		meta = Metadata{}
	}

	return meta, strings.TrimSpace(content[end+5:])
}
