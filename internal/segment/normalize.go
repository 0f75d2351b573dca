package segment

import (
	"regexp"
	"strings"
)

var fencedBlockPattern = regexp.MustCompile("(?s)```(\\w+)?\\n(.*?)\\n```")

// normalizeCodeBlocks replaces code with compact placeholders so long
// listings do not dominate the embedding. Fenced blocks keep their
// language tag; a run of indented lines collapses to one placeholder.
func normalizeCodeBlocks(text string) string {
	text = fencedBlockPattern.ReplaceAllStringFunc(text, func(block string) string {
		m := fencedBlockPattern.FindStringSubmatch(block)
		lang := m[1]
		if lang == "" {
			lang = "code"
		}
		return "[CODE_BLOCK_" + lang + ": Code example]"
	})

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	inBlock := false
	for _, line := range lines {
		if strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") {
			if !inBlock {
				inBlock = true
				out = append(out, "[CODE_BLOCK: Indented code example]")
			}
			continue
		}
		inBlock = false
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
