package chat

import (
	"regexp"
	"strings"
)

// CodeBlockSeparator joins multiple extracted code blocks into one script.
const CodeBlockSeparator = "\n# ---\n"

var fencedBlockRe = regexp.MustCompile("(?s)```[a-zA-Z0-9_+.-]*\r?\n(.*?)```")

// ExtractCodeBlocks returns the bodies of all fenced code blocks in text,
// in order of appearance. The fence language tag and the surrounding fence
// lines are stripped.
func ExtractCodeBlocks(text string) []string {
	matches := fencedBlockRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, strings.TrimSuffix(m[1], "\n"))
	}
	return blocks
}

// CombineCodeBlocks extracts every fenced code block from text and joins
// them with a marker comment. It returns "" when text has no code blocks.
func CombineCodeBlocks(text string) string {
	blocks := ExtractCodeBlocks(text)
	if len(blocks) == 0 {
		return ""
	}
	return strings.Join(blocks, CodeBlockSeparator)
}
