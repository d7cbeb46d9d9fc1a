package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as one page, validating it is valid UTF-8.
// Invalid sequences are replaced with the replacement character.
func extractPlain(content []byte) ([]Page, error) {
	text := string(content)
	if !utf8.Valid(content) {
		text = strings.ToValidUTF8(text, "�")
	}
	return []Page{{Number: 1, Text: text}}, nil
}
