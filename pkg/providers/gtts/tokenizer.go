package gtts

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MaxTokenLength is the longest text the endpoint accepts per request.
const MaxTokenLength = 100

const punctuation = "?!？！.,¡()[]¿…‥،;:—。，、："

// Tokenize splits text into request-sized pieces. Text that already fits is
// sent whole; longer text is cut after punctuation first and then at the
// last space before the limit.
func Tokenize(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" || onlyPunctuation(text) {
		return nil
	}
	if utf8.RuneCountInString(text) <= MaxTokenLength {
		return []string{text}
	}

	var out []string
	for _, part := range splitAfterPunctuation(text) {
		part = strings.TrimSpace(part)
		if part == "" || onlyPunctuation(part) {
			continue
		}
		out = append(out, minimize(part, MaxTokenLength)...)
	}
	return out
}

func splitAfterPunctuation(text string) []string {
	var parts []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if strings.ContainsRune(punctuation, r) {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func minimize(text string, max int) []string {
	var out []string
	for {
		r := []rune(strings.TrimSpace(text))
		if len(r) == 0 {
			return out
		}
		if len(r) <= max {
			return append(out, string(r))
		}
		cut := max
		for i := max; i > 0; i-- {
			if unicode.IsSpace(r[i]) {
				cut = i
				break
			}
		}
		out = append(out, strings.TrimSpace(string(r[:cut])))
		text = string(r[cut:])
	}
}

func onlyPunctuation(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune(punctuation, r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
