package render

import (
	"iter"
	"strings"
)

// Tokens yields the streamed form of an answer: the generated SQL as a
// preamble, then the prose word by word. The sequence is lazy, single-pass
// and forward-only; a consumer that stops ranging simply stops production.
func Tokens(sqlText, prose string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if sql := strings.TrimSpace(sqlText); sql != "" {
			if !yield("SQL: " + sql + "\n\n") {
				return
			}
		}
		words := strings.Fields(prose)
		for i, word := range words {
			token := word
			if i < len(words)-1 {
				token += " "
			}
			if !yield(token) {
				return
			}
		}
	}
}
