package tools

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type englishArgs struct {
	Text *string `json:"text"`
}

// executeEnglish dispatches the text statistics operations over a
// single input string.
func executeEnglish(op string, rawArgs string) Result {
	var args englishArgs
	if err := json.UnmarshalFromString(rawArgs, &args); err != nil {
		return Result{Err: fmt.Sprintf("invalid arguments: %v", err)}
	}
	if args.Text == nil {
		return Result{Err: "argument 'text' must be a string"}
	}
	text := *args.Text

	switch op {
	case "word_count":
		return Result{Output: strconv.Itoa(len(strings.Fields(text)))}

	case "letter_count":
		count := 0
		for _, r := range text {
			if !unicode.IsSpace(r) {
				count++
			}
		}
		return Result{Output: strconv.Itoa(count)}

	case "most_used_word":
		return mostUsedWord(text)

	case "letter_frequency":
		freq := make(map[string]int)
		for _, r := range strings.ToLower(text) {
			if unicode.IsSpace(r) {
				continue
			}
			freq[string(r)]++
		}
		out, err := json.MarshalToString(freq)
		if err != nil {
			return Result{Err: fmt.Sprintf("failed to encode frequency map: %v", err)}
		}
		return Result{Output: out}

	default:
		return Result{Err: fmt.Sprintf("unknown english operation: %s", op)}
	}
}

// mostUsedWord finds the most frequent word case-insensitively. Ties go
// to the word encountered first in a left-to-right scan, so counting
// and picking are two separate passes over the token list.
func mostUsedWord(text string) Result {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return Result{Output: ""}
	}

	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}

	best := ""
	bestCount := 0
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		if counts[w] > bestCount {
			best = w
			bestCount = counts[w]
		}
	}
	return Result{Output: best}
}
