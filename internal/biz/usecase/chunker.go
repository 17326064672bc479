package usecase

import (
	"unicode"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
)

// DefaultMaxMessageLength leaves headroom under Telegram's 4096 limit
// for the header and page marker
const DefaultMaxMessageLength = 4000

// Chunk splits text into pieces of at most maxLen runes.
// Split points are searched backward from the window end: paragraph break,
// then sentence end followed by whitespace, then a space. A candidate is only
// accepted in the second half of the window, otherwise the window is cut hard.
// Concatenating the chunk texts reproduces the input.
func Chunk(text string, maxLen int) []domain.ResponseChunk {
	if maxLen < 1 {
		maxLen = 1
	}

	runes := []rune(text)
	if len(runes) <= maxLen {
		return []domain.ResponseChunk{{Index: 1, Total: 1, Text: text}}
	}

	var parts []string
	for len(runes) > maxLen {
		cut := splitPoint(runes[:maxLen])
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}

	chunks := make([]domain.ResponseChunk, len(parts))
	for i, p := range parts {
		chunks[i] = domain.ResponseChunk{Index: i + 1, Total: len(parts), Text: p}
	}
	return chunks
}

// splitPoint returns the length of the next chunk within window
func splitPoint(window []rune) int {
	n := len(window)
	mid := n / 2
	if mid < 1 {
		mid = 1
	}

	// paragraph break, split after "\n\n"
	for i := n - 2; i >= 0; i-- {
		if window[i] == '\n' && window[i+1] == '\n' {
			if i+2 >= mid {
				return i + 2
			}
			break
		}
	}

	// sentence end followed by whitespace, split after the whitespace
	for i := n - 2; i >= 0; i-- {
		if isSentenceEnd(window[i]) && unicode.IsSpace(window[i+1]) {
			if i+2 >= mid {
				return i + 2
			}
			break
		}
	}

	// plain space, split after it
	for i := n - 1; i >= 0; i-- {
		if window[i] == ' ' {
			if i+1 >= mid {
				return i + 1
			}
			break
		}
	}

	return n
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '…':
		return true
	}
	return false
}
