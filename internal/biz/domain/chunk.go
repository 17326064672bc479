package domain

import "fmt"

// ResponseChunk is one piece of a split response
type ResponseChunk struct {
	Index int // 1-based
	Total int
	Text  string
}

// Footer returns the page marker, empty for a single-chunk response
func (c ResponseChunk) Footer() string {
	if c.Total <= 1 {
		return ""
	}
	return fmt.Sprintf("\n\n(%d/%d)", c.Index, c.Total)
}

// Render returns the chunk text with its page marker
func (c ResponseChunk) Render() string {
	return c.Text + c.Footer()
}

// IsFirst reports whether this chunk replaces the placeholder
func (c ResponseChunk) IsFirst() bool {
	return c.Index == 1
}
