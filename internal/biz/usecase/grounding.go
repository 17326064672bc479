package usecase

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/domain"
)

const (
	sourcesHeading     = "📚 **Джерела інформації:**"
	searchQueryHeading = "🔍 **Пошуковий запит:**"
	maxSourceTitle     = 60
)

var (
	citationMarker = regexp.MustCompile(`\[\d+\]`)
	titleSuffix    = regexp.MustCompile(`^(.*\S)\s+[-–|]\s.*$`)
	whitespace     = regexp.MustCompile(`\s+`)
)

// StripCitations removes inline markers like [1] from a grounded answer
func StripCitations(text string) string {
	return citationMarker.ReplaceAllString(text, "")
}

// DedupeSources drops sources without a URI and repeated URIs, keeping order
func DedupeSources(sources []domain.Source) []domain.Source {
	seen := make(map[string]bool, len(sources))
	var out []domain.Source
	for _, s := range sources {
		if s.URI == "" || seen[s.URI] {
			continue
		}
		seen[s.URI] = true
		out = append(out, domain.Source{Title: cleanTitle(s.Title, s.URI), URI: s.URI})
	}
	return out
}

// FormatGrounded strips citation markers from the body and appends a
// sources section followed by the first search query
func FormatGrounded(body string, sources []domain.Source, queries []string) string {
	text := strings.TrimSpace(StripCitations(body))
	sources = DedupeSources(sources)
	if len(sources) == 0 {
		return text
	}

	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\n\n")
	sb.WriteString(sourcesHeading)
	sb.WriteString("\n")
	for i, s := range sources {
		sb.WriteString(fmt.Sprintf("%d. [%s](%s)\n", i+1, truncateRunes(s.Title, maxSourceTitle), s.URI))
	}
	if len(queries) > 0 && queries[0] != "" {
		sb.WriteString("\n")
		sb.WriteString(searchQueryHeading)
		sb.WriteString("\n`")
		sb.WriteString(queries[0])
		sb.WriteString("`")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func cleanTitle(title, uri string) string {
	t := strings.TrimSpace(title)
	switch strings.ToLower(t) {
	case "", "untitled", "none":
		return domainTitle(uri)
	}
	t = whitespace.ReplaceAllString(t, " ")
	// only the last separator starts the site name
	t = titleSuffix.ReplaceAllString(t, "${1}")
	return strings.TrimSpace(t)
}

// domainTitle returns the capitalised first label of the host
func domainTitle(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return uri
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	label := strings.SplitN(host, ".", 2)[0]
	if label == "" {
		return host
	}
	r, size := utf8.DecodeRuneInString(label)
	return strings.ToUpper(string(r)) + label[size:]
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-3]) + "..."
}
