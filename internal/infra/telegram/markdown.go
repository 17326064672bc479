package telegram

import (
	"bytes"
	"fmt"
	htmlstd "html"
	"strings"

	"github.com/gotd/td/telegram/message/html"
	"github.com/gotd/td/telegram/message/styling"
	"github.com/gotd/td/tg"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Model output is markdown; Telegram takes a small HTML subset which gotd
// turns into message entities.
var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// inlineTags maps rendered tags to the Telegram tag that replaces them
var inlineTags = map[string]string{
	"b":      "b",
	"strong": "b",
	"i":      "i",
	"em":     "i",
	"u":      "u",
	"s":      "s",
	"del":    "s",
	"strike": "s",
	"code":   "code",
}

// Styled converts markdown into a styled text option
func Styled(markdown string) styling.StyledTextOption {
	return html.String(noMentions, MarkdownToHTML(markdown))
}

func noMentions(id int64) (tg.InputUserClass, error) {
	return nil, fmt.Errorf("user mention %d is not supported", id)
}

// MarkdownToHTML renders markdown into Telegram-compatible HTML.
// Unsupported block elements are flattened to text.
func MarkdownToHTML(markdown string) string {
	var raw bytes.Buffer
	if err := markdownRenderer.Convert([]byte(markdown), &raw); err != nil {
		return htmlstd.EscapeString(markdown)
	}

	root := &xhtml.Node{Type: xhtml.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := xhtml.ParseFragment(&raw, root)
	if err != nil {
		return htmlstd.EscapeString(markdown)
	}

	w := &htmlWriter{}
	for _, n := range nodes {
		w.node(n)
	}
	out := strings.TrimSpace(w.sb.String())
	for strings.Contains(out, "\n\n\n") {
		out = strings.ReplaceAll(out, "\n\n\n", "\n\n")
	}
	if out == "" {
		return htmlstd.EscapeString(strings.TrimSpace(markdown))
	}
	return out
}

type htmlWriter struct {
	sb    strings.Builder
	inPre bool
}

func (w *htmlWriter) node(n *xhtml.Node) {
	switch n.Type {
	case xhtml.TextNode:
		w.text(n.Data)
	case xhtml.ElementNode:
		w.element(n)
	}
}

func (w *htmlWriter) children(n *xhtml.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.node(c)
	}
}

func (w *htmlWriter) text(s string) {
	if !w.inPre {
		// whitespace between block elements
		if strings.TrimSpace(s) == "" && strings.Contains(s, "\n") {
			return
		}
		s = strings.ReplaceAll(s, "\n", " ")
		if strings.HasSuffix(w.sb.String(), "\n") {
			s = strings.TrimLeft(s, " ")
		}
	}
	w.sb.WriteString(htmlstd.EscapeString(s))
}

func (w *htmlWriter) element(n *xhtml.Node) {
	tag := n.Data
	if t, ok := inlineTags[tag]; ok {
		if tag == "code" && w.inPre {
			w.codeBlock(n)
			return
		}
		w.wrap(t, "", n)
		return
	}

	switch tag {
	case "p", "blockquote":
		w.children(n)
		w.paragraph()
	case "br":
		w.newline()
	case "h1", "h2", "h3", "h4", "h5", "h6":
		w.wrap("b", "", n)
		w.paragraph()
	case "ul", "ol":
		w.list(n, tag == "ol")
		w.paragraph()
	case "hr":
		w.paragraph()
	case "pre":
		w.sb.WriteString("<pre>")
		w.inPre = true
		w.children(n)
		w.inPre = false
		w.sb.WriteString("</pre>")
		w.paragraph()
	case "a":
		href := attr(n, "href")
		if !allowedHref(href) {
			w.children(n)
			return
		}
		w.wrap("a", ` href="`+htmlstd.EscapeString(href)+`"`, n)
	default:
		w.children(n)
	}
}

func (w *htmlWriter) wrap(tag, attrs string, n *xhtml.Node) {
	w.sb.WriteString("<" + tag + attrs + ">")
	w.children(n)
	w.sb.WriteString("</" + tag + ">")
}

func (w *htmlWriter) codeBlock(n *xhtml.Node) {
	attrs := ""
	if cls := attr(n, "class"); strings.HasPrefix(cls, "language-") {
		attrs = ` class="` + htmlstd.EscapeString(cls) + `"`
	}
	w.sb.WriteString("<code" + attrs + ">")
	w.children(n)
	w.sb.WriteString("</code>")
}

func (w *htmlWriter) list(n *xhtml.Node, ordered bool) {
	i := 0
	for li := n.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != xhtml.ElementNode || li.Data != "li" {
			continue
		}
		i++
		w.newline()
		if ordered {
			fmt.Fprintf(&w.sb, "%d. ", i)
		} else {
			w.sb.WriteString("• ")
		}
		w.listItem(li)
	}
}

// listItem renders an item; loose lists wrap item text in <p>
func (w *htmlWriter) listItem(li *xhtml.Node) {
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xhtml.ElementNode && c.Data == "p" {
			w.children(c)
			continue
		}
		w.node(c)
	}
}

func (w *htmlWriter) newline() {
	s := w.sb.String()
	if s == "" || strings.HasSuffix(s, "\n") {
		return
	}
	w.sb.WriteByte('\n')
}

func (w *htmlWriter) paragraph() {
	s := w.sb.String()
	switch {
	case s == "", strings.HasSuffix(s, "\n\n"):
	case strings.HasSuffix(s, "\n"):
		w.sb.WriteByte('\n')
	default:
		w.sb.WriteString("\n\n")
	}
}

func attr(n *xhtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func allowedHref(href string) bool {
	lower := strings.ToLower(href)
	for _, scheme := range []string{"http://", "https://", "tg://", "mailto:"} {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
