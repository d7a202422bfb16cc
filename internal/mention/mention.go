// Package mention handles @name references in note text: parsing, HTML
// highlighting, typing suggestions and resolution to candidate ids.
package mention

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/kalambet/talentflow/internal/record"
)

const (
	// ClassName is the CSS class of highlighted mentions.
	ClassName = "mentions"

	emptyQueryLimit = 5
	matchLimit      = 8
)

// A mention is "@" plus a word, extended by following capitalized words so
// full names like "@Ann Lee" match while "@ann please" stops after "ann".
var mentionRE = regexp.MustCompile(`@([\p{L}\p{N}_.]+(?:[ \t]+\p{Lu}[\p{L}\p{N}_.]*)*)`)

// Mention is one @name occurrence. Start and End are byte offsets of the
// whole token including "@".
type Mention struct {
	Name  string
	Start int
	End   int
}

// Parse returns the mentions in text in order of appearance.
func Parse(text string) []Mention {
	var out []Mention
	for _, loc := range mentionRE.FindAllStringSubmatchIndex(text, -1) {
		name := strings.TrimRight(text[loc[2]:loc[3]], ".")
		if name == "" {
			continue
		}
		out = append(out, Mention{Name: name, Start: loc[0], End: loc[2] + len(name)})
	}
	return out
}

// Names returns the distinct mentioned names.
func Names(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range Parse(text) {
		key := strings.ToLower(m.Name)
		if !seen[key] {
			seen[key] = true
			out = append(out, m.Name)
		}
	}
	return out
}

// RenderHTML returns text as escaped HTML with every mention wrapped in
// <span class="mentions">.
func RenderHTML(text string) string {
	var buf bytes.Buffer
	render := func(n *html.Node) {
		_ = html.Render(&buf, n)
	}
	pos := 0
	for _, m := range Parse(text) {
		if m.Start > pos {
			render(&html.Node{Type: html.TextNode, Data: text[pos:m.Start]})
		}
		span := &html.Node{
			Type:     html.ElementNode,
			DataAtom: atom.Span,
			Data:     "span",
			Attr:     []html.Attribute{{Key: "class", Val: ClassName}},
		}
		span.AppendChild(&html.Node{Type: html.TextNode, Data: "@" + m.Name})
		render(span)
		pos = m.End
	}
	if pos < len(text) {
		render(&html.Node{Type: html.TextNode, Data: text[pos:]})
	}
	return buf.String()
}

// Suggest returns names to offer while the user types text. Only the part
// after the last "@" is considered: an empty query offers the first five
// names, otherwise up to eight case-insensitive substring matches.
func Suggest(names []string, text string) []string {
	idx := strings.LastIndex(text, "@")
	if idx < 0 {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(text[idx+1:]))
	if q == "" {
		return append([]string(nil), names[:min(len(names), emptyQueryLimit)]...)
	}
	var out []string
	for _, n := range names {
		if strings.Contains(strings.ToLower(n), q) {
			out = append(out, n)
			if len(out) == matchLimit {
				break
			}
		}
	}
	return out
}

// Pick completes the mention being typed with name. Text without "@" is
// returned unchanged.
func Pick(text, name string) string {
	idx := strings.LastIndex(text, "@")
	if idx < 0 {
		return text
	}
	return text[:idx+1] + name + " "
}

// Resolve maps mentioned names to candidate ids. A name matches a candidate
// whose full name equals it, or, failing that, the single candidate whose
// name starts with it. Ambiguous and unknown names are skipped.
func Resolve(names []string, candidates []record.Candidate) []string {
	seen := map[string]bool{}
	var out []string
	add := func(id string) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, name := range names {
		lower := strings.ToLower(name)
		var exact, prefix []string
		for _, c := range candidates {
			cn := strings.ToLower(c.Name)
			switch {
			case cn == lower:
				exact = append(exact, c.ID)
			case strings.HasPrefix(cn, lower):
				prefix = append(prefix, c.ID)
			}
		}
		switch {
		case len(exact) == 1:
			add(exact[0])
		case len(exact) == 0 && len(prefix) == 1:
			add(prefix[0])
		}
	}
	return out
}
