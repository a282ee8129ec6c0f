// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// skipClasses marks page furniture whose text is never content.
var skipClasses = []string{
	"mw-editsection",
	"reference",
	"reflist",
	"references",
	"navbox",
	"noprint",
	"mw-empty-elt",
	"shortdescription",
	"hatnote",
	"thumbcaption",
}

// HTMLToText renders parsed page HTML as line-structured text. Headings
// become "== Heading ==" (one '=' more per level below h2), list items
// "* item" (ordered items "* 3. item"), table rows "| a | b |", and italic
// runs "_x_". Scripts, styles, citations, and edit links are dropped.
func HTMLToText(src string) (string, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}
	r := &renderer{}
	r.walk(root)
	r.flush()
	return strings.Join(r.lines, "\n"), nil
}

type renderer struct {
	lines []string
	cur   strings.Builder
	// cells collects the text of the table row being rendered.
	cells  []string
	inRow  bool
	inCell bool
}

func (r *renderer) flush() {
	line := strings.Join(strings.Fields(r.cur.String()), " ")
	r.cur.Reset()
	if line != "" {
		r.lines = append(r.lines, line)
	}
}

func (r *renderer) text(s string) {
	r.cur.WriteString(s)
}

func (r *renderer) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		r.text(n.Data)
		return
	case html.ElementNode:
		if skip(n) {
			return
		}
	case html.DocumentNode:
	default:
		return
	}

	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		r.flush()
		level := int(n.Data[1] - '0')
		marks := strings.Repeat("=", max(2, level))
		r.text(marks + " ")
		r.children(n)
		r.text(" " + marks)
		r.flush()
		return

	case atom.Li:
		if r.inCell {
			r.text(" ")
			r.children(n)
			return
		}
		r.flush()
		r.text("* ")
		if n.Parent != nil && n.Parent.DataAtom == atom.Ol {
			r.text(strconv.Itoa(listIndex(n)) + ". ")
		}
		r.children(n)
		r.flush()
		return

	case atom.Tr:
		r.flush()
		r.inRow, r.cells = true, nil
		r.children(n)
		r.inRow = false
		if len(r.cells) > 0 {
			r.text("| " + strings.Join(r.cells, " | ") + " |")
		}
		r.cells = nil
		r.flush()
		return

	case atom.Td, atom.Th:
		if !r.inRow || r.inCell {
			r.children(n)
			return
		}
		saved := r.cur.String()
		r.cur.Reset()
		r.inCell = true
		r.children(n)
		r.inCell = false
		cell := strings.Join(strings.Fields(r.cur.String()), " ")
		r.cur.Reset()
		r.cur.WriteString(saved)
		r.cells = append(r.cells, cell)
		return

	case atom.I, atom.Em, atom.Cite:
		var inner renderer
		inner.inRow, inner.inCell = r.inRow, r.inCell
		inner.children(n)
		t := strings.TrimSpace(inner.cur.String())
		if t != "" {
			r.text("_" + t + "_")
		}
		return

	case atom.Br:
		if !r.inCell {
			r.flush()
		} else {
			r.text(" ")
		}
		return

	case atom.P, atom.Div, atom.Ul, atom.Ol, atom.Dl, atom.Dd, atom.Dt, atom.Table,
		atom.Blockquote, atom.Section, atom.Caption, atom.Figure:
		if r.inCell {
			r.children(n)
			return
		}
		r.flush()
		r.children(n)
		r.flush()
		return
	}

	r.children(n)
}

func (r *renderer) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		r.walk(c)
	}
}

func skip(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Sup, atom.Head, atom.Link, atom.Meta:
		return true
	}
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, cls := range strings.Fields(a.Val) {
			for _, s := range skipClasses {
				if cls == s {
					return true
				}
			}
		}
	}
	return false
}

// listIndex returns the 1-based position of li among its element siblings.
func listIndex(li *html.Node) int {
	i := 1
	for s := li.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.DataAtom == atom.Li {
			i++
		}
	}
	return i
}
