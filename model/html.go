package model

import (
	"bytes"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ToDOM converts a node and its descendants to an HTML node. Attributes are
// emitted in sorted order so that the output is stable.
func ToDOM(n *Node) *html.Node {
	if n.IsText() {
		return &html.Node{Type: html.TextNode, Data: string(n.text)}
	}
	a := atom.Lookup([]byte(n.name))
	out := &html.Node{Type: html.ElementNode, DataAtom: a, Data: n.name}
	for _, key := range n.AttrNames() {
		out.Attr = append(out.Attr, html.Attribute{Key: key, Val: n.attrs[key]})
	}
	for _, child := range n.content.content {
		out.AppendChild(ToDOM(child))
	}
	return out
}

// RenderHTML writes the HTML serialization of n to w.
func RenderHTML(w io.Writer, n *Node) error {
	return html.Render(w, ToDOM(n))
}

// HTML returns the HTML serialization of the node.
func (n *Node) HTML() string {
	var buf bytes.Buffer
	if err := RenderHTML(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// InnerHTML returns the HTML serialization of the children of the node.
func (n *Node) InnerHTML() string {
	var buf bytes.Buffer
	for _, child := range n.content.content {
		if err := RenderHTML(&buf, child); err != nil {
			return ""
		}
	}
	return buf.String()
}

// FromDOM converts an HTML node to a detached node of t. Comments,
// doctypes and other non content nodes are dropped, and so is a nil
// result.
func (t *Tree) FromDOM(h *html.Node) *Node {
	switch h.Type {
	case html.TextNode:
		return t.NewText(h.Data)
	case html.ElementNode:
		attrs := make(map[string]string, len(h.Attr))
		for _, a := range h.Attr {
			attrs[a.Key] = a.Val
		}
		var children []*Node
		for c := h.FirstChild; c != nil; c = c.NextSibling {
			if child := t.FromDOM(c); child != nil {
				children = append(children, child)
			}
		}
		return t.NewElement(strings.ToLower(h.Data), attrs, children...)
	}
	return nil
}

// ParseHTML parses an HTML fragment, as it would appear in the body of a
// document, into detached nodes of t.
func (t *Tree) ParseHTML(src string) ([]*Node, error) {
	context := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	parsed, err := html.ParseFragment(strings.NewReader(src), context)
	if err != nil {
		return nil, err
	}
	var nodes []*Node
	for _, h := range parsed {
		if n := t.FromDOM(h); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes, nil
}

// LoadHTML replaces the content of the tree with the body of an HTML
// document, as Load does.
func (t *Tree) LoadHTML(r io.Reader) error {
	doc, err := html.Parse(r)
	if err != nil {
		return err
	}
	attrs := map[string]string{}
	var children []*Node
	if body := findBody(doc); body != nil {
		for _, a := range body.Attr {
			attrs[a.Key] = a.Val
		}
		for c := body.FirstChild; c != nil; c = c.NextSibling {
			if child := t.FromDOM(c); child != nil {
				children = append(children, child)
			}
		}
	}
	t.Load(attrs, children...)
	return nil
}

// Load replaces the attributes and the children of the root with detached
// nodes of t. Loading is not an edit: it is not undoable, it clears the
// undo log and no repair is scheduled. No position may be tracked.
func (t *Tree) Load(attrs map[string]string, children ...*Node) {
	if t.TrackedCount() > 0 {
		Misusef("Load", "%d positions are still tracked", t.TrackedCount())
	}
	for _, child := range children {
		t.checkOwned("Load", child)
		if child.parent != nil || child == t.root {
			Misusef("Load", "child %s already has a parent", child.name)
		}
	}
	for _, child := range t.root.content.content {
		child.parent = nil
	}
	t.root.content.content = nil
	t.root.attrs = copyAttrs(attrs)
	for _, child := range children {
		t.root.content.insert(t.root.content.ChildCount(), child)
		child.parent = t.root
	}
	t.undo.Clear()
}

func findBody(h *html.Node) *html.Node {
	if h.Type == html.ElementNode && h.DataAtom == atom.Body {
		return h
	}
	for c := h.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
