package model

// Kind is the structural class of a node. Every root-to-leaf path in a
// valid tree reads as Container+ Paragraph? Inline* (Text at the leaf).
type Kind int

const (
	// Container holds other containers or paragraphs: the document body,
	// lists, list items, tables and cells, figures.
	Container Kind = iota
	// Paragraph holds inline content only.
	Paragraph
	// Inline is formatted in-line content, never holding blocks.
	Inline
	// Text is character data. Text nodes have no children.
	Text
)

func (k Kind) String() string {
	switch k {
	case Container:
		return "container"
	case Paragraph:
		return "paragraph"
	case Inline:
		return "inline"
	case Text:
		return "text"
	}
	return "unknown"
}

// TextName is the element name given to every text node.
const TextName = "#text"

// Policy is the structural grammar table. It is injected by the embedding
// editor; schema/basic provides the HTML one.
type Policy interface {
	// KindOf classifies an element name. It is never called for text.
	KindOf(name string) Kind
	// IsHeading reports whether n is a heading element.
	IsHeading(n *Node) bool
	// HeadingAllowedIn reports whether a heading may be a direct child of
	// parent.
	HeadingAllowedIn(parent *Node) bool
	// NestingAllowed reports whether the container or paragraph child may
	// sit directly inside parent.
	NestingAllowed(parent, child *Node) bool
	// IsOpaque reports whether n is generated content the cursor may not
	// enter (item numbers, generated tables of contents).
	IsOpaque(n *Node) bool
	// ParagraphName is the element used to wrap stray inline content.
	ParagraphName() string
}
