// Package basic defines the default structural grammar of HTML documents:
// which elements are containers, which are paragraphs, where headings may
// appear and which containers refuse some blocks. Every other element is
// inline.
package basic

import (
	"github.com/cozy/docengine/model"
)

// Spec is the grammar table. It can be read from the [grammar] section of
// the configuration file.
type Spec struct {
	// Containers hold other containers or paragraphs.
	Containers []string `toml:"containers" yaml:"containers"`
	// Paragraphs hold inline content only.
	Paragraphs []string `toml:"paragraphs" yaml:"paragraphs"`
	// Headings are paragraphs that may only be children of HeadingParents.
	Headings       []string `toml:"headings" yaml:"headings"`
	HeadingParents []string `toml:"heading_parents" yaml:"heading_parents"`
	// Restrictive maps a container to the blocks it may not hold.
	Restrictive map[string][]string `toml:"restrictive" yaml:"restrictive"`
	// OpaqueClasses mark elements whose content is edited as a whole.
	OpaqueClasses []string `toml:"opaque_classes" yaml:"opaque_classes"`
	// ParagraphName is the element created to wrap stray inline content.
	ParagraphName string `toml:"paragraph_name" yaml:"paragraph_name"`
}

var headings = []string{"h1", "h2", "h3", "h4", "h5", "h6"}

// DefaultSpec returns the grammar of the HTML elements an editor usually
// meets.
func DefaultSpec() Spec {
	restricted := append([]string{"figure", "table"}, headings...)
	return Spec{
		Containers: []string{
			"body", "ul", "ol", "li", "table", "caption", "thead", "tfoot",
			"tbody", "tr", "th", "td", "col", "figure", "figcaption", "nav",
			"div",
		},
		Paragraphs:     append([]string{"p", "pre", "blockquote"}, headings...),
		Headings:       append([]string(nil), headings...),
		HeadingParents: []string{"body", "nav", "div"},
		Restrictive: map[string][]string{
			"caption":    restricted,
			"figcaption": restricted,
			"table":      restricted,
			"figure":     restricted,
		},
		OpaqueClasses: []string{"equation", "figure", "footnote"},
		ParagraphName: "p",
	}
}

// Policy answers the grammar questions of the model from a Spec.
type Policy struct {
	kinds          map[string]model.Kind
	headings       map[string]bool
	headingParents map[string]bool
	restrictive    map[string]map[string]bool
	opaque         []string
	paragraph      string
}

var _ model.Policy = (*Policy)(nil)

// New builds a policy from spec. Names missing from both the container and
// the paragraph tables are inline.
func New(spec Spec) *Policy {
	p := &Policy{
		kinds:          make(map[string]model.Kind),
		headings:       set(spec.Headings),
		headingParents: set(spec.HeadingParents),
		restrictive:    make(map[string]map[string]bool),
		opaque:         append([]string(nil), spec.OpaqueClasses...),
		paragraph:      spec.ParagraphName,
	}
	for _, name := range spec.Containers {
		p.kinds[name] = model.Container
	}
	for _, name := range spec.Paragraphs {
		p.kinds[name] = model.Paragraph
	}
	for _, name := range spec.Headings {
		if _, ok := p.kinds[name]; !ok {
			p.kinds[name] = model.Paragraph
		}
	}
	for parent, children := range spec.Restrictive {
		p.restrictive[parent] = set(children)
	}
	if p.paragraph == "" {
		p.paragraph = "p"
	}
	if p.kinds[p.paragraph] != model.Paragraph {
		p.kinds[p.paragraph] = model.Paragraph
	}
	return p
}

// Default is the policy of DefaultSpec.
var Default = New(DefaultSpec())

func set(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, name := range names {
		m[name] = true
	}
	return m
}

// KindOf implements model.Policy.
func (p *Policy) KindOf(name string) model.Kind {
	if name == model.TextName {
		return model.Text
	}
	if kind, ok := p.kinds[name]; ok {
		return kind
	}
	return model.Inline
}

// IsHeading implements model.Policy.
func (p *Policy) IsHeading(n *model.Node) bool {
	return !n.IsText() && p.headings[n.Name()]
}

// HeadingAllowedIn implements model.Policy.
func (p *Policy) HeadingAllowedIn(parent *model.Node) bool {
	return parent != nil && p.headingParents[parent.Name()]
}

// NestingAllowed implements model.Policy. A block can only be the child of
// a container, and restrictive containers refuse some blocks.
func (p *Policy) NestingAllowed(parent, child *model.Node) bool {
	if parent == nil || !child.IsBlock() {
		return true
	}
	if !parent.IsContainer() {
		return false
	}
	if excluded, ok := p.restrictive[parent.Name()]; ok && excluded[child.Name()] {
		return false
	}
	return true
}

// IsOpaque implements model.Policy.
func (p *Policy) IsOpaque(n *model.Node) bool {
	if n.IsText() {
		return false
	}
	for _, class := range p.opaque {
		if n.HasClass(class) {
			return true
		}
	}
	return false
}

// ParagraphName implements model.Policy.
func (p *Policy) ParagraphName() string { return p.paragraph }
