package transform

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/cozy/docengine/model"
)

// Violation describes a node that breaks the structural grammar.
type Violation struct {
	Node *model.Node
	Msg  string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s#%d in %s: %s", v.Node.Name(), v.Node.ID(), v.Node.Parent().Name(), v.Msg)
}

// CheckHierarchy walks the tree and returns every grammar violation it
// finds, combined with multierr, or nil when the tree is valid. White space
// text directly in a container is accepted.
func CheckHierarchy(t *model.Tree) error {
	policy := t.Policy()
	var err error
	var visit func(n *model.Node)
	visit = func(n *model.Node) {
		for _, child := range n.Children() {
			switch {
			case child.IsInline() && n.IsContainer() && !child.IsWhitespace():
				err = multierr.Append(err, &Violation{Node: child, Msg: "inline content directly in a container"})
			case policy.IsHeading(child) && !policy.HeadingAllowedIn(n):
				err = multierr.Append(err, &Violation{Node: child, Msg: "heading not allowed here"})
			case child.IsBlock() && !policy.NestingAllowed(n, child):
				err = multierr.Append(err, &Violation{Node: child, Msg: "block not allowed here"})
			}
			visit(child)
		}
	}
	visit(t.Root())
	return err
}

// Violations splits the error of CheckHierarchy.
func Violations(err error) []*Violation {
	var out []*Violation
	for _, e := range multierr.Errors(err) {
		if v, ok := e.(*Violation); ok {
			out = append(out, v)
		}
	}
	return out
}
