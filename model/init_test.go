package model_test

import (
	. "github.com/cozy/docengine/model"
	"github.com/cozy/docengine/schema/basic"
	"github.com/cozy/docengine/test/builder"
)

var (
	parse  = builder.MustParse
	newDoc = func() *Tree { return NewTree(basic.Default) }
)

// child follows a path of child indexes from n.
func child(n *Node, path ...int) *Node {
	for _, i := range path {
		n = n.MaybeChild(i)
	}
	return n
}
