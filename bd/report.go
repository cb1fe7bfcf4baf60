package bd

import (
	"fmt"
	"strings"

	"bitbucket.org/mkoren/famrate/family"
	"bitbucket.org/mkoren/famrate/tree"
)

// AnnotatedString renders the tree with the family's observed counts
// on the leaves and the maximum partial likelihood of every node from
// the last FamilyLikelihoods call, e.g. "(human_2<0.1>,chimp_1<0.2>)<0.05>;".
// Branch lengths are omitted.
func (e *Engine) AnnotatedString(f *family.Family) string {
	var b strings.Builder
	e.annotateNode(&b, f, e.t.Node)
	b.WriteByte(';')
	return b.String()
}

func (e *Engine) annotateNode(b *strings.Builder, f *family.Family, node *tree.Node) {
	if node.IsTerminal() {
		count := f.Counts[e.leafCol[node.ID]]
		if count == family.Missing {
			fmt.Fprintf(b, "%s_-<%g>", node.Name, e.nodeMax(node))
		} else {
			fmt.Fprintf(b, "%s_%d<%g>", node.Name, count, e.nodeMax(node))
		}
		return
	}
	b.WriteByte('(')
	for i, child := range node.ChildNodes() {
		if i > 0 {
			b.WriteByte(',')
		}
		e.annotateNode(b, f, child)
	}
	b.WriteByte(')')
	if node.Name != "" {
		b.WriteString(node.Name)
	}
	fmt.Fprintf(b, "<%g>", e.nodeMax(node))
}
