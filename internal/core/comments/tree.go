package comments

// BuildTree nests a flat list of comments by ParentID.
//
// Roots and siblings keep their input order. A comment whose parent is not in the
// input is an orphan and is dropped along with its subtree. Inputs are copied, so
// the returned nodes never alias the caller's comments.
func BuildTree(flat []*Comment) []*CommentWithDepth {
	nodes := make(map[string]*CommentWithDepth, len(flat))
	ordered := make([]*CommentWithDepth, 0, len(flat))

	for _, c := range flat {
		if c == nil {
			continue
		}
		if _, dup := nodes[c.ID]; dup {
			continue
		}
		n := &CommentWithDepth{
			Comment:  *c,
			Depth:    len(c.Path),
			Children: []*CommentWithDepth{},
		}
		nodes[c.ID] = n
		ordered = append(ordered, n)
	}

	roots := make([]*CommentWithDepth, 0)
	for _, n := range ordered {
		if n.IsRoot() {
			roots = append(roots, n)
			continue
		}
		if parent, ok := nodes[*n.ParentID]; ok {
			parent.Children = append(parent.Children, n)
		}
	}

	return roots
}

// FlattenTree walks the tree pre-order: each node before its children, children in stored order
func FlattenTree(roots []*CommentWithDepth) []*Comment {
	out := make([]*Comment, 0, len(roots))
	var walk func([]*CommentWithDepth)
	walk = func(nodes []*CommentWithDepth) {
		for _, n := range nodes {
			c := n.Comment
			out = append(out, &c)
			walk(n.Children)
		}
	}
	walk(roots)
	return out
}

// LimitDepth cuts every node at depth maxDepth (roots are depth 1) down to no children.
// A maxDepth of zero or less returns roots unchanged.
//
// The input is never mutated. Nodes on a path to a cut are copied; subtrees that need
// no cut are shared with the input.
func LimitDepth(roots []*CommentWithDepth, maxDepth int) []*CommentWithDepth {
	if maxDepth <= 0 {
		return roots
	}
	limited, _ := limitNodes(roots, maxDepth)
	return limited
}

func limitNodes(nodes []*CommentWithDepth, maxDepth int) ([]*CommentWithDepth, bool) {
	var out []*CommentWithDepth
	for i, n := range nodes {
		limited, changed := limitNode(n, maxDepth)
		if changed && out == nil {
			out = make([]*CommentWithDepth, len(nodes))
			copy(out, nodes[:i])
		}
		if out != nil {
			out[i] = limited
		}
	}
	if out == nil {
		return nodes, false
	}
	return out, true
}

func limitNode(n *CommentWithDepth, maxDepth int) (*CommentWithDepth, bool) {
	if n.Depth >= maxDepth {
		if len(n.Children) == 0 {
			return n, false
		}
		cut := *n
		cut.Children = []*CommentWithDepth{}
		return &cut, true
	}

	children, changed := limitNodes(n.Children, maxDepth)
	if !changed {
		return n, false
	}
	cp := *n
	cp.Children = children
	return &cp, true
}

// PruneTree removes nodes for which keep returns false, unless they still have kept
// descendants. Those survive as placeholders with their authored content stripped,
// so replies keep a visible parent chain.
func PruneTree(roots []*CommentWithDepth, keep func(*Comment) bool) []*CommentWithDepth {
	out := make([]*CommentWithDepth, 0, len(roots))
	for _, n := range roots {
		if pruned := pruneNode(n, keep); pruned != nil {
			out = append(out, pruned)
		}
	}
	return out
}

func pruneNode(n *CommentWithDepth, keep func(*Comment) bool) *CommentWithDepth {
	children := PruneTree(n.Children, keep)
	kept := keep(&n.Comment)
	if !kept && len(children) == 0 {
		return nil
	}

	cp := *n
	cp.Children = children
	if !kept {
		cp.Comment = n.Comment.Placeholder()
		cp.Placeholder = true
	}
	return &cp
}
