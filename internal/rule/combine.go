package rule

// Combine folds nodes into one left-associative tree:
// ((n1 op n2) op n3) op ... op nN. A single node is returned unchanged.
// The inputs are shared, not copied.
func Combine(nodes []Node, op LogicalOp) (Node, error) {
	if len(nodes) == 0 {
		return nil, ErrEmptyCombination
	}
	if op != And && op != Or {
		return nil, ErrInvalidOperator
	}

	acc := nodes[0]
	for _, n := range nodes[1:] {
		acc = &OperatorNode{Operator: op, Left: acc, Right: n}
	}
	return acc, nil
}
