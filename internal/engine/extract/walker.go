package extract

import "github.com/getAsterisk/stackwalk/internal/engine/parser"

// Visitor receives Enter before a node's children are visited and Leave
// after all of them have been. A non-nil error stops the walk.
type Visitor interface {
	Enter(n parser.Node) error
	Leave(n parser.Node) error
}

type walkFrame struct {
	node     parser.Node
	children []parser.Node
	next     int
}

// Walk performs a pre-order depth-first traversal of root with a paired
// post-order Leave for every Enter. It uses an explicit stack so deeply
// nested trees cannot exhaust the goroutine stack.
func Walk(root parser.Node, v Visitor) error {
	if root == nil {
		return nil
	}
	if err := v.Enter(root); err != nil {
		return err
	}
	stack := []walkFrame{{node: root, children: root.Children()}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.children) {
			child := top.children[top.next]
			top.next++
			if child == nil {
				continue
			}
			if err := v.Enter(child); err != nil {
				return err
			}
			stack = append(stack, walkFrame{node: child, children: child.Children()})
			continue
		}

		stack = stack[:len(stack)-1]
		if err := v.Leave(top.node); err != nil {
			return err
		}
	}
	return nil
}
