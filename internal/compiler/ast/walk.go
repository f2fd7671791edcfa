package ast

// Children returns the direct children of a node in source order
func Children(n Node) []Node {
	var out []Node

	switch v := n.(type) {
	case *Module:
		for _, imp := range v.Imports {
			out = append(out, imp)
		}
		for _, svc := range v.Services {
			out = append(out, svc)
		}
		for _, decl := range v.Declarations {
			out = append(out, decl)
		}
	case *ServiceDecl:
		for _, res := range v.Resources {
			out = append(out, res)
		}
		for _, decl := range v.Declarations {
			out = append(out, decl)
		}
	case *ResourceFunction:
		for _, seg := range v.Path {
			out = append(out, seg)
		}
		if v.Signature != nil {
			out = append(out, v.Signature)
		}
		if v.Body != nil {
			out = append(out, v.Body)
		}
	case *FunctionSignature:
		for _, param := range v.Parameters {
			out = append(out, param)
		}
		if v.ReturnType != nil {
			out = append(out, v.ReturnType)
		}
	}

	return out
}

// Inspect traverses the tree depth-first, calling fn for each node.
// Children are skipped when fn returns false.
func Inspect(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, child := range Children(n) {
		Inspect(child, fn)
	}
}

// ParentIndex maps every node of a tree to its parent. It is built once per
// tree so upward queries never rely on links stored in the nodes.
type ParentIndex struct {
	parents map[Node]Node
}

// NewParentIndex indexes the tree rooted at root
func NewParentIndex(root Node) *ParentIndex {
	idx := &ParentIndex{parents: make(map[Node]Node)}
	var visit func(Node)
	visit = func(n Node) {
		for _, child := range Children(n) {
			idx.parents[child] = n
			visit(child)
		}
	}
	visit(root)
	return idx
}

// Parent returns the parent of n, or nil for the root and unknown nodes
func (p *ParentIndex) Parent(n Node) Node {
	return p.parents[n]
}

// EnclosingResource walks upward from n (inclusive) to the nearest resource
// function. It returns nil when n is not inside one.
func (p *ParentIndex) EnclosingResource(n Node) *ResourceFunction {
	for n != nil {
		if res, ok := n.(*ResourceFunction); ok {
			return res
		}
		n = p.parents[n]
	}
	return nil
}
