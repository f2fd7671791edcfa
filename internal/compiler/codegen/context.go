package codegen

import (
	"github.com/choreo-dev/mediate/internal/compiler/ast"
	"github.com/choreo-dev/mediate/internal/compiler/errors"
)

// CodeContext is one frame of the traversal. Frames are threaded top-down
// (module, service, resource) so a frame finds its enclosing resource
// function by following parent frames. Derived values are computed once per
// frame.
type CodeContext struct {
	parent *CodeContext
	node   ast.Node

	resource *ast.ResourceFunction
	key      string
	template string
}

// NewCodeContext creates a frame for node inside parent. parent is nil for
// the root frame.
func NewCodeContext(parent *CodeContext, node ast.Node) *CodeContext {
	return &CodeContext{parent: parent, node: node}
}

// Parent returns the enclosing frame
func (c *CodeContext) Parent() *CodeContext {
	return c.parent
}

// Node returns the syntax node of the frame
func (c *CodeContext) Node() ast.Node {
	return c.node
}

// Resource returns the nearest enclosing resource function
func (c *CodeContext) Resource() (*ast.ResourceFunction, error) {
	if c.resource != nil {
		return c.resource, nil
	}

	for frame := c; frame != nil; frame = frame.parent {
		if res, ok := frame.node.(*ast.ResourceFunction); ok {
			c.resource = res
			return res, nil
		}
	}

	return nil, errors.NewContextOutsideResource(c.node.Location(), "resource function")
}

// ResourceMethodName returns the accessor of the enclosing resource function
// exactly as declared
func (c *CodeContext) ResourceMethodName() (string, error) {
	res, err := c.Resource()
	if err != nil {
		return "", err
	}
	return res.MethodName(), nil
}

// OperationKey returns the canonical key of the enclosing resource function
func (c *CodeContext) OperationKey() (string, error) {
	if c.key != "" {
		return c.key, nil
	}

	res, err := c.Resource()
	if err != nil {
		return "", err
	}

	key, err := BuildOperationKey(res.MethodName(), res.Path)
	if err != nil {
		return "", err
	}
	c.key = key
	return key, nil
}

// PathTemplate returns the enclosing resource path with named parameters
func (c *CodeContext) PathTemplate() (string, error) {
	if c.template != "" {
		return c.template, nil
	}

	res, err := c.Resource()
	if err != nil {
		return "", err
	}

	tmpl, err := PathTemplate(res.Path)
	if err != nil {
		return "", err
	}
	c.template = tmpl
	return tmpl, nil
}
