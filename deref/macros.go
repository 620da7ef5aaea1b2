package deref

import (
	"fmt"
	"strconv"

	"github.com/speakeasy-api/openapi-deref/errors"
	"github.com/speakeasy-api/openapi-deref/node"
)

func (e *engine) applyParameterMacro(operation *node.Node, f frame) {
	params, ok := operation.Get("parameters")
	if !ok || !params.IsArray() {
		return
	}
	for i, param := range params.Items() {
		if !param.IsObject() {
			continue
		}
		path := f.path.Child("parameters").Child(strconv.Itoa(i))
		e.runMacro(param, path, f, func() (*node.Node, error) {
			return e.opts.ParameterMacro(operation, param)
		})
	}
}

func (e *engine) applyModelPropertyMacro(schema *node.Node, f frame) {
	props, ok := schema.Get("properties")
	if !ok || !props.IsObject() {
		return
	}
	for name, prop := range props.Fields() {
		if !prop.IsObject() {
			continue
		}
		path := f.path.Child("properties").Child(name)
		e.runMacro(prop, path, f, func() (*node.Node, error) {
			return e.opts.ModelPropertyMacro(prop)
		})
	}
}

// runMacro sets the default of target to the result of fn. Errors and panics are recorded
// against path and leave target untouched.
func (e *engine) runMacro(target *node.Node, path node.Path, f frame, fn func() (*node.Node, error)) {
	value, err := callMacro(fn)
	if err != nil {
		e.fail(errors.ErrMacro, errors.ErrMacro.Wrap(err), frame{doc: f.doc, path: path}, "", "")
		return
	}
	if value != nil {
		target.Set("default", value)
	}
}

func callMacro(fn func() (*node.Node, error)) (value *node.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
