package codegen

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/choreo-dev/mediate/internal/compiler/errors"
	"github.com/choreo-dev/mediate/internal/policy"
	"github.com/choreo-dev/mediate/internal/templates"
)

// InvocationData is the value every invocation template is executed with
type InvocationData struct {
	// Call is the complete call expression, e.g. `rl:enforce(incomingRequest)`
	Call     string
	Package  string
	Prefix   string
	Function string
	Role     string
	// Result names the variable holding the call's result. It is unique
	// within one handler body.
	Result string
	Index  int
}

// Invoker renders the statements that invoke a policy function. There is one
// compiled template per role.
type Invoker struct {
	templates        map[policy.Role]*template.Template
	mediationContext bool
}

var roleSnippets = map[policy.Role]string{
	policy.RoleInFlow:    templates.InFlow,
	policy.RoleOutFlow:   templates.OutFlow,
	policy.RoleFaultFlow: templates.FaultFlow,
}

// NewInvoker compiles the role templates of set. With mediationContext the
// mediation context variable is passed as the last argument of every call.
func NewInvoker(set *templates.Set, mediationContext bool) (*Invoker, error) {
	inv := &Invoker{
		templates:        make(map[policy.Role]*template.Template, len(roleSnippets)),
		mediationContext: mediationContext,
	}

	for _, role := range policy.Roles() {
		src, err := set.Get(roleSnippets[role])
		if err != nil {
			return nil, errors.NewTemplateError(string(role), err)
		}
		tmpl, err := template.New(string(role)).
			Funcs(templates.Funcs()).
			Option("missingkey=error").
			Parse(src)
		if err != nil {
			return nil, errors.NewTemplateError(string(role), err)
		}
		inv.templates[role] = tmpl
	}

	return inv, nil
}

// Render returns the statements invoking pkg's function for role, qualified
// with prefix or with the package's default prefix when prefix is empty. seq
// is the 1-based position of the call among the calls of its role in one
// handler. ok is false when the package has no function for the role.
func (inv *Invoker) Render(role policy.Role, pkg *policy.Package, prefix string, seq int) (string, bool, error) {
	fn, ok := pkg.Function(role)
	if !ok {
		return "", false, nil
	}

	tmpl, ok := inv.templates[role]
	if !ok {
		return "", false, errors.NewTemplateError(string(role), fmt.Errorf("no template for role"))
	}

	if prefix == "" {
		prefix = pkg.ID.Prefix()
	}
	data := InvocationData{
		Call:     inv.Call(role, prefix, fn.Name),
		Package:  pkg.ID.ModuleName(),
		Prefix:   prefix,
		Function: fn.Name,
		Role:     string(role),
		Result:   fmt.Sprintf("%sResult%d", role, seq),
		Index:    seq,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", false, errors.NewTemplateError(string(role), err)
	}

	return strings.TrimRight(buf.String(), "\n"), true, nil
}

// Call builds the call expression for a function of the given role
func (inv *Invoker) Call(role policy.Role, prefix, function string) string {
	args := Arguments(role)
	if inv.mediationContext {
		args = append(args, MediationContextVar)
	}
	return fmt.Sprintf("%s:%s(%s)", prefix, function, strings.Join(args, ", "))
}

// Arguments returns the fixed arguments a function of role receives
func Arguments(role policy.Role) []string {
	switch role {
	case policy.RoleInFlow:
		return []string{IncomingRequest}
	case policy.RoleOutFlow:
		return []string{BackendResponse, IncomingRequest}
	case policy.RoleFaultFlow:
		return []string{ErrFlowResponse, ErrorVar, BackendResponse, IncomingRequest}
	}
	return nil
}
