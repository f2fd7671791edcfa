package policy

import "fmt"

// Role is the flow a mediation function is invoked in
type Role string

const (
	// RoleInFlow runs before the backend call
	RoleInFlow Role = "inflow"
	// RoleOutFlow runs after the backend responds
	RoleOutFlow Role = "outflow"
	// RoleFaultFlow runs on the error path
	RoleFaultFlow Role = "faultflow"
)

// Roles lists every role in pipeline order
func Roles() []Role {
	return []Role{RoleInFlow, RoleOutFlow, RoleFaultFlow}
}

// ParseRole converts a role name into a Role
func ParseRole(s string) (Role, error) {
	for _, r := range Roles() {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown policy role %q", s)
}

// Annotation returns the annotation name marking functions of the role
func (r Role) Annotation() string {
	switch r {
	case RoleInFlow:
		return "InFlow"
	case RoleOutFlow:
		return "OutFlow"
	case RoleFaultFlow:
		return "FaultFlow"
	}
	return ""
}

// Function is a callable mediation entry point of a policy package
type Function struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
	// File is the package-relative source the function was found in, empty
	// when it came from metadata
	File string `json:"file,omitempty"`
}

// Package is a resolved policy package. Each role holds at most one function;
// a missing role is a normal state.
type Package struct {
	ID         PackageID          `json:"id"`
	Descriptor *Descriptor        `json:"descriptor,omitempty"`
	Functions  map[Role]*Function `json:"functions"`
}

// NewPackage creates a package without callables
func NewPackage(id PackageID) *Package {
	return &Package{ID: id, Functions: make(map[Role]*Function)}
}

// Function returns the callable for role, if the package has one
func (p *Package) Function(role Role) (*Function, bool) {
	fn, ok := p.Functions[role]
	return fn, ok && fn != nil
}

// Empty reports whether the package exposes no callable at all
func (p *Package) Empty() bool {
	return len(p.Functions) == 0
}

// set records fn for role unless an earlier function already claimed it
func (p *Package) set(role Role, fn *Function) {
	if _, exists := p.Functions[role]; exists {
		return
	}
	p.Functions[role] = fn
}
