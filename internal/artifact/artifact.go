// Package artifact loads the operation table of an API artifact. The table
// maps each operation's canonical key to the policies attached to its
// request, response and fault flows.
package artifact

import (
	"fmt"
	"sort"
	"strings"
)

// PolicyRef names one attached policy by package name and version
type PolicyRef struct {
	PolicyName    string `yaml:"policyName" json:"policyName"`
	PolicyVersion string `yaml:"policyVersion" json:"policyVersion"`
}

// String returns "name:version"
func (p PolicyRef) String() string {
	return p.PolicyName + ":" + p.PolicyVersion
}

// AttachedPolicies lists the policies of each flow in attachment order
type AttachedPolicies struct {
	Request  []PolicyRef `yaml:"request" json:"request"`
	Response []PolicyRef `yaml:"response" json:"response"`
	Fault    []PolicyRef `yaml:"fault" json:"fault"`
}

// Empty reports whether no flow has a policy attached
func (a AttachedPolicies) Empty() bool {
	return len(a.Request) == 0 && len(a.Response) == 0 && len(a.Fault) == 0
}

// All returns every attached policy across flows, request first
func (a AttachedPolicies) All() []PolicyRef {
	out := make([]PolicyRef, 0, len(a.Request)+len(a.Response)+len(a.Fault))
	out = append(out, a.Request...)
	out = append(out, a.Response...)
	out = append(out, a.Fault...)
	return out
}

// Operation is one API operation with its policy attachments
type Operation struct {
	ID       string           `yaml:"id" json:"id"`
	Target   string           `yaml:"target" json:"target"`
	Verb     string           `yaml:"verb" json:"verb"`
	Policies AttachedPolicies `yaml:"operationPolicies" json:"operationPolicies"`
}

// Key returns the canonical operation key of the operation
func (o *Operation) Key() string {
	return OperationKey(o.Verb, o.Target)
}

// Table maps operation keys to operations. It is read-only once built.
type Table map[string]*Operation

// NewTable indexes operations by key. Duplicate keys are rejected.
func NewTable(ops []*Operation) (Table, error) {
	table := make(Table, len(ops))
	for _, op := range ops {
		key := op.Key()
		if prev, exists := table[key]; exists {
			return nil, fmt.Errorf("operations %q and %q both map to %q", prev.ID, op.ID, key)
		}
		table[key] = op
	}
	return table, nil
}

// Lookup returns the operation for key. A missing key means no policies.
func (t Table) Lookup(key string) (*Operation, bool) {
	op, ok := t[key]
	return op, ok
}

// Keys returns the operation keys in lexical order
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Policies returns every distinct policy reference in the table, sorted
func (t Table) Policies() []PolicyRef {
	seen := make(map[PolicyRef]struct{})
	out := make([]PolicyRef, 0)
	for _, op := range t {
		for _, ref := range op.Policies.All() {
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			out = append(out, ref)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}

// OperationKey builds the canonical key from an HTTP verb and an API target
// such as /pets/{petId}. Template parameters become `*`; rest parameters
// ({...paths}) and a trailing `*` wildcard become `**`.
func OperationKey(verb, target string) string {
	segments := strings.Split(strings.Trim(target, "/"), "/")

	var b strings.Builder
	b.WriteString(strings.ToLower(verb))
	b.WriteString(" /")
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('/')
		}
		switch {
		case seg == "*" || strings.HasPrefix(seg, "{..."):
			b.WriteString("**")
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			b.WriteString("*")
		default:
			b.WriteString(seg)
		}
	}
	return b.String()
}
