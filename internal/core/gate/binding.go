package gate

import (
	"fmt"

	"github.com/oasislearninghub/oasis/internal/core/ratelimit"
)

// Target is a kind of interactive element.
type Target string

const (
	TargetButton Target = "button"
	TargetLink   Target = "link"
	TargetForm   Target = "form"
)

// Bindings maps each element kind to exactly one policy.
type Bindings map[Target]string

// DefaultBindings: outbound links share the global policy, buttons the click
// policy and form submissions the form policy.
var DefaultBindings = Bindings{
	TargetLink:   ratelimit.PolicyGlobal,
	TargetButton: ratelimit.PolicyClick,
	TargetForm:   ratelimit.PolicyForm,
}

// PolicyFor returns the policy bound to target.
func (b Bindings) PolicyFor(target Target) (string, bool) {
	policy, ok := b[target]
	return policy, ok
}

// Validate checks that every bound policy exists.
func (b Bindings) Validate(policies ratelimit.Policies) error {
	for target, policy := range b {
		if _, ok := policies[policy]; !ok {
			return fmt.Errorf("target %q is bound to unknown policy %q", target, policy)
		}
	}
	return nil
}
