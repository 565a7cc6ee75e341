package ratelimit

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Policy names bound to UI element kinds.
const (
	PolicyGlobal = "global"
	PolicyClick  = "click"
	PolicyForm   = "form"
)

// Policy is a named limiter configuration.
type Policy struct {
	Name     string        `json:"name"`
	Capacity int           `json:"capacity"`
	Window   time.Duration `json:"window"`
}

// Override adjusts a policy from configuration. Zero fields keep the default.
type Override struct {
	Capacity int           `mapstructure:"capacity"`
	Window   time.Duration `mapstructure:"window"`
}

// DefaultPolicies are the stock limits applied to a page session.
var DefaultPolicies = Policies{
	PolicyGlobal: {Name: PolicyGlobal, Capacity: 50, Window: time.Minute},
	PolicyClick:  {Name: PolicyClick, Capacity: 20, Window: 10 * time.Second},
	PolicyForm:   {Name: PolicyForm, Capacity: 5, Window: 5 * time.Minute},
}

// Validate rejects policies that cannot admit anything.
func (p Policy) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("rate limit policy name is required")
	}
	if p.Capacity <= 0 {
		return fmt.Errorf("rate limit policy %q: capacity must be positive, got %d", p.Name, p.Capacity)
	}
	if p.Window <= 0 {
		return fmt.Errorf("rate limit policy %q: window must be positive, got %s", p.Name, p.Window)
	}
	return nil
}

// NewLimiter builds a fresh limiter for the policy.
func (p Policy) NewLimiter(opts ...Option) *Limiter {
	return New(p.Capacity, p.Window, opts...)
}

// Policies is a set of policies keyed by name.
type Policies map[string]Policy

// Names returns the policy names in sorted order.
func (p Policies) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sorted returns the policies ordered by name.
func (p Policies) Sorted() []Policy {
	out := make([]Policy, 0, len(p))
	for _, name := range p.Names() {
		out = append(out, p[name])
	}
	return out
}

// NewLimiters returns one independent limiter per policy.
func (p Policies) NewLimiters(clock Clock) map[string]*Limiter {
	limiters := make(map[string]*Limiter, len(p))
	for name, policy := range p {
		limiters[name] = policy.NewLimiter(WithClock(clock))
	}
	return limiters
}

// Resolve merges overrides onto the defaults. Unknown names add new
// policies, which then need both fields set.
func Resolve(overrides map[string]Override) (Policies, error) {
	resolved := make(Policies, len(DefaultPolicies)+len(overrides))
	for name, policy := range DefaultPolicies {
		resolved[name] = policy
	}

	for rawName, override := range overrides {
		name := strings.ToLower(strings.TrimSpace(rawName))
		if name == "" {
			continue
		}

		policy, ok := resolved[name]
		if !ok {
			policy = Policy{Name: name}
		}
		if override.Capacity != 0 {
			policy.Capacity = override.Capacity
		}
		if override.Window != 0 {
			policy.Window = override.Window
		}
		if err := policy.Validate(); err != nil {
			return nil, err
		}
		resolved[name] = policy
	}

	return resolved, nil
}
