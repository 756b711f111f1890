package validator

import "sort"

// Registry maps rule keys to Validator implementations.
type Registry struct {
	validators map[string]Validator
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{validators: make(map[string]Validator)}
}

// NewBuiltinRegistry returns a Registry holding every built-in field validator.
func NewBuiltinRegistry(opts Options) *Registry {
	r := NewRegistry()
	for _, v := range FieldValidators(opts) {
		r.Register(v)
	}
	return r
}

// Register adds a validator to the registry.
func (r *Registry) Register(v Validator) {
	r.validators[v.RuleKey()] = v
}

// Get returns the validator for a given rule key, or nil if not found.
func (r *Registry) Get(key string) Validator {
	return r.validators[key]
}

// MustGet is Get for keys wired at construction time; it panics on a missing key.
func (r *Registry) MustGet(key string) Validator {
	v, ok := r.validators[key]
	if !ok {
		panic("validator: no rule registered for " + key)
	}
	return v
}

// Keys returns all registered rule keys in sorted order.
func (r *Registry) Keys() []string {
	out := make([]string, 0, len(r.validators))
	for k := range r.validators {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
