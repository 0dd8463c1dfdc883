package rules

import (
	"fmt"
	"time"
)

// Rule is one configured compliance rule. Rules are never deleted: an
// inactive or expired rule stays in the catalog and is skipped at
// evaluation time.
type Rule struct {
	Code      string
	Standard  Standard
	Reference string
	Active    bool
	Severity  Severity
	Params    Params

	EffectiveFrom time.Time
	// ExpiresAt is exclusive; nil means open-ended.
	ExpiresAt *time.Time
}

func (r Rule) Family() Family {
	if r.Params == nil {
		return ""
	}
	return r.Params.Family()
}

func (r Rule) Category() Category { return r.Standard.Category() }

// InEffect reports whether the rule applies at t.
func (r Rule) InEffect(t time.Time) bool {
	if !r.Active {
		return false
	}
	if t.Before(r.EffectiveFrom) {
		return false
	}
	return r.ExpiresAt == nil || t.Before(*r.ExpiresAt)
}

func (r Rule) Validate() error {
	if r.Code == "" {
		return fmt.Errorf("rule code is required")
	}
	switch r.Standard {
	case StandardCA, StandardFLSA, StandardGAAP, StandardIFRS:
	default:
		return fmt.Errorf("rule %s: unknown standard %q", r.Code, r.Standard)
	}
	if !r.Severity.IsValid() {
		return fmt.Errorf("rule %s: unknown severity %q", r.Code, r.Severity)
	}
	if r.Params == nil {
		return fmt.Errorf("rule %s: params are required", r.Code)
	}
	if r.Params.Family().Category() != r.Standard.Category() {
		return fmt.Errorf("rule %s: family %s does not apply to standard %s", r.Code, r.Params.Family(), r.Standard)
	}
	if err := r.Params.Validate(); err != nil {
		return fmt.Errorf("rule %s: %w", r.Code, err)
	}
	if r.ExpiresAt != nil && !r.ExpiresAt.After(r.EffectiveFrom) {
		return fmt.Errorf("rule %s: expires_at must be after effective_from", r.Code)
	}
	return nil
}

// Catalog is an immutable, ordered rule set keyed by code.
type Catalog struct {
	rules  []Rule
	byCode map[string]int
}

// NewCatalog validates every rule and rejects duplicate codes.
func NewCatalog(rules ...Rule) (*Catalog, error) {
	c := &Catalog{
		rules:  make([]Rule, 0, len(rules)),
		byCode: make(map[string]int, len(rules)),
	}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.byCode[r.Code]; dup {
			return nil, fmt.Errorf("duplicate rule code %s", r.Code)
		}
		c.byCode[r.Code] = len(c.rules)
		c.rules = append(c.rules, r)
	}
	return c, nil
}

func (c *Catalog) Lookup(code string) (Rule, bool) {
	i, ok := c.byCode[code]
	if !ok {
		return Rule{}, false
	}
	return c.rules[i], true
}

// Rules returns every rule in catalog order, including inactive ones.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Active returns the rules of the given standards in effect at t, in
// catalog order.
func (c *Catalog) Active(at time.Time, standards ...Standard) []Rule {
	var out []Rule
	for _, r := range c.rules {
		if !r.InEffect(at) {
			continue
		}
		for _, s := range standards {
			if r.Standard == s {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

// Merge returns a new catalog where overrides replace rules with the same
// code in place and new codes are appended.
func (c *Catalog) Merge(overrides ...Rule) (*Catalog, error) {
	merged := c.Rules()
	for _, o := range overrides {
		if i, ok := c.byCode[o.Code]; ok {
			merged[i] = o
			continue
		}
		merged = append(merged, o)
	}
	return NewCatalog(merged...)
}
