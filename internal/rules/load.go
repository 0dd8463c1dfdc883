package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

type fileDoc struct {
	Rules []fileRule `yaml:"rules"`
}

type fileRule struct {
	Code          string    `yaml:"code"`
	Standard      string    `yaml:"standard"`
	Reference     string    `yaml:"reference"`
	Family        string    `yaml:"family"`
	Active        *bool     `yaml:"active"`
	Severity      string    `yaml:"severity"`
	EffectiveFrom string    `yaml:"effective_from"`
	ExpiresAt     string    `yaml:"expires_at"`
	Params        yaml.Node `yaml:"params"`
}

// Load decodes a YAML rule file. Unknown keys, unknown families and invalid
// parameters are load errors; nothing is deferred to evaluation time.
func Load(r io.Reader) ([]Rule, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc fileDoc
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode rule file: %w", err)
	}

	out := make([]Rule, 0, len(doc.Rules))
	for i, fr := range doc.Rules {
		rule, err := fr.toRule()
		if err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rules[%d]: %w", i, err)
		}
		out = append(out, rule)
	}
	return out, nil
}

// LoadFile reads path and merges its rules over base.
func LoadFile(base *Catalog, path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rule file: %w", err)
	}
	defer f.Close()

	rules, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return base.Merge(rules...)
}

func (fr fileRule) toRule() (Rule, error) {
	params, err := NewParams(Family(fr.Family))
	if err != nil {
		return Rule{}, fmt.Errorf("rule %s: %w", fr.Code, err)
	}
	if fr.Params.Kind != 0 {
		if err := decodeStrict(&fr.Params, params); err != nil {
			return Rule{}, fmt.Errorf("rule %s params: %w", fr.Code, err)
		}
	}

	rule := Rule{
		Code:      fr.Code,
		Standard:  Standard(fr.Standard),
		Reference: fr.Reference,
		Active:    fr.Active == nil || *fr.Active,
		Severity:  Severity(fr.Severity),
		Params:    params,
	}
	if fr.EffectiveFrom != "" {
		rule.EffectiveFrom, err = time.Parse(dateLayout, fr.EffectiveFrom)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %s effective_from: %w", fr.Code, err)
		}
	}
	if fr.ExpiresAt != "" {
		exp, err := time.Parse(dateLayout, fr.ExpiresAt)
		if err != nil {
			return Rule{}, fmt.Errorf("rule %s expires_at: %w", fr.Code, err)
		}
		rule.ExpiresAt = &exp
	}
	return rule, nil
}

// yaml.Node.Decode has no strict mode, so the node is re-encoded and decoded
// again with KnownFields.
func decodeStrict(node *yaml.Node, out any) error {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	return dec.Decode(out)
}
