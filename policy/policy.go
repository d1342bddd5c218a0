// Package policy holds the named instruction variants that steer the assistant's system prompt.
//
// A Variant carries its instruction text and an explicit RequiresBehavioralRules flag; the
// prompt composer uses the flag, never the wording of the instruction, to decide whether the
// clothing-advice rules are included.
package policy

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed policies.yaml
var builtinPolicies []byte

// ErrUnknownPolicy is returned by Lookup for identifiers that name no variant.
var ErrUnknownPolicy = errors.New("unknown policy")

// ErrInvalidPolicy is returned when a variant set cannot be built (empty or duplicate id, no instruction).
var ErrInvalidPolicy = errors.New("invalid policy")

// Variant is one interchangeable instruction set.
type Variant struct {
	ID                      string `yaml:"id"`
	Name                    string `yaml:"name"`
	Instruction             string `yaml:"instruction"`
	RequiresBehavioralRules bool   `yaml:"requires_behavioral_rules"`
}

// Label renders the variant for selection menus, e.g. "A. Simple".
func (v Variant) Label() string {
	if v.Name == "" {
		return v.ID
	}
	return v.ID + ". " + v.Name
}

// Selector is an immutable, ordered set of variants. Safe for concurrent use.
type Selector struct {
	variants []Variant
	byID     map[string]int
}

// NewSelector builds a selector from variants in the given order. IDs are normalized
// (trimmed, upper-cased) and must be unique.
func NewSelector(variants ...Variant) (*Selector, error) {
	if len(variants) == 0 {
		return nil, fmt.Errorf("%w: no variants defined", ErrInvalidPolicy)
	}
	s := &Selector{
		variants: make([]Variant, 0, len(variants)),
		byID:     make(map[string]int, len(variants)),
	}
	for _, v := range variants {
		v.ID = normalizeID(v.ID)
		if v.ID == "" {
			return nil, fmt.Errorf("%w: variant without id", ErrInvalidPolicy)
		}
		if strings.TrimSpace(v.Instruction) == "" {
			return nil, fmt.Errorf("%w: variant %s has no instruction", ErrInvalidPolicy, v.ID)
		}
		if _, ok := s.byID[v.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate variant id %s", ErrInvalidPolicy, v.ID)
		}
		s.byID[v.ID] = len(s.variants)
		s.variants = append(s.variants, v)
	}
	return s, nil
}

type document struct {
	Variants []Variant `yaml:"variants"`
}

// Load reads a YAML variant file (a top-level "variants" list).
func Load(r io.Reader) (*Selector, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "decode policies")
	}
	return NewSelector(doc.Variants...)
}

// LoadFile reads variants from a YAML file on disk.
func LoadFile(path string) (*Selector, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open policies file")
	}
	defer f.Close()
	s, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return s, nil
}

var builtin = sync.OnceValue(func() *Selector {
	s, err := Load(bytes.NewReader(builtinPolicies))
	if err != nil {
		panic("policy: embedded policies.yaml: " + err.Error())
	}
	return s
})

// Default returns the built-in A/B/C selector.
func Default() *Selector {
	return builtin()
}

// Lookup returns the variant with the given id (case-insensitive, surrounding space ignored).
func (s *Selector) Lookup(id string) (Variant, error) {
	i, ok := s.byID[normalizeID(id)]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownPolicy, id, strings.Join(s.IDs(), ", "))
	}
	return s.variants[i], nil
}

// Variants returns the variants in definition order.
func (s *Selector) Variants() []Variant {
	out := make([]Variant, len(s.variants))
	copy(out, s.variants)
	return out
}

// IDs returns the variant ids in definition order.
func (s *Selector) IDs() []string {
	ids := make([]string, len(s.variants))
	for i, v := range s.variants {
		ids[i] = v.ID
	}
	return ids
}

func normalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
