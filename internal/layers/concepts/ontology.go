// Package concepts is layer3: conceptual lookup through an ontology of
// operation-synonym rings. "getUser" and "fetchUser" name the same
// concept; the ontology makes that searchable.
package concepts

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Ring is one set of interchangeable operation tokens.
type Ring struct {
	Name   string   `yaml:"name"`
	Tokens []string `yaml:"tokens"`
}

// Ontology holds the synonym rings and a token index into them.
type Ontology struct {
	Rings   []Ring `yaml:"rings"`
	byToken map[string]int
}

// DefaultOntology returns the built-in rings used when no ontology file
// exists in the workspace.
func DefaultOntology() *Ontology {
	o := &Ontology{
		Rings: []Ring{
			{Name: "retrieve", Tokens: []string{"get", "fetch", "retrieve", "load", "read"}},
			{Name: "create", Tokens: []string{"create", "add", "insert", "make"}},
			{Name: "modify", Tokens: []string{"update", "set", "modify", "change"}},
			{Name: "remove", Tokens: []string{"delete", "remove", "destroy", "drop"}},
		},
	}
	o.index()
	return o
}

// LoadOntology reads rings from a YAML file, falling back to the
// defaults when the file does not exist.
func LoadOntology(path string) (*Ontology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultOntology(), nil
		}
		return nil, err
	}

	var o Ontology
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, err
	}
	if len(o.Rings) == 0 {
		return DefaultOntology(), nil
	}
	o.index()
	return &o, nil
}

func (o *Ontology) index() {
	o.byToken = make(map[string]int)
	for i, ring := range o.Rings {
		for _, tok := range ring.Tokens {
			o.byToken[tok] = i
		}
	}
}

// Synonyms returns the other tokens in the ring a token belongs to, or
// nil when the token is not in any ring.
func (o *Ontology) Synonyms(token string) []string {
	idx, ok := o.byToken[token]
	if !ok {
		return nil
	}
	var syns []string
	for _, t := range o.Rings[idx].Tokens {
		if t != token {
			syns = append(syns, t)
		}
	}
	return syns
}
