// Package catalog loads the declarative card catalog source document.
//
// The document is a YAML file keyed by set code. Each set carries a
// display name, an optional booster list and a card map keyed by card
// number:
//
//	A1:
//	  name: Genetic Apex
//	  boosters: [Charizard, Mewtwo, Pikachu]
//	  cards:
//	    1: {name: Bulbasaur, rarity: "♢", boosters: [Charizard]}
//	    285: {name: Pikachu, rarity: "♛"}
//
// A missing boosters field means the set has exactly one booster named
// after the set; an explicit null or empty list means the set has no
// booster concept at all (e.g. promotional sets). A card without a
// boosters list belongs to all of its set's boosters.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Document is the parsed catalog source, keyed by set code.
type Document map[string]*SetEntry

// SetEntry describes one set in the source document.
type SetEntry struct {
	Name     string                `yaml:"name"`
	Boosters BoosterList           `yaml:"boosters"`
	Cards    map[string]*CardEntry `yaml:"cards"`
}

// CardEntry describes one card in the source document. The card number
// is the map key in SetEntry.Cards and arrives as an unparsed token.
type CardEntry struct {
	Name string `yaml:"name"`
	// Rarity is the symbolic notation ("♢", "☆☆", "♛", ...); empty for
	// cards without a rarity.
	Rarity string `yaml:"rarity"`
	// Boosters restricts the card to a subset of the set's boosters.
	// Absent means the card is in all of them.
	Boosters []string `yaml:"boosters"`
	// Bonus marks the card as bonus-slot-exclusive.
	Bonus bool `yaml:"bonus"`
	// GodPackBooster pins the card to one booster for god-pack counting.
	GodPackBooster string `yaml:"godPackBooster"`
	// EqualTo references an identical card in another set ("A1-285").
	// Parsed but currently inert.
	EqualTo string `yaml:"equalTo"`
}

// BoosterList distinguishes an absent boosters field from an explicitly
// empty one, because the two mean different things (implicit single
// booster vs. no boosters).
type BoosterList struct {
	// Declared is true when the field was present in the source, even as
	// null or an empty list.
	Declared bool
	Names    []string
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *BoosterList) UnmarshalYAML(value *yaml.Node) error {
	b.Declared = true
	if value.Tag == "!!null" {
		b.Names = nil
		return nil
	}
	return value.Decode(&b.Names)
}

// EffectiveBoosters returns the booster names the set actually has,
// resolving the implicit-single-booster shape. The result is empty for
// sets without boosters.
func (s *SetEntry) EffectiveBoosters() []string {
	if !s.Boosters.Declared {
		return []string{s.Name}
	}
	return s.Boosters.Names
}

// Load reads and parses the catalog source document at path.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog source: %w", err)
	}
	return Parse(data)
}

// Parse parses a catalog source document from its raw bytes.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog source: %w", err)
	}
	return doc, nil
}

// SetKeys returns the document's set codes in stable, sorted order so
// synchronization processes sets deterministically.
func (d Document) SetKeys() []string {
	keys := make([]string, 0, len(d))
	for key := range d {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
