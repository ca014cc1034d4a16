// Package preset loads named dice expressions ("fireball: 8d6") from YAML files.
package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dicesim/internal/dice"
)

// Preset is a reusable, named dice expression loaded from YAML.
type Preset struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Expr        string `yaml:"expression"`
	// AdvMode is "none", "advantage" or "disadvantage"; empty means none.
	AdvMode string `yaml:"mode"`

	parsed dice.Expression
	mode   dice.AdvantageMode
}

// Validate checks that the preset satisfies basic invariants and caches the
// parsed expression and mode.
//
// Precondition: p must not be nil.
// Postcondition: Returns nil iff ID is non-empty, Expr parses, and AdvMode is a
// known mode; returns an error on the first violation otherwise.
func (p *Preset) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("preset: id must not be empty")
	}
	if strings.ContainsAny(p.ID, " \t@") {
		return fmt.Errorf("preset %q: id must not contain whitespace or '@'", p.ID)
	}
	expr, err := dice.Parse(p.Expr)
	if err != nil {
		return fmt.Errorf("preset %q: %w", p.ID, err)
	}
	mode, err := dice.ParseAdvantageMode(p.AdvMode)
	if err != nil {
		return fmt.Errorf("preset %q: %w", p.ID, err)
	}
	p.parsed = expr
	p.mode = mode
	return nil
}

// Expression returns the parsed expression.
//
// Precondition: Validate returned nil.
func (p *Preset) Expression() dice.Expression {
	return p.parsed
}

// Mode returns the preset's advantage mode.
//
// Precondition: Validate returned nil.
func (p *Preset) Mode() dice.AdvantageMode {
	return p.mode
}

// DisplayName returns Name, falling back to ID.
func (p *Preset) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// LoadPresetFromBytes parses a single preset from raw YAML bytes.
//
// Postcondition: Returns a validated *Preset, or an error.
func LoadPresetFromBytes(data []byte) (*Preset, error) {
	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing preset YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadPresets reads all *.yaml and *.yml files in dir and returns the parsed presets
// in file name order.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all presets or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadPresets(dir string) ([]*Preset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading preset dir %q: %w", dir, err)
	}

	var presets []*Preset
	for _, entry := range entries {
		ext := filepath.Ext(entry.Name())
		if entry.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		p, err := LoadPresetFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		presets = append(presets, p)
	}
	return presets, nil
}

// Registry indexes presets by ID.
type Registry struct {
	byID map[string]*Preset
}

// NewRegistry builds a Registry from validated presets.
//
// Postcondition: Returns an error if two presets share an ID.
func NewRegistry(presets []*Preset) (*Registry, error) {
	r := &Registry{byID: make(map[string]*Preset, len(presets))}
	for _, p := range presets {
		if _, dup := r.byID[p.ID]; dup {
			return nil, fmt.Errorf("preset: duplicate id %q", p.ID)
		}
		r.byID[p.ID] = p
	}
	return r, nil
}

// LoadRegistry loads every preset in dir into a Registry.
func LoadRegistry(dir string) (*Registry, error) {
	presets, err := LoadPresets(dir)
	if err != nil {
		return nil, err
	}
	return NewRegistry(presets)
}

// Get returns the preset with the given ID.
func (r *Registry) Get(id string) (*Preset, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// IDs returns all preset IDs sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
