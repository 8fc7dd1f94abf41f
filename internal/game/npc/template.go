// Package npc provides villager templates and the live combatants spawned
// from them.
package npc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/personality"
)

// Traits overrides individual personality sliders on top of a preset. Unset
// sliders keep the preset's value.
type Traits struct {
	Aggression       *float64 `yaml:"aggression"`
	Courage          *float64 `yaml:"courage"`
	SelfPreservation *float64 `yaml:"self_preservation"`
	Loyalty          *float64 `yaml:"loyalty"`
	Vengefulness     *float64 `yaml:"vengefulness"`
}

// Template defines a reusable villager archetype loaded from YAML.
type Template struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	MaxHealth   float64 `yaml:"max_health"`
	// Preset is one of default, pacifist or warrior; empty means default.
	Preset  string   `yaml:"preset"`
	Traits  Traits   `yaml:"traits"`
	Weapons []string `yaml:"weapons"`
	// Equipped names the weapon in hand at spawn; it must be listed in Weapons.
	Equipped string `yaml:"equipped"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, MaxHealth > 0,
// Preset is known, every slider is in [0, 1], every weapon name parses, and
// Equipped is empty or listed in Weapons; returns an error on the first
// violation otherwise.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("npc template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("npc template %q: name must not be empty", t.ID)
	}
	if !(t.MaxHealth > 0) {
		return fmt.Errorf("npc template %q: max_health must be > 0", t.ID)
	}
	if _, ok := presets[strings.ToLower(t.Preset)]; !ok {
		return fmt.Errorf("npc template %q: unknown preset %q", t.ID, t.Preset)
	}
	sliders := []struct {
		name string
		v    *float64
	}{
		{"aggression", t.Traits.Aggression},
		{"courage", t.Traits.Courage},
		{"self_preservation", t.Traits.SelfPreservation},
		{"loyalty", t.Traits.Loyalty},
		{"vengefulness", t.Traits.Vengefulness},
	}
	for _, s := range sliders {
		if s.v != nil && (*s.v < 0 || *s.v > 1) {
			return fmt.Errorf("npc template %q: %s %v must be in [0, 1]", t.ID, s.name, *s.v)
		}
	}
	for _, w := range t.Weapons {
		if _, ok := actor.ParseWeaponKind(w); !ok {
			return fmt.Errorf("npc template %q: unknown weapon %q", t.ID, w)
		}
	}
	if t.Equipped != "" && !containsFold(t.Weapons, t.Equipped) {
		return fmt.Errorf("npc template %q: equipped weapon %q is not carried", t.ID, t.Equipped)
	}
	return nil
}

var presets = map[string]func() personality.Traits{
	"":         personality.Default,
	"default":  personality.Default,
	"pacifist": personality.PacifistPreset,
	"warrior":  personality.WarriorPreset,
}

// Personality returns the preset traits with the template's overrides applied.
//
// Precondition: t has been validated.
func (t *Template) Personality() personality.Traits {
	build, ok := presets[strings.ToLower(t.Preset)]
	if !ok {
		build = personality.Default
	}
	p := build()
	if v := t.Traits.Aggression; v != nil {
		p.SetAggression(*v)
	}
	if v := t.Traits.Courage; v != nil {
		p.SetCourage(*v)
	}
	if v := t.Traits.SelfPreservation; v != nil {
		p.SetSelfPreservation(*v)
	}
	if v := t.Traits.Loyalty; v != nil {
		p.SetLoyalty(*v)
	}
	if v := t.Traits.Vengefulness; v != nil {
		p.SetVengefulness(*v)
	}
	return p
}

// Arsenal returns the standard weapons named by the template, in order.
//
// Precondition: t has been validated.
func (t *Template) Arsenal() []actor.Weapon {
	out := make([]actor.Weapon, 0, len(t.Weapons))
	for _, name := range t.Weapons {
		kind, _ := actor.ParseWeaponKind(name)
		out = append(out, actor.StandardWeapon(kind))
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}

// LoadTemplateFromBytes parses a single villager template from raw YAML bytes.
//
// Precondition: data must be valid YAML for a single Template.
// Postcondition: Returns a validated *Template, or an error.
func LoadTemplateFromBytes(data []byte) (*Template, error) {
	var tmpl Template
	if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("parsing template YAML: %w", err)
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading npc dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}

		tmpl, err := LoadTemplateFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}
