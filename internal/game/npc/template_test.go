package npc_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/npc"
	"github.com/cory-johannsen/npcbrain/internal/game/personality"
)

const guardYAML = `
id: guard
name: Guard
description: A village guard in dented mail.
max_health: 30
preset: warrior
traits:
  courage: 0.9
weapons: [sword, bow]
equipped: sword
`

func TestLoadTemplateFromBytes_AppliesPresetAndOverrides(t *testing.T) {
	tmpl, err := npc.LoadTemplateFromBytes([]byte(guardYAML))
	require.NoError(t, err)
	assert.Equal(t, "guard", tmpl.ID)
	assert.Equal(t, 30.0, tmpl.MaxHealth)

	p := tmpl.Personality()
	warrior := personality.WarriorPreset()
	assert.Equal(t, warrior.Aggression(), p.Aggression())
	assert.Equal(t, 0.9, p.Courage())
	assert.Equal(t, warrior.Loyalty(), p.Loyalty())

	assert.Equal(t, []actor.Weapon{
		actor.StandardWeapon(actor.WeaponSword),
		actor.StandardWeapon(actor.WeaponBow),
	}, tmpl.Arsenal())
}

func TestLoadTemplateFromBytes_DefaultPreset(t *testing.T) {
	tmpl, err := npc.LoadTemplateFromBytes([]byte("id: farmer\nname: Farmer\nmax_health: 12\n"))
	require.NoError(t, err)
	assert.Equal(t, personality.Default(), tmpl.Personality())
	assert.Empty(t, tmpl.Arsenal())
}

func TestTemplate_ValidateRejects(t *testing.T) {
	cases := map[string]string{
		"missing id":       "name: X\nmax_health: 1\n",
		"missing name":     "id: x\nmax_health: 1\n",
		"zero health":      "id: x\nname: X\nmax_health: 0\n",
		"unknown preset":   "id: x\nname: X\nmax_health: 1\npreset: berserker\n",
		"slider too high":  "id: x\nname: X\nmax_health: 1\ntraits:\n  loyalty: 1.5\n",
		"unknown weapon":   "id: x\nname: X\nmax_health: 1\nweapons: [pitchfork]\n",
		"equipped missing": "id: x\nname: X\nmax_health: 1\nweapons: [bow]\nequipped: axe\n",
		"bad yaml":         "id: [\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := npc.LoadTemplateFromBytes([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadTemplates_ValidDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "guard.yaml"), []byte(guardYAML), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.yaml"), 0755))

	templates, err := npc.LoadTemplates(dir)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, "Guard", templates[0].Name)
}

func TestLoadTemplates_InvalidFileFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("id: bad\n"), 0644))

	_, err := npc.LoadTemplates(dir)
	assert.ErrorContains(t, err, "bad.yaml")
}

func TestLoadTemplates_MissingDir(t *testing.T) {
	_, err := npc.LoadTemplates(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestProperty_Template_SlidersInRangeAlwaysValidate(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		a := rapid.Float64Range(0, 1).Draw(rt, "aggression")
		c := rapid.Float64Range(0, 1).Draw(rt, "courage")
		data := []byte(fmt.Sprintf("id: x\nname: X\nmax_health: 5\ntraits:\n  aggression: %v\n  courage: %v\n", a, c))

		tmpl, err := npc.LoadTemplateFromBytes(data)
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
		p := tmpl.Personality()
		if p.Aggression() != a || p.Courage() != c {
			rt.Fatalf("got aggression %v courage %v, want %v %v", p.Aggression(), p.Courage(), a, c)
		}
	})
}
