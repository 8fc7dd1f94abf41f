package personality_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/npcbrain/internal/game/personality"
	"github.com/cory-johannsen/npcbrain/internal/game/threat"
)

func TestNew_ClampsSliders(t *testing.T) {
	tr := personality.New(-1, 2, 0.5, 1.5, -0.2)
	assert.Equal(t, 0.0, tr.Aggression())
	assert.Equal(t, 1.0, tr.Courage())
	assert.Equal(t, 0.5, tr.SelfPreservation())
	assert.Equal(t, 1.0, tr.Loyalty())
	assert.Equal(t, 0.0, tr.Vengefulness())
}

func TestAggressionLevel_Buckets(t *testing.T) {
	cases := []struct {
		v    float64
		want personality.AggressionLevel
	}{
		{0.2, personality.Pacifist},
		{0.21, personality.Defensive},
		{0.4, personality.Defensive},
		{0.6, personality.Balanced},
		{0.8, personality.Aggressive},
		{0.81, personality.Hostile},
	}
	for _, tc := range cases {
		tr := personality.Default()
		tr.SetAggression(tc.v)
		assert.Equal(t, tc.want, tr.AggressionLevel(), "aggression %v", tc.v)
	}
}

func TestPresets(t *testing.T) {
	d := personality.Default()
	assert.Equal(t, personality.Balanced, d.AggressionLevel())
	assert.Equal(t, personality.StyleBalanced, d.Style())
	assert.Equal(t, 0.7, d.Loyalty())

	p := personality.PacifistPreset()
	assert.Equal(t, personality.Pacifist, p.AggressionLevel())
	assert.Equal(t, personality.StyleCautious, p.Style())
	assert.Equal(t, personality.Follower, p.Teamwork())

	w := personality.WarriorPreset()
	assert.Equal(t, personality.Aggressive, w.AggressionLevel())
	assert.Equal(t, personality.StyleStrategic, w.Style())
	assert.Equal(t, 0.8, w.Courage())
}

func TestStyle_FollowsSliders(t *testing.T) {
	tr := personality.Default()
	tr.SetAggression(0.9)
	tr.SetSelfPreservation(0.1)
	assert.Equal(t, personality.StyleBerserker, tr.Style())

	tr.SetSelfPreservation(0.4)
	assert.Equal(t, personality.StyleReckless, tr.Style())

	tr.SetSelfPreservation(0.9)
	assert.Equal(t, personality.StyleCautious, tr.Style())
}

func TestWouldEngage(t *testing.T) {
	w := personality.WarriorPreset()
	// 0.8 * 0.8 = 0.64 >= 0.3
	assert.True(t, w.WouldEngage(threat.High))
	assert.False(t, w.WouldEngage(threat.None))

	p := personality.PacifistPreset()
	assert.False(t, p.WouldEngage(threat.Extreme))
}

func TestCombatModifier(t *testing.T) {
	w := personality.WarriorPreset()
	assert.InDelta(t, 1.2*1.2, w.CombatModifier(true, false), 1e-9)
	assert.InDelta(t, 1.0, w.CombatModifier(false, true), 1e-9)
}

func TestProperty_LevelIsDerivedFromSlider(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		tr := personality.Default()
		v := rapid.Float64Range(-1, 2).Draw(rt, "aggression")
		tr.SetAggression(v)
		a := tr.Aggression()
		if a < 0 || a > 1 {
			rt.Fatalf("aggression %v outside [0,1]", a)
		}
		var want personality.AggressionLevel
		switch {
		case a <= 0.2:
			want = personality.Pacifist
		case a <= 0.4:
			want = personality.Defensive
		case a <= 0.6:
			want = personality.Balanced
		case a <= 0.8:
			want = personality.Aggressive
		default:
			want = personality.Hostile
		}
		if tr.AggressionLevel() != want {
			rt.Fatalf("level %v for aggression %v, want %v", tr.AggressionLevel(), a, want)
		}
	})
}
