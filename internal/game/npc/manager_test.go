package npc_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/npc"
	"github.com/cory-johannsen/npcbrain/internal/game/orchestrator"
)

var _ orchestrator.Combatant = (*npc.Instance)(nil)
var _ orchestrator.Reputable = (*npc.Instance)(nil)

func TestManager_SpawnAndGet(t *testing.T) {
	mgr := npc.NewManager(nil)
	inst, err := mgr.Spawn(newGuardTemplate(), "", "village")
	require.NoError(t, err)
	assert.Equal(t, "Guard", inst.Name())

	got, ok := mgr.Get(inst.ID())
	require.True(t, ok)
	assert.Same(t, inst, got)

	_, ok = mgr.Get(uuid.New())
	assert.False(t, ok)
}

func TestManager_SpawnRejects(t *testing.T) {
	mgr := npc.NewManager(nil)
	_, err := mgr.Spawn(nil, "x", "village")
	assert.Error(t, err)
	_, err = mgr.Spawn(newGuardTemplate(), "x", "")
	assert.Error(t, err)

	id := uuid.New()
	_, err = mgr.SpawnWithID(id, newGuardTemplate(), "a", "village")
	require.NoError(t, err)
	_, err = mgr.SpawnWithID(id, newGuardTemplate(), "b", "bandits")
	assert.ErrorContains(t, err, "already exists")
	assert.Len(t, mgr.All(), 1)
}

func TestManager_SidesAndOrdering(t *testing.T) {
	mgr := npc.NewManager(nil)
	for _, sp := range []struct{ name, side string }{
		{"Cedric", "village"}, {"Alys", "village"}, {"Bram", "bandits"},
	} {
		_, err := mgr.Spawn(newGuardTemplate(), sp.name, sp.side)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"bandits", "village"}, mgr.Sides())
	names := func(list []*npc.Instance) []string {
		out := make([]string, len(list))
		for i, inst := range list {
			out[i] = inst.Name()
		}
		return out
	}
	assert.Equal(t, []string{"Alys", "Bram", "Cedric"}, names(mgr.All()))
	assert.Equal(t, []string{"Alys", "Cedric"}, names(mgr.OnSide("village")))
	assert.Empty(t, mgr.OnSide("nobody"))
}

func TestManager_RemoveDropsEmptySide(t *testing.T) {
	mgr := npc.NewManager(nil)
	inst, err := mgr.Spawn(newGuardTemplate(), "Bram", "bandits")
	require.NoError(t, err)

	require.NoError(t, mgr.Remove(inst.ID()))
	assert.Empty(t, mgr.Sides())
	assert.Error(t, mgr.Remove(inst.ID()))
}

func TestManager_Find(t *testing.T) {
	mgr := npc.NewManager(nil)
	_, err := mgr.Spawn(newGuardTemplate(), "Brigand Chief", "bandits")
	require.NoError(t, err)

	require.NotNil(t, mgr.Find("brig"))
	assert.Equal(t, "Brigand Chief", mgr.Find("BRIGAND").Name())
	assert.Nil(t, mgr.Find("guard"))
}

func TestManager_SituationSplitsSides(t *testing.T) {
	mgr := npc.NewManager(nil)
	self, err := mgr.Spawn(newGuardTemplate(), "Alys", "village")
	require.NoError(t, err)
	ally, err := mgr.Spawn(newGuardTemplate(), "Cedric", "village")
	require.NoError(t, err)
	foe, err := mgr.Spawn(newGuardTemplate(), "Bram", "bandits")
	require.NoError(t, err)
	gone, err := mgr.Spawn(newGuardTemplate(), "Dunstan", "bandits")
	require.NoError(t, err)
	require.True(t, gone.Flee())
	require.True(t, self.Defend())

	s := mgr.Situation(self)
	assert.Same(t, self, s.Self)
	assert.Equal(t, actor.IDs([]actor.Actor{ally}), actor.IDs(s.Allies))
	assert.Equal(t, actor.IDs([]actor.Actor{foe}), actor.IDs(s.Opponents))
	assert.True(t, s.Defensive)
}

func TestManager_Contested(t *testing.T) {
	mgr := npc.NewManager(nil)
	_, err := mgr.Spawn(newGuardTemplate(), "Alys", "village")
	require.NoError(t, err)
	assert.False(t, mgr.Contested())

	b, err := mgr.Spawn(newGuardTemplate(), "Bram", "bandits")
	require.NoError(t, err)
	assert.True(t, mgr.Contested())

	b.Withdraw()
	assert.False(t, mgr.Contested())
}

func TestActors_PreservesOrder(t *testing.T) {
	mgr := npc.NewManager(nil)
	a, _ := mgr.Spawn(newGuardTemplate(), "Alys", "village")
	b, _ := mgr.Spawn(newGuardTemplate(), "Bram", "bandits")

	got := npc.Actors([]*npc.Instance{b, a})
	require.Len(t, got, 2)
	assert.Equal(t, b.ID(), got[0].ID())
	assert.Equal(t, a.ID(), got[1].ID())
}

func TestManager_ConcurrentSpawnAndRead(t *testing.T) {
	mgr := npc.NewManager(nil)
	var wg sync.WaitGroup
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			side := "village"
			if i%2 == 0 {
				side = "bandits"
			}
			inst, err := mgr.Spawn(newGuardTemplate(), fmt.Sprintf("v%02d", i), side)
			if err != nil {
				t.Error(err)
				return
			}
			_ = mgr.Situation(inst)
			_ = mgr.Contested()
		}()
	}
	wg.Wait()
	assert.Len(t, mgr.All(), 32)
	assert.Len(t, mgr.OnSide("bandits"), 16)
}

func TestProperty_Manager_SituationPartitionsOthers(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		mgr := npc.NewManager(nil)
		n := rapid.IntRange(1, 10).Draw(rt, "n")
		var all []*npc.Instance
		for i := range n {
			side := rapid.SampledFrom([]string{"a", "b", "c"}).Draw(rt, fmt.Sprintf("side%d", i))
			inst, err := mgr.Spawn(newGuardTemplate(), fmt.Sprintf("v%d", i), side)
			if err != nil {
				rt.Fatalf("spawn: %v", err)
			}
			all = append(all, inst)
		}
		self := all[rapid.IntRange(0, n-1).Draw(rt, "self")]
		s := mgr.Situation(self)
		if len(s.Allies)+len(s.Opponents) != n-1 {
			rt.Fatalf("allies %d + opponents %d != %d", len(s.Allies), len(s.Opponents), n-1)
		}
		for _, a := range s.Allies {
			if a.(*npc.Instance).Side() != self.Side() {
				rt.Fatalf("ally %s on side %s", a.(*npc.Instance).Name(), a.(*npc.Instance).Side())
			}
		}
		for _, o := range s.Opponents {
			if o.(*npc.Instance).Side() == self.Side() {
				rt.Fatalf("opponent %s on own side", o.(*npc.Instance).Name())
			}
		}
	})
}
