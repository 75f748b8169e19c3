package scheduler

import (
	"context"
	"fmt"
	"testing"

	"github.com/fniksic/PSharp/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDFS_ExploresEveryInterleaving(t *testing.T) {
	dfs := NewDFSStrategy(0)
	seen := make(map[string]bool)
	for dfs.PrepareIteration() {
		var order []ir.MachineID
		s := NewTesting(dfs)
		for _, u := range recordingUnits(&order, 2, 1) {
			s.Register(u)
		}
		require.NoError(t, s.Run(context.Background()))
		key := fmt.Sprint(order)
		assert.False(t, seen[key], "interleaving %s explored twice", key)
		seen[key] = true
	}

	// Interleavings of [1 1] with [2]: 3 choose 1.
	assert.Len(t, seen, 3)
	assert.True(t, dfs.Exhausted())
	assert.Equal(t, 3, dfs.Explored())
}

func TestDFS_CoversBooleanChoices(t *testing.T) {
	dfs := NewDFSStrategy(0)
	var results []bool
	for dfs.PrepareIteration() {
		s := NewTesting(dfs)
		u := newFakeUnit(1, 1)
		u.onStep = func(*fakeUnit) error {
			b, err := s.NextBool(1)
			results = append(results, b)
			return err
		}
		s.Register(u)
		require.NoError(t, s.Run(context.Background()))
	}
	assert.Equal(t, []bool{false, true}, results)
}

func TestDFS_DepthBound(t *testing.T) {
	dfs := NewDFSStrategy(1)
	n := 0
	for dfs.PrepareIteration() {
		n++
		s := NewTesting(dfs)
		for _, u := range recordingUnits(new([]ir.MachineID), 3, 3) {
			s.Register(u)
		}
		require.NoError(t, s.Run(context.Background()))
	}
	assert.Equal(t, 2, n)
	assert.Equal(t, "dfs(depth=1)", dfs.Description())
}

func TestDFS_DetectsNondeterminism(t *testing.T) {
	dfs := NewDFSStrategy(0)
	require.True(t, dfs.PrepareIteration())
	_, err := dfs.NextInt(3)
	require.NoError(t, err)
	require.True(t, dfs.PrepareIteration())
	_, err = dfs.NextInt(4)
	assert.True(t, ir.IsReplayDiverged(err))
}

func TestPCT_PicksEnabledMachines(t *testing.T) {
	p := NewPCTStrategy(5, 2, 20)
	for iter := 0; iter < 10; iter++ {
		require.True(t, p.PrepareIteration())
		var order []ir.MachineID
		s := NewTesting(p)
		for _, u := range recordingUnits(&order, 3, 3, 3) {
			s.Register(u)
		}
		require.NoError(t, s.Run(context.Background()))
		assert.Len(t, order, 9)
	}
	assert.Contains(t, p.Description(), "pct")
}

func TestRandom_ChoicesInRange(t *testing.T) {
	r := NewRandomStrategy(11)
	for i := 0; i < 100; i++ {
		v, err := r.NextInt(3)
		require.NoError(t, err)
		assert.True(t, v >= 0 && v < 3)
		id, err := r.NextMachine([]ir.MachineID{4, 9})
		require.NoError(t, err)
		assert.Contains(t, []ir.MachineID{4, 9}, id)
	}
	assert.Equal(t, "random(seed=11)", r.Description())
}

func TestReplay_Divergence(t *testing.T) {
	log := ir.ChoiceLog{
		{Index: 1, Kind: ir.DecisionSchedule, Value: 2},
		{Index: 2, Kind: ir.DecisionInt, Value: 4},
	}

	tests := []struct {
		name string
		run  func(r *Replay) error
	}{
		{"machine not enabled", func(r *Replay) error {
			_, err := r.NextMachine([]ir.MachineID{1, 3})
			return err
		}},
		{"kind mismatch", func(r *Replay) error {
			_, err := r.NextBool()
			return err
		}},
		{"value out of range", func(r *Replay) error {
			if _, err := r.NextMachine([]ir.MachineID{2}); err != nil {
				return err
			}
			_, err := r.NextInt(3)
			return err
		}},
		{"past end of log", func(r *Replay) error {
			if _, err := r.NextMachine([]ir.MachineID{2}); err != nil {
				return err
			}
			if _, err := r.NextInt(5); err != nil {
				return err
			}
			_, err := r.NextMachine([]ir.MachineID{2})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReplayStrategy(log)
			require.True(t, r.PrepareIteration())
			err := tt.run(r)
			require.Error(t, err)
			assert.True(t, ir.IsReplayDiverged(err), err.Error())
		})
	}
}
