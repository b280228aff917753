package board

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/floor-board/backend/internal/domain"
)

func TestComputePool_NoAssignments(t *testing.T) {
	view := NewReconciler().Apply(Snapshot{})
	require.Equal(t, []string{"W1", "W2", "W3"}, ComputePool([]string{"W1", "W2", "W3"}, view))
}

func TestComputePool_RemovesPlaced(t *testing.T) {
	view := NewReconciler().Apply(Snapshot{Assignments: []domain.Assignment{active("a1", "A", "W1", 0)}})
	require.Equal(t, []string{"W2", "W3"}, ComputePool([]string{"W1", "W2", "W3"}, view))
}

func TestComputePool_CollapsesRosterDuplicates(t *testing.T) {
	require.Equal(t, []string{"W2", "W1"}, ComputePool([]string{"W2", "", "W1", "W2"}, nil))
}

func TestComputePool_Partition(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		n := rng.Intn(30)
		roster := make([]string, n)
		for i := range roster {
			roster[i] = fmt.Sprintf("W%d", i)
		}

		var rows []domain.Assignment
		placed := make(map[string]bool)
		for _, workerID := range roster {
			if rng.Intn(2) == 0 {
				continue
			}
			area := fmt.Sprintf("A%d", rng.Intn(4))
			rows = append(rows, active("as-"+workerID, area, workerID, 0))
			placed[workerID] = true
		}

		view := NewReconciler().Apply(Snapshot{Assignments: rows})
		pool := ComputePool(roster, view)

		require.Equal(t, len(rows), view.Len())
		require.Equal(t, len(roster), len(pool)+len(placed))
		for _, workerID := range pool {
			require.False(t, placed[workerID], "%s 同时在池中和区域中", workerID)
		}
		for _, workerID := range roster {
			inPool := false
			for _, p := range pool {
				if p == workerID {
					inPool = true
				}
			}
			require.True(t, inPool != placed[workerID], "%s 必须恰好在池或区域之一", workerID)
		}
	}
}

func TestMakeView(t *testing.T) {
	view := NewReconciler().Apply(Snapshot{Assignments: []domain.Assignment{
		active("a1", "B", "W1", 0),
		active("a2", "A", "W2", 0),
		active("a3", "A", "W1", 0),
	}})
	directory := Directory{"W1": {WorkerID: "W1", Name: "张伟"}, "W3": {WorkerID: "W3", Name: "李娜"}}

	v := MakeView("site1", "1F", "2026-10-14", view, []string{"W1", "W2", "W3"}, directory)

	require.Len(t, v.Areas, 2)
	require.Equal(t, "A", v.Areas[0].AreaID)
	require.Len(t, v.Areas[0].Workers, 2)
	require.Equal(t, []PoolEntry{{WorkerID: "W3", Name: "李娜"}}, v.Pool)
	require.Equal(t, []Duplicate{{WorkerID: "W1", AreaIDs: []string{"A", "B"}}}, v.Duplicates)
	require.Equal(t, "张伟", v.Areas[1].Workers[0].Name)
}
