package dice

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRollSumWithinBounds(t *testing.T) {
	t.Parallel()

	specs := []struct{ n, sides int }{
		{1, 1}, {1, 2}, {1, 20}, {3, 20}, {2, 6}, {10, 4},
	}

	for _, spec := range specs {
		for i := 0; i < 200; i++ {
			sum, err := RollSum(spec.n, spec.sides)
			require.NoError(t, err)
			require.GreaterOrEqual(t, sum, spec.n, "%dd%d", spec.n, spec.sides)
			require.LessOrEqual(t, sum, spec.n*spec.sides, "%dd%d", spec.n, spec.sides)
		}
	}
}

func TestRollSumSingleDie(t *testing.T) {
	t.Parallel()

	for i := 0; i < 500; i++ {
		sum, err := RollSum(1, 20)
		require.NoError(t, err)
		require.GreaterOrEqual(t, sum, 1)
		require.LessOrEqual(t, sum, 20)
	}

	// 1d1 is always exactly 1.
	sum, err := RollSum(1, 1)
	require.NoError(t, err)
	require.Equal(t, 1, sum)
}

func TestRollSumInvalidSpec(t *testing.T) {
	t.Parallel()

	for _, spec := range []struct{ n, sides int }{
		{0, 20}, {-1, 20}, {3, 0}, {3, -6}, {0, 0},
	} {
		_, err := RollSum(spec.n, spec.sides)
		require.ErrorIs(t, err, ErrInvalidSpec, "%dd%d", spec.n, spec.sides)
	}
}

func TestScriptedRollerReplaysInOrder(t *testing.T) {
	t.Parallel()

	r := NewScriptedRoller(20, 20, 5)

	for _, want := range []int{20, 20, 5} {
		got, err := r.RollSum(1, 20)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := r.RollSum(1, 20)
	require.Error(t, err, "exhausted script must error")
}
