package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMatchGreedyVersusOptimal(t *testing.T) {

	// greedy takes the single best pairing, optimal maximizes the total
	scores := mat.NewDense(2, 2, []float64{
		0.9, 0.8,
		0.85, 0.1,
	})

	greedy := matchGreedy(scores)
	require.Len(t, greedy, 2)
	assert.Equal(t, connection{a: 0, b: 0, score: 0.9}, greedy[0])
	assert.Equal(t, connection{a: 1, b: 1, score: 0.1}, greedy[1])

	optimal, err := matchOptimal(scores)
	require.NoError(t, err)
	require.Len(t, optimal, 2)
	assert.Equal(t, connection{a: 1, b: 0, score: 0.85}, optimal[0])
	assert.Equal(t, connection{a: 0, b: 1, score: 0.8}, optimal[1])
}

func TestMatchSkipsInvalidPairs(t *testing.T) {

	// three source candidates, two destinations and only two valid pairings
	scores := mat.NewDense(3, 2, []float64{
		0, 0.7,
		0, 0,
		0.4, 0,
	})

	want := []connection{
		{a: 0, b: 1, score: 0.7},
		{a: 2, b: 0, score: 0.4},
	}

	assert.Equal(t, want, matchGreedy(scores))

	optimal, err := matchOptimal(scores)
	require.NoError(t, err)
	assert.Equal(t, want, optimal)
}

func TestMatchNoValidPairs(t *testing.T) {

	scores := mat.NewDense(2, 3, nil)

	assert.Empty(t, matchGreedy(scores))

	optimal, err := matchOptimal(scores)
	require.NoError(t, err)
	assert.Empty(t, optimal)
}
