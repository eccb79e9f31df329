package postprocess

import (
	"math"
	"math/rand"
	"testing"
)

func runAssignmentTest(t *testing.T, cost [][]float64, expected []int) {

	x, err := solveAssignment(cost)

	if err != nil {
		t.Fatalf("solveAssignment returned an error: %v", err)
	}

	for i := range expected {
		if x[i] != expected[i] {
			t.Errorf("Expected x[%d] = %d, but got %d", i, expected[i], x[i])
		}
	}
}

func TestSolveAssignment(t *testing.T) {

	cost1 := [][]float64{
		{4, 1, 3, 2},
		{2, 0, 5, 3},
		{3, 2, 2, 3},
		{2, 3, 3, 2},
	}

	cost2 := [][]float64{
		{10, 19, 8, 15},
		{10, 18, 7, 17},
		{13, 16, 9, 14},
		{12, 19, 8, 18},
	}

	t.Run("Test Case 1", func(t *testing.T) {
		runAssignmentTest(t, cost1, []int{3, 1, 2, 0})
	})

	t.Run("Test Case 2", func(t *testing.T) {
		runAssignmentTest(t, cost2, []int{3, 0, 1, 2})
	})

	t.Run("Single", func(t *testing.T) {
		runAssignmentTest(t, [][]float64{{-0.7}}, []int{0})
	})
}

func TestSolveAssignmentEmpty(t *testing.T) {

	x, err := solveAssignment(nil)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(x) != 0 {
		t.Errorf("expected no assignment, got %v", x)
	}
}

func TestSolveAssignmentNotSquare(t *testing.T) {

	_, err := solveAssignment([][]float64{{1, 2}, {3}})

	if err == nil {
		t.Error("expected error for ragged cost matrix")
	}
}

// bruteForce returns the minimum total cost over all permutations
func bruteForce(cost [][]float64) float64 {

	n := len(cost)
	perm := make([]int, n)

	for i := range perm {
		perm[i] = i
	}

	best := math.Inf(1)

	var permute func(k int)
	permute = func(k int) {
		if k == n {
			var total float64

			for i, j := range perm {
				total += cost[i][j]
			}

			best = math.Min(best, total)
			return
		}

		for i := k; i < n; i++ {
			perm[k], perm[i] = perm[i], perm[k]
			permute(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}

	permute(0)

	return best
}

func TestSolveAssignmentOptimal(t *testing.T) {

	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {

		n := 2 + rng.Intn(5)
		cost := make([][]float64, n)

		for i := range cost {
			cost[i] = make([]float64, n)

			for j := range cost[i] {
				// negated scores as used when matching limbs, with some
				// invalid pairings scoring zero
				if rng.Float64() < 0.7 {
					cost[i][j] = -rng.Float64()
				}
			}
		}

		x, err := solveAssignment(cost)

		if err != nil {
			t.Fatalf("trial %d: unexpected error: %v", trial, err)
		}

		seen := make(map[int]bool)
		var total float64

		for i, j := range x {
			if seen[j] {
				t.Fatalf("trial %d: column %d assigned twice", trial, j)
			}

			seen[j] = true
			total += cost[i][j]
		}

		if want := bruteForce(cost); math.Abs(total-want) > 1e-9 {
			t.Errorf("trial %d: total cost %f, optimum %f", trial, total, want)
		}
	}
}
