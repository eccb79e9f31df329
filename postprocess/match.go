package postprocess

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// connection joins candidate a of a limb's source part to candidate b of its
// destination part
type connection struct {
	a     int
	b     int
	score float32
}

// sortConnections orders connections by descending score, ties broken by
// candidate indices
func sortConnections(conns []connection) {
	sort.Slice(conns, func(i, j int) bool {
		if conns[i].score != conns[j].score {
			return conns[i].score > conns[j].score
		}

		if conns[i].a != conns[j].a {
			return conns[i].a < conns[j].a
		}

		return conns[i].b < conns[j].b
	})
}

// matchGreedy accepts the highest scoring pairings first, using every
// candidate at most once
func matchGreedy(scores *mat.Dense) []connection {

	rows, cols := scores.Dims()
	all := make([]connection, 0)

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if s := scores.At(i, j); s > 0 {
				all = append(all, connection{a: i, b: j, score: float32(s)})
			}
		}
	}

	sortConnections(all)

	usedA := make([]bool, rows)
	usedB := make([]bool, cols)
	limit := min(rows, cols)
	out := make([]connection, 0, limit)

	for _, c := range all {

		if usedA[c.a] || usedB[c.b] {
			continue
		}

		usedA[c.a] = true
		usedB[c.b] = true
		out = append(out, c)

		if len(out) >= limit {
			break
		}
	}

	return out
}

// matchOptimal solves the limb as a linear assignment maximizing the summed
// score of accepted pairings
func matchOptimal(scores *mat.Dense) ([]connection, error) {

	rows, cols := scores.Dims()
	n := max(rows, cols)

	// negated scores padded to a square matrix, padding and invalid pairings
	// cost nothing and are dropped after solving
	cost := make([][]float64, n)

	for i := range cost {
		cost[i] = make([]float64, n)

		if i >= rows {
			continue
		}

		for j := 0; j < cols; j++ {
			cost[i][j] = -scores.At(i, j)
		}
	}

	rowSol, err := solveAssignment(cost)

	if err != nil {
		return nil, fmt.Errorf("limb assignment failed: %w", err)
	}

	out := make([]connection, 0, min(rows, cols))

	for i := 0; i < rows; i++ {
		j := rowSol[i]

		if j < 0 || j >= cols {
			continue
		}

		if s := scores.At(i, j); s > 0 {
			out = append(out, connection{a: i, b: j, score: float32(s)})
		}
	}

	sortConnections(out)

	return out, nil
}
