package postprocess

import (
	"errors"
	"fmt"
)

// lapInf bounds every reduced cost, costs must stay well below it
const lapInf = 1000000.0

// assignment solves the dense square linear assignment problem with the
// Jonker-Volgenant algorithm, minimizing the total cost
type assignment struct {
	n    int
	cost [][]float64
	// rowSol holds the column assigned to each row
	rowSol []int
	// colSol holds the row assigned to each column
	colSol []int
	// v are the column dual variables
	v []float64
}

// solveAssignment returns the column assigned to each row of a square cost
// matrix
func solveAssignment(cost [][]float64) ([]int, error) {

	n := len(cost)

	if n == 0 {
		return nil, nil
	}

	for i, row := range cost {
		if len(row) != n {
			return nil, fmt.Errorf("cost matrix row %d has %d columns, expected %d",
				i, len(row), n)
		}
	}

	a := &assignment{
		n:      n,
		cost:   cost,
		rowSol: make([]int, n),
		colSol: make([]int, n),
		v:      make([]float64, n),
	}

	free := make([]int, n)
	nFree := a.reduceColumns(free)

	// two rounds of augmenting row reduction before falling back to
	// shortest augmenting paths
	for i := 0; nFree > 0 && i < 2; i++ {
		nFree = a.augmentRows(free, nFree)
	}

	if nFree > 0 {
		if err := a.augment(free[:nFree]); err != nil {
			return nil, err
		}
	}

	return a.rowSol, nil
}

// reduceColumns performs column reduction and reduction transfer, returning
// the number of rows left unassigned in free
func (a *assignment) reduceColumns(free []int) int {

	n := a.n
	unique := make([]bool, n)

	for i := 0; i < n; i++ {
		a.rowSol[i] = -1
		a.v[i] = lapInf
		a.colSol[i] = 0
		unique[i] = true
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if c := a.cost[i][j]; c < a.v[j] {
				a.v[j] = c
				a.colSol[j] = i
			}
		}
	}

	for j := n - 1; j >= 0; j-- {
		i := a.colSol[j]

		if a.rowSol[i] < 0 {
			a.rowSol[i] = j
		} else {
			unique[i] = false
			a.colSol[j] = -1
		}
	}

	nFree := 0

	for i := 0; i < n; i++ {

		if a.rowSol[i] < 0 {
			free[nFree] = i
			nFree++
			continue
		}

		if !unique[i] {
			continue
		}

		j := a.rowSol[i]
		minVal := lapInf

		for j2 := 0; j2 < n; j2++ {
			if j2 == j {
				continue
			}

			if c := a.cost[i][j2] - a.v[j2]; c < minVal {
				minVal = c
			}
		}

		a.v[j] -= minVal
	}

	return nFree
}

// augmentRows performs augmenting row reduction over the free rows and
// returns how many remain free
func (a *assignment) augmentRows(free []int, nFree int) int {

	n := a.n
	current := 0
	newFree := 0
	rrCnt := 0

	for current < nFree {

		rrCnt++
		freeI := free[current]
		current++

		// find the lowest and second lowest reduced cost of the row
		j1 := 0
		v1 := a.cost[freeI][0] - a.v[0]
		j2 := -1
		v2 := lapInf

		for j := 1; j < n; j++ {
			c := a.cost[freeI][j] - a.v[j]

			if c < v2 {
				if c >= v1 {
					v2 = c
					j2 = j
				} else {
					v2 = v1
					v1 = c
					j2 = j1
					j1 = j
				}
			}
		}

		i0 := a.colSol[j1]
		v1New := a.v[j1] - (v2 - v1)
		v1Lowers := v1New < a.v[j1]

		if rrCnt < current*n {
			if v1Lowers {
				a.v[j1] = v1New
			} else if i0 >= 0 && j2 >= 0 {
				j1 = j2
				i0 = a.colSol[j2]
			}

			if i0 >= 0 {
				if v1Lowers {
					current--
					free[current] = i0
				} else {
					free[newFree] = i0
					newFree++
				}
			}

		} else if i0 >= 0 {
			free[newFree] = i0
			newFree++
		}

		a.rowSol[freeI] = j1
		a.colSol[j1] = freeI
	}

	return newFree
}

// findMin moves the columns with the minimum d to the SCAN list starting at
// lo and returns the end of the list
func (a *assignment) findMin(lo int, d []float64, cols []int) int {

	hi := lo + 1
	mind := d[cols[lo]]

	for k := hi; k < a.n; k++ {
		j := cols[k]

		if d[j] > mind {
			continue
		}

		if d[j] < mind {
			hi = lo
			mind = d[j]
		}

		cols[k] = cols[hi]
		cols[hi] = j
		hi++
	}

	return hi
}

// scan lowers d of the unscanned columns through the SCAN columns, returning an
// unassigned column once one is reached or -1
func (a *assignment) scan(lo, hi *int, d []float64, cols, pred []int) int {

	for *lo != *hi {

		j := cols[*lo]
		*lo++
		i := a.colSol[j]
		mind := d[j]
		h := a.cost[i][j] - a.v[j] - mind

		for k := *hi; k < a.n; k++ {
			j = cols[k]
			red := a.cost[i][j] - a.v[j] - h

			if red >= d[j] {
				continue
			}

			d[j] = red
			pred[j] = i

			if red == mind {
				if a.colSol[j] < 0 {
					return j
				}

				cols[k] = cols[*hi]
				cols[*hi] = j
				*hi++
			}
		}
	}

	return -1
}

// shortestPath runs one Dijkstra style search for an augmenting path from a
// free row, updating the duals of the columns it settles
func (a *assignment) shortestPath(start int, pred []int) int {

	n := a.n
	lo := 0
	hi := 0
	final := -1
	nReady := 0
	cols := make([]int, n)
	d := make([]float64, n)

	for i := 0; i < n; i++ {
		cols[i] = i
		pred[i] = start
		d[i] = a.cost[start][i] - a.v[i]
	}

	for final == -1 {

		if lo == hi {
			nReady = lo
			hi = a.findMin(lo, d, cols)

			for k := lo; k < hi; k++ {
				if j := cols[k]; a.colSol[j] < 0 {
					final = j
				}
			}
		}

		if final == -1 {
			final = a.scan(&lo, &hi, d, cols, pred)
		}
	}

	mind := d[cols[lo]]

	for k := 0; k < nReady; k++ {
		j := cols[k]
		a.v[j] += d[j] - mind
	}

	return final
}

// augment assigns every remaining free row along its shortest augmenting
// path
func (a *assignment) augment(free []int) error {

	pred := make([]int, a.n)

	for _, freeI := range free {

		i := -1
		k := 0
		j := a.shortestPath(freeI, pred)

		if j < 0 || j >= a.n {
			return fmt.Errorf("augmenting path ended at column %d", j)
		}

		for i != freeI {
			i = pred[j]
			a.colSol[j] = i
			j, a.rowSol[i] = a.rowSol[i], j
			k++

			if k > a.n {
				return errors.New("augmenting path longer than cost matrix")
			}
		}
	}

	return nil
}
