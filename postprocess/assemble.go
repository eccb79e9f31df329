package postprocess

import (
	"github.com/swdee/go-openpose/pose"
)

// person is a partially assembled skeleton
type person struct {
	// parts holds the candidate index of each part, -1 when missing
	parts []int
	// score sums the part and connection scores
	score float32
	// count is the number of parts assigned
	count int
}

func newPerson(numParts int) *person {

	p := &person{
		parts: make([]int, numParts),
	}

	for i := range p.parts {
		p.parts[i] = -1
	}

	return p
}

// disjoint reports whether two people share no body part slot
func (p *person) disjoint(o *person) bool {
	for i := range p.parts {
		if p.parts[i] >= 0 && o.parts[i] >= 0 {
			return false
		}
	}

	return true
}

// merge folds o into p
func (p *person) merge(o *person, c connection) {
	for i, idx := range o.parts {
		if idx >= 0 {
			p.parts[i] = idx
		}
	}

	p.count += o.count
	p.score += o.score + c.score
}

// attach adds whichever end of the connection the person is missing
func (p *person) attach(l pose.Limb, c connection, cands [][]pose.Candidate) {

	switch {
	case p.parts[l.A] == c.a && p.parts[l.B] < 0:
		p.parts[l.B] = c.b
		p.count++
		p.score += cands[l.B][c.b].Score + c.score

	case p.parts[l.B] == c.b && p.parts[l.A] < 0:
		p.parts[l.A] = c.a
		p.count++
		p.score += cands[l.A][c.a].Score + c.score
	}
}

// assemble matches candidates limb by limb and merges the connections into
// people, dropping those with too few parts or too low a score
func (d *Decoder) assemble(cands [][]pose.Candidate, paf *pose.AffinityFieldSet) ([]*person, error) {

	people := make([]*person, 0)

	for li, l := range d.model.Limbs {

		candsA := cands[l.A]
		candsB := cands[l.B]

		if len(candsA) == 0 || len(candsB) == 0 {
			continue
		}

		scores, err := d.limbScores(paf, l, candsA, candsB)

		if err != nil {
			return nil, &FieldError{Limb: li, Err: err}
		}

		var conns []connection

		if d.Params.Method == MatchOptimal {
			conns, err = matchOptimal(scores)

			if err != nil {
				return nil, err
			}

		} else {
			conns = matchGreedy(scores)
		}

		for _, c := range conns {
			people = d.join(people, l, c, cands)
		}
	}

	kept := make([]*person, 0, len(people))

	for _, p := range people {
		if p.count < d.Params.MinSubsetCount {
			continue
		}

		if p.score/float32(p.count) < d.Params.MinSubsetScore {
			continue
		}

		kept = append(kept, p)
	}

	return kept, nil
}

// join applies one limb connection to the set of people
func (d *Decoder) join(people []*person, l pose.Limb, c connection,
	cands [][]pose.Candidate) []*person {

	found := make([]int, 0, 2)

	for i, p := range people {
		if p.parts[l.A] == c.a || p.parts[l.B] == c.b {
			found = append(found, i)

			if len(found) == 2 {
				break
			}
		}
	}

	switch len(found) {
	case 0:
		if l.Redundant {
			return people
		}

		p := newPerson(d.model.NumParts())
		p.parts[l.A] = c.a
		p.parts[l.B] = c.b
		p.count = 2
		p.score = cands[l.A][c.a].Score + cands[l.B][c.b].Score + c.score

		return append(people, p)

	case 1:
		people[found[0]].attach(l, c, cands)

	case 2:
		p1 := people[found[0]]
		p2 := people[found[1]]

		if !l.Redundant && p1.disjoint(p2) {
			p1.merge(p2, c)
			return append(people[:found[1]], people[found[1]+1:]...)
		}

		p1.attach(l, c, cands)
	}

	return people
}
