package lp

import (
	"fmt"
	"math"
)

// epsilon is the numerical tolerance used throughout the tableau: for
// zero-comparisons in the ratio test, for the feasibility check on phase
// one's artificial-variable sum, and for the optimality check on reduced
// costs.
const epsilon = 1e-9

// maxIterationsPerPhase bounds each phase's pivot count; a best-effort
// cap rather than a correctness requirement, matching the engine's
// "oracle failure is downgraded, not fatal" error model.
const maxIterationsPerPhase = 2000

// boundCap substitutes for a variable's declared +Inf upper bound (as
// lo+boundCap) so every variable can be shifted into [0, hi-lo] for the
// tableau. Lower bounds are used as given.
const boundCap = 1e7

// DenseSimplex is a from-scratch two-phase primal simplex: phase one
// minimises the sum of artificial variables to find a feasible basis,
// phase two optimises the caller's real objective from that basis. Every
// variable is shifted to a zero lower bound and its upper bound is
// encoded as an explicit row, so the tableau only ever deals in
// non-negative structural variables plus slack/surplus/artificial
// columns.
type DenseSimplex struct{}

// NewDenseSimplex returns the reference lp.Oracle implementation.
func NewDenseSimplex() *DenseSimplex { return &DenseSimplex{} }

type row struct {
	coeffs []float64 // over shifted structural variables y_j = x_j - lo_j
	sense  Sense
	rhs    float64
}

// Solve implements lp.Oracle.
func (s *DenseSimplex) Solve(p *Problem) (*Solution, error) {
	n := len(p.Vars)
	if n == 0 {
		return &Solution{Feasible: true}, nil
	}
	if len(p.Obj.Coeffs) != n {
		return nil, fmt.Errorf("lp: objective has %d coeffs, want %d", len(p.Obj.Coeffs), n)
	}

	lo := make([]float64, n)
	span := make([]float64, n)
	for j, v := range p.Vars {
		lo[j] = v.Lo
		hi := v.Hi
		if math.IsInf(hi, 1) {
			hi = v.Lo + boundCap
		}
		span[j] = hi - v.Lo
		if span[j] < 0 {
			return nil, fmt.Errorf("lp: var %d has Hi < Lo", j)
		}
	}

	rows := make([]row, 0, len(p.Constraints)+n)
	for _, c := range p.Constraints {
		if len(c.Coeffs) != n {
			return nil, fmt.Errorf("lp: constraint %q has %d coeffs, want %d", c.Name, len(c.Coeffs), n)
		}
		shiftedRHS := c.RHS
		for j, coef := range c.Coeffs {
			shiftedRHS -= coef * lo[j]
		}
		rows = append(rows, row{coeffs: append([]float64(nil), c.Coeffs...), sense: c.Sense, rhs: shiftedRHS})
	}
	for j := range p.Vars {
		coeffs := make([]float64, n)
		coeffs[j] = 1
		rows = append(rows, row{coeffs: coeffs, sense: LE, rhs: span[j]})
	}

	// Normalise every row to a non-negative RHS, flipping LE<->GE as needed.
	for i := range rows {
		if rows[i].rhs < 0 {
			for j := range rows[i].coeffs {
				rows[i].coeffs[j] = -rows[i].coeffs[j]
			}
			rows[i].rhs = -rows[i].rhs
			switch rows[i].sense {
			case LE:
				rows[i].sense = GE
			case GE:
				rows[i].sense = LE
			}
		}
	}

	m := len(rows)

	// Column layout: [0,n) structural, then one slack per LE row, one
	// surplus per GE row, then one artificial per GE/EQ row.
	slackCol := make([]int, m)
	surplusCol := make([]int, m)
	artificialCol := make([]int, m)
	for i := range slackCol {
		slackCol[i], surplusCol[i], artificialCol[i] = -1, -1, -1
	}

	col := n
	for i, r := range rows {
		if r.sense == LE {
			slackCol[i] = col
			col++
		}
	}
	for i, r := range rows {
		if r.sense == GE {
			surplusCol[i] = col
			col++
		}
	}
	for i, r := range rows {
		if r.sense == GE || r.sense == EQ {
			artificialCol[i] = col
			col++
		}
	}
	totalCols := col

	tableau := make([][]float64, m)
	basis := make([]int, m)
	for i, r := range rows {
		line := make([]float64, totalCols+1)
		copy(line, r.coeffs)
		switch r.sense {
		case LE:
			line[slackCol[i]] = 1
			basis[i] = slackCol[i]
		case GE:
			line[surplusCol[i]] = -1
			line[artificialCol[i]] = 1
			basis[i] = artificialCol[i]
		case EQ:
			line[artificialCol[i]] = 1
			basis[i] = artificialCol[i]
		}
		line[totalCols] = r.rhs
		tableau[i] = line
	}

	hasArtificial := false
	for _, r := range rows {
		if r.sense != LE {
			hasArtificial = true
			break
		}
	}

	if hasArtificial {
		phase1Cost := make([]float64, totalCols)
		for i := range rows {
			if artificialCol[i] >= 0 {
				phase1Cost[artificialCol[i]] = -1
			}
		}
		exclude := map[int]bool{}
		runSimplex(tableau, basis, phase1Cost, nil, exclude)

		objVal := 0.0
		for i, b := range basis {
			if artificialCol[i] >= 0 && b == artificialCol[i] {
				objVal += tableau[i][totalCols]
			}
		}
		if objVal > 1e-6 {
			return &Solution{Feasible: false}, nil
		}

		// Drive any artificial variable still basic (at zero level, a
		// degenerate row) out of the basis before phase two, so phase
		// two never has to reason about it.
		for i := range basis {
			if artificialCol[i] >= 0 && basis[i] == artificialCol[i] {
				pivoted := false
				for j := 0; j < n; j++ {
					if math.Abs(tableau[i][j]) > epsilon {
						pivot(tableau, i, j)
						basis[i] = j
						pivoted = true
						break
					}
				}
				_ = pivoted
			}
		}
	}

	exclude := map[int]bool{}
	for i := range rows {
		if artificialCol[i] >= 0 {
			exclude[artificialCol[i]] = true
		}
	}

	phase2Cost := make([]float64, totalCols)
	sign := 1.0
	if !p.Obj.Maximize {
		sign = -1.0
	}
	for j, c := range p.Obj.Coeffs {
		phase2Cost[j] = sign * c
	}
	runSimplex(tableau, basis, phase2Cost, nil, exclude)

	y := make([]float64, n)
	for i, b := range basis {
		if b < n {
			y[b] = tableau[i][totalCols]
		}
	}

	values := make([]float64, n)
	objValue := 0.0
	for j := 0; j < n; j++ {
		values[j] = y[j] + lo[j]
		objValue += p.Obj.Coeffs[j] * values[j]
	}

	return &Solution{Values: values, ObjValue: objValue, Feasible: true}, nil
}

// runSimplex drives the tableau to optimality (maximising cost·x) using
// Dantzig's rule for variable selection and the standard minimum-ratio
// test, skipping any column index present in exclude (used in phase two
// to keep artificial variables locked out of the basis).
func runSimplex(tableau [][]float64, basis []int, cost []float64, _ []float64, exclude map[int]bool) {
	m := len(tableau)
	totalCols := len(cost)

	cb := make([]float64, m)

	for iter := 0; iter < maxIterationsPerPhase; iter++ {
		for i, b := range basis {
			cb[i] = cost[b]
		}

		enter := -1
		best := epsilon
		for j := 0; j < totalCols; j++ {
			if exclude[j] {
				continue
			}
			z := 0.0
			for i := 0; i < m; i++ {
				z += cb[i] * tableau[i][j]
			}
			reduced := cost[j] - z
			if reduced > best {
				best = reduced
				enter = j
			}
		}
		if enter == -1 {
			return
		}

		leave := -1
		bestRatio := math.Inf(1)
		for i := 0; i < m; i++ {
			if tableau[i][enter] > epsilon {
				ratio := tableau[i][totalCols] / tableau[i][enter]
				if ratio < bestRatio-epsilon {
					bestRatio = ratio
					leave = i
				}
			}
		}
		if leave == -1 {
			// Unbounded; stop and report whatever the current basis gives.
			return
		}

		pivot(tableau, leave, enter)
		basis[leave] = enter
	}
}

// pivot performs Gauss-Jordan elimination on tableau around (row, col),
// leaving column col as a unit vector with a 1 at row.
func pivot(tableau [][]float64, row, col int) {
	m := len(tableau)
	width := len(tableau[row])
	factor := tableau[row][col]
	for j := 0; j < width; j++ {
		tableau[row][j] /= factor
	}
	for i := 0; i < m; i++ {
		if i == row {
			continue
		}
		f := tableau[i][col]
		if f == 0 {
			continue
		}
		for j := 0; j < width; j++ {
			tableau[i][j] -= f * tableau[row][j]
		}
	}
}
