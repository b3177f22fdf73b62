package rfm

import (
	"sort"

	"github.com/ignite/retail-rfm/internal/domain"
)

// Quartiles is the number of score buckets.
const Quartiles = 4

// NTile splits n ordered rows into buckets the way SQL NTILE does: the first
// n mod buckets partitions hold one extra row. The result maps each row
// position to its 1-based bucket. With n < buckets only buckets 1..n occur.
func NTile(n, buckets int) []int {
	out := make([]int, n)
	if n == 0 || buckets <= 0 {
		return out
	}
	size, extra := n/buckets, n%buckets
	pos := 0
	for b := 1; b <= buckets && pos < n; b++ {
		rows := size
		if b <= extra {
			rows++
		}
		for i := 0; i < rows; i++ {
			out[pos] = b
			pos++
		}
	}
	return out
}

// Score assigns R, F and M quartile scores to a population. R ranks by
// recency descending so the most recent buyers get 4; F and M rank
// ascending so the largest values get 4. Ties are ordered by customer id.
// Segments are left empty.
func Score(pop []domain.CustomerRFM) ([]domain.ScoredCustomer, error) {
	if len(pop) == 0 {
		return nil, ErrEmptyPopulation
	}

	scored := make([]domain.ScoredCustomer, len(pop))
	for i, c := range pop {
		scored[i] = domain.ScoredCustomer{CustomerRFM: c}
	}

	idx := make([]int, len(pop))
	assign := func(less func(a, b domain.CustomerRFM) bool, set func(*domain.ScoredCustomer, int)) {
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool {
			a, b := pop[idx[i]], pop[idx[j]]
			if less(a, b) {
				return true
			}
			if less(b, a) {
				return false
			}
			return a.CustomerID < b.CustomerID
		})
		for pos, bucket := range NTile(len(pop), Quartiles) {
			set(&scored[idx[pos]], bucket)
		}
	}

	assign(func(a, b domain.CustomerRFM) bool { return a.Recency > b.Recency },
		func(s *domain.ScoredCustomer, q int) { s.RScore = q })
	assign(func(a, b domain.CustomerRFM) bool { return a.Frequency < b.Frequency },
		func(s *domain.ScoredCustomer, q int) { s.FScore = q })
	assign(func(a, b domain.CustomerRFM) bool { return a.Monetary.LessThan(b.Monetary) },
		func(s *domain.ScoredCustomer, q int) { s.MScore = q })

	return scored, nil
}
