package derive

import (
	"math"
	"sort"

	"trialviz/pkg/domain"
)

// RankByChange returns the dense position 0..N-1 of every value when sorted
// ascending. Ties keep input order and NaN sorts after every number.
func RankByChange(pc []float64) []int {
	return denseRank(len(pc), func(a, b int) bool {
		return lessFloat(pc[a], pc[b])
	})
}

// RankByGroupThenChange ranks by canonical group order first, then by percent
// change within a group.
func RankByGroupThenChange(groups []domain.Group, pc []float64) []int {
	return denseRank(len(pc), func(a, b int) bool {
		ga, gb := groups[a].Index(), groups[b].Index()
		if ga != gb {
			return ga < gb
		}
		return lessFloat(pc[a], pc[b])
	})
}

// OrderBy inverts a rank column: the result lists row indices in rank order.
func OrderBy(ranks []int) []int {
	order := make([]int, len(ranks))
	for i, r := range ranks {
		order[r] = i
	}
	return order
}

// denseRank applies the double ranking: a stable sort of row indices yields
// the order permutation, and inverting that permutation yields each row's
// dense position.
func denseRank(n int, less func(a, b int) bool) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return less(order[i], order[j]) })
	ranks := make([]int, n)
	for pos, row := range order {
		ranks[row] = pos
	}
	return ranks
}

func lessFloat(a, b float64) bool {
	an, bn := math.IsNaN(a), math.IsNaN(b)
	switch {
	case an && bn:
		return false
	case an:
		return false
	case bn:
		return true
	default:
		return a < b
	}
}
