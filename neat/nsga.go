package neat

import (
	"math"
	"sort"
)

// NSGA-II selection primitives. All functions here are pure and stateless;
// the evolution engine uses them to convert per-genome objective vectors
// into ranked scalar fitness. Objectives are maximized.

// Dominates reports whether objective vector a dominates b: a is at least as
// good on every objective and strictly better on at least one. Two vectors
// can never dominate each other simultaneously.
func Dominates(a, b []float64) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	better := false
	for i := 0; i < n; i++ {
		if a[i] < b[i] {
			return false
		}
		if a[i] > b[i] {
			better = true
		}
	}
	return better
}

// NonDominatedSort performs the classic fast non-dominated sort, returning
// successive fronts of indices into objectives. Front 0 holds individuals
// dominated by no one; each later front is peeled off by decrementing the
// domination counts of individuals dominated by the previous front.
// O(M*N^2) for M objectives and N individuals.
func NonDominatedSort(objectives [][]float64) [][]int {
	n := len(objectives)
	if n == 0 {
		return nil
	}

	dominated := make([][]int, n)
	domCount := make([]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if Dominates(objectives[i], objectives[j]) {
				dominated[i] = append(dominated[i], j)
			} else if Dominates(objectives[j], objectives[i]) {
				domCount[i]++
			}
		}
	}

	var fronts [][]int
	var current []int
	for i := 0; i < n; i++ {
		if domCount[i] == 0 {
			current = append(current, i)
		}
	}
	for len(current) > 0 {
		fronts = append(fronts, current)
		var next []int
		for _, i := range current {
			for _, j := range dominated[i] {
				domCount[j]--
				if domCount[j] == 0 {
					next = append(next, j)
				}
			}
		}
		current = next
	}
	return fronts
}

// CrowdingDistance computes the crowding distance for each member of a
// front, returned parallel to the front slice. Fronts of size two or less
// get infinite distance for every member. Otherwise, per objective
// dimension, the boundary members get infinite distance and interior
// members accumulate the normalized gap between their neighbors; dimensions
// with zero range contribute nothing.
func CrowdingDistance(front []int, objectives [][]float64) []float64 {
	m := len(front)
	dist := make([]float64, m)
	if m == 0 {
		return dist
	}
	if m <= 2 {
		for i := range dist {
			dist[i] = math.Inf(1)
		}
		return dist
	}

	numObjectives := len(objectives[front[0]])
	order := make([]int, m)
	for d := 0; d < numObjectives; d++ {
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(i, j int) bool {
			return objectives[front[order[i]]][d] < objectives[front[order[j]]][d]
		})

		lo, hi := order[0], order[m-1]
		valueRange := objectives[front[hi]][d] - objectives[front[lo]][d]
		if valueRange == 0 {
			continue
		}
		dist[lo] = math.Inf(1)
		dist[hi] = math.Inf(1)
		for k := 1; k < m-1; k++ {
			idx := order[k]
			if math.IsInf(dist[idx], 1) {
				continue
			}
			next := objectives[front[order[k+1]]][d]
			prev := objectives[front[order[k-1]]][d]
			dist[idx] += (next - prev) / valueRange
		}
	}
	return dist
}

// Select returns the indices of targetSize individuals chosen by
// non-dominated rank, breaking ties within the first overflowing front by
// descending crowding distance. When targetSize covers the whole population,
// every index is returned.
func Select(objectives [][]float64, targetSize int) []int {
	n := len(objectives)
	if targetSize >= n {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	if targetSize <= 0 {
		return nil
	}

	selected := make([]int, 0, targetSize)
	for _, front := range NonDominatedSort(objectives) {
		if len(selected)+len(front) <= targetSize {
			selected = append(selected, front...)
			if len(selected) == targetSize {
				break
			}
			continue
		}

		remaining := targetSize - len(selected)
		dist := CrowdingDistance(front, objectives)
		order := make([]int, len(front))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(i, j int) bool {
			return dist[order[i]] > dist[order[j]]
		})
		for i := 0; i < remaining; i++ {
			selected = append(selected, front[order[i]])
		}
		break
	}
	return selected
}
