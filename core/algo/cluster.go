package algo

import (
	"slices"
)

// JaccardDistance returns 1 - |a∩b| / |a∪b|. Two empty sets share nothing and are at distance 1.
func JaccardDistance(a, b []string) float64 {
	union := make(map[string]struct{}, len(a)+len(b))
	inA := make(map[string]struct{}, len(a))
	for _, s := range a {
		union[s] = struct{}{}
		inA[s] = struct{}{}
	}
	inter := 0
	seen := make(map[string]struct{}, len(b))
	for _, s := range b {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		union[s] = struct{}{}
		if _, ok := inA[s]; ok {
			inter++
		}
	}
	if len(union) == 0 {
		return 1
	}
	return 1 - float64(inter)/float64(len(union))
}

// ClusterSingleLinkage groups items agglomeratively with single linkage: two clusters merge
// while any pair of their members is closer than threshold. Items are given as sets; the
// result lists clusters of item indexes, each sorted, ordered by their first member.
func ClusterSingleLinkage(sets [][]string, threshold float64) [][]int {
	n := len(sets)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if JaccardDistance(sets[i], sets[j]) < threshold {
				ri, rj := find(i), find(j)
				if ri != rj {
					parent[max(ri, rj)] = min(ri, rj)
				}
			}
		}
	}

	groups := map[int][]int{}
	var roots []int
	for i := 0; i < n; i++ {
		r := find(i)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], i)
	}
	slices.Sort(roots)
	out := make([][]int, 0, len(roots))
	for _, r := range roots {
		out = append(out, groups[r])
	}
	return out
}
