package cluster

import (
	"github.com/scrypster/waymark/pkg/types"
)

// Cluster partitions records into location clusters using a disjoint-set
// forest over the SameLocation relation.
//
// Every pair of records is compared, which is O(n²) equivalence tests. n is a
// single user's lifetime memory count (low thousands at most), so the
// quadratic pass stays well inside interactive budgets.
//
// Group order is unspecified; within a group the records keep their input
// order. Empty input yields an empty partition.
func Cluster(records []types.MemoryRecord) [][]types.MemoryRecord {
	n := len(records)
	if n == 0 {
		return nil
	}

	uf := newUnionFind(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if SameLocation(&records[i], &records[j]) {
				uf.union(i, j)
			}
		}
	}

	// Group indices by root, preserving input order within each group.
	groupIndex := make(map[int]int, n)
	var groups [][]types.MemoryRecord
	for i := 0; i < n; i++ {
		root := uf.find(i)
		gi, ok := groupIndex[root]
		if !ok {
			gi = len(groups)
			groupIndex[root] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], records[i])
	}
	return groups
}

// unionFind is a disjoint-set forest with path compression. Union links one
// root under the other without rank tracking; with path compression on find
// that is plenty for the input sizes involved.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (uf *unionFind) find(i int) int {
	if uf.parent[i] == i {
		return i
	}
	uf.parent[i] = uf.find(uf.parent[i])
	return uf.parent[i]
}

func (uf *unionFind) union(i, j int) {
	rootI, rootJ := uf.find(i), uf.find(j)
	if rootI != rootJ {
		uf.parent[rootI] = rootJ
	}
}
