package trainer

import (
	"cmp"
	"slices"

	"phishguard/model"
)

const (
	// featureEpsilon is the smallest gap between two sorted values that
	// counts as a distinct split position.
	featureEpsilon = 1e-7
	// impurityEpsilon stops splitting nodes whose residuals are constant.
	impurityEpsilon = 1e-12
)

// grower fits regression trees on one fixed training matrix. Each feature
// column is sorted once up front and every node scans those orders, skipping
// rows owned by other nodes.
type grower struct {
	x        [][]float64
	sorted   [][]int
	maxDepth int
	minSplit int

	residual []float64
	hessian  []float64
	owner    []int
	nodes    []model.Node
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

func newGrower(x [][]float64, width, maxDepth, minSplit int) *grower {
	sorted := make([][]int, width)
	for f := range sorted {
		idx := make([]int, len(x))
		for i := range idx {
			idx[i] = i
		}
		slices.SortStableFunc(idx, func(a, b int) int {
			return cmp.Compare(x[a][f], x[b][f])
		})
		sorted[f] = idx
	}

	return &grower{
		x:        x,
		sorted:   sorted,
		maxDepth: maxDepth,
		minSplit: minSplit,
		owner:    make([]int, len(x)),
	}
}

// grow fits one tree to residual, with leaf values taken as a Newton step
// sum(residual) / sum(hessian) over the rows in each leaf.
func (g *grower) grow(residual, hessian []float64) model.Tree {
	g.residual, g.hessian = residual, hessian
	g.nodes = nil

	rows := make([]int, len(g.x))
	for i := range rows {
		rows[i] = i
	}
	g.build(rows, 0)

	return model.Tree{Nodes: g.nodes}
}

func (g *grower) build(rows []int, depth int) int {
	id := len(g.nodes)
	g.nodes = append(g.nodes, model.Node{Samples: len(rows)})
	for _, i := range rows {
		g.owner[i] = id
	}

	if depth < g.maxDepth && len(rows) >= g.minSplit {
		if s, ok := g.bestSplit(id, rows); ok {
			var left, right []int
			for _, i := range rows {
				if g.x[i][s.feature] <= s.threshold {
					left = append(left, i)
				} else {
					right = append(right, i)
				}
			}
			g.nodes[id].Feature = s.feature
			g.nodes[id].Threshold = s.threshold
			l := g.build(left, depth+1)
			r := g.build(right, depth+1)
			g.nodes[id].Left = l
			g.nodes[id].Right = r
			return id
		}
	}

	g.nodes[id].Leaf = true
	g.nodes[id].Value = g.newtonStep(rows)
	return id
}

// bestSplit maximizes Friedman's improvement nL*nR/n * (meanL - meanR)^2.
func (g *grower) bestSplit(id int, rows []int) (split, bool) {
	n := len(rows)
	total := 0.0
	for _, i := range rows {
		total += g.residual[i]
	}
	mean := total / float64(n)
	sse := 0.0
	for _, i := range rows {
		d := g.residual[i] - mean
		sse += d * d
	}
	if sse/float64(n) <= impurityEpsilon {
		return split{}, false
	}

	best, found := split{}, false
	for f, order := range g.sorted {
		nLeft, sumLeft, prev := 0, 0.0, -1
		for _, i := range order {
			if g.owner[i] != id {
				continue
			}
			if prev >= 0 && g.x[i][f] > g.x[prev][f]+featureEpsilon {
				nRight := n - nLeft
				diff := sumLeft/float64(nLeft) - (total-sumLeft)/float64(nRight)
				gain := float64(nLeft) * float64(nRight) / float64(n) * diff * diff
				if gain > best.gain {
					thr := (g.x[prev][f] + g.x[i][f]) / 2
					if thr >= g.x[i][f] {
						thr = g.x[prev][f]
					}
					best, found = split{feature: f, threshold: thr, gain: gain}, true
				}
			}
			nLeft++
			sumLeft += g.residual[i]
			prev = i
		}
	}
	return best, found
}

func (g *grower) newtonStep(rows []int) float64 {
	num, den := 0.0, 0.0
	for _, i := range rows {
		num += g.residual[i]
		den += g.hessian[i]
	}
	if den < 1e-150 {
		return 0
	}
	return num / den
}
