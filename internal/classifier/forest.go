package classifier

import (
	"math"
	"math/rand"
	"sort"
)

// ForestOptions configures a random forest.
type ForestOptions struct {
	Trees int
	Seed  int64
	// MaxFeatures per split; 0 means sqrt(number of features).
	MaxFeatures int
	// MaxDepth of each tree; 0 means unlimited.
	MaxDepth int
}

// node is either an internal split or a leaf holding a class distribution.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	dist      []float64
}

func (n *node) leaf() bool {
	return n.dist != nil
}

// Forest is a bagged ensemble of CART trees using gini impurity.
// It is immutable after training.
type Forest struct {
	classes []string
	trees   []*node
}

// TrainForest fits a forest on dense feature rows and string labels.
func TrainForest(rows [][]float64, labels []string, opts ForestOptions) *Forest {
	classIndex := make(map[string]int)
	var classes []string
	for _, l := range labels {
		if _, ok := classIndex[l]; !ok {
			classIndex[l] = 0
			classes = append(classes, l)
		}
	}
	sort.Strings(classes)
	for i, c := range classes {
		classIndex[c] = i
	}

	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = classIndex[l]
	}

	if opts.Trees <= 0 {
		opts.Trees = 100
	}
	nFeatures := 0
	if len(rows) > 0 {
		nFeatures = len(rows[0])
	}
	maxFeatures := opts.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(nFeatures)))
		if maxFeatures < 1 {
			maxFeatures = 1
		}
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	b := &treeBuilder{
		rows:        rows,
		y:           y,
		numClasses:  len(classes),
		maxFeatures: maxFeatures,
		maxDepth:    opts.MaxDepth,
		rng:         rng,
	}

	f := &Forest{classes: classes, trees: make([]*node, 0, opts.Trees)}
	for t := 0; t < opts.Trees; t++ {
		sample := make([]int, len(rows))
		for i := range sample {
			sample[i] = rng.Intn(len(rows))
		}
		f.trees = append(f.trees, b.build(sample, 0))
	}
	return f
}

// Classes returns the sorted class labels.
func (f *Forest) Classes() []string {
	return f.classes
}

// PredictProba averages leaf class distributions over every tree.
func (f *Forest) PredictProba(x []float64) map[string]float64 {
	sum := make([]float64, len(f.classes))
	for _, tree := range f.trees {
		n := tree
		for !n.leaf() {
			if x[n.feature] <= n.threshold {
				n = n.left
			} else {
				n = n.right
			}
		}
		for i, p := range n.dist {
			sum[i] += p
		}
	}

	out := make(map[string]float64, len(f.classes))
	for i, c := range f.classes {
		if len(f.trees) > 0 {
			out[c] = sum[i] / float64(len(f.trees))
		}
	}
	return out
}

// Predict returns the most probable class and its probability.
// Ties go to the alphabetically first class.
func (f *Forest) Predict(x []float64) (string, float64) {
	proba := f.PredictProba(x)
	best, bestP := "", -1.0
	for _, c := range f.classes {
		if proba[c] > bestP {
			best, bestP = c, proba[c]
		}
	}
	return best, bestP
}

type treeBuilder struct {
	rows        [][]float64
	y           []int
	numClasses  int
	maxFeatures int
	maxDepth    int
	rng         *rand.Rand
}

func (b *treeBuilder) build(sample []int, depth int) *node {
	counts := make([]float64, b.numClasses)
	for _, i := range sample {
		counts[b.y[i]]++
	}

	if len(sample) < 2 || gini(counts, float64(len(sample))) == 0 || (b.maxDepth > 0 && depth >= b.maxDepth) {
		return leafNode(counts, len(sample))
	}

	feature, threshold, ok := b.bestSplit(sample)
	if !ok {
		return leafNode(counts, len(sample))
	}

	var left, right []int
	for _, i := range sample {
		if b.rows[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		left:      b.build(left, depth+1),
		right:     b.build(right, depth+1),
	}
}

// bestSplit draws features in random order and evaluates up to maxFeatures
// non-constant ones, continuing past that only until a valid split is found.
func (b *treeBuilder) bestSplit(sample []int) (int, float64, bool) {
	nFeatures := len(b.rows[0])
	order := b.rng.Perm(nFeatures)

	bestFeature, bestThreshold := -1, 0.0
	bestScore := math.Inf(1)
	visited := 0

	values := make([]float64, len(sample))
	idx := make([]int, len(sample))

	for _, f := range order {
		if visited >= b.maxFeatures && bestFeature >= 0 {
			break
		}

		for k, i := range sample {
			values[k] = b.rows[i][f]
			idx[k] = i
		}
		if isConstant(values) {
			continue
		}
		visited++

		sort.Sort(byValue{values: values, idx: idx})

		left := make([]float64, b.numClasses)
		right := make([]float64, b.numClasses)
		for _, i := range idx {
			right[b.y[i]]++
		}

		n := float64(len(idx))
		for k := 0; k < len(idx)-1; k++ {
			c := b.y[idx[k]]
			left[c]++
			right[c]--
			if values[k] == values[k+1] {
				continue
			}
			nl := float64(k + 1)
			nr := n - nl
			score := (nl*gini(left, nl) + nr*gini(right, nr)) / n
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = (values[k] + values[k+1]) / 2
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature >= 0
}

func leafNode(counts []float64, n int) *node {
	dist := make([]float64, len(counts))
	if n == 0 {
		return &node{dist: dist}
	}
	for i, c := range counts {
		dist[i] = c / float64(n)
	}
	return &node{dist: dist}
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := c / n
		g -= p * p
	}
	return g
}

func isConstant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

type byValue struct {
	values []float64
	idx    []int
}

func (s byValue) Len() int           { return len(s.values) }
func (s byValue) Less(i, j int) bool { return s.values[i] < s.values[j] }
func (s byValue) Swap(i, j int) {
	s.values[i], s.values[j] = s.values[j], s.values[i]
	s.idx[i], s.idx[j] = s.idx[j], s.idx[i]
}
