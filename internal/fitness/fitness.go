// Package fitness implements the Fitness Evaluator (spec.md §4.5):
// compares two benchmark snapshots into a signed score and a discrete
// verdict.
package fitness

// Metric keys required in every Benchmark Snapshot (spec.md §3).
const (
	MetricExecutionTimeUS = "execution_time_us"
	MetricMemoryBytes     = "memory_bytes"
	MetricCodeSizeLines   = "code_size_lines"
)

// VerdictLabel is a tagged classification of a fitness score.
type VerdictLabel string

const (
	Improved VerdictLabel = "improved"
	Neutral  VerdictLabel = "neutral"
	Regressed VerdictLabel = "regressed"
)

// Verdict is the Fitness Evaluator's classification of two snapshots.
type Verdict struct {
	Label VerdictLabel
	Score float64
}

// Weights are the per-metric contribution weights (spec.md §4.5
// defaults: 0.6/0.3/0.1). Exposed as configuration per Open Question 2.
type Weights struct {
	Time   float64
	Memory float64
	Lines  float64
}

// Thresholds are the verdict boundaries (spec.md §4.5 default ±0.05).
type Thresholds struct {
	ImprovedAbove  float64
	RegressedBelow float64
}

// DefaultWeights returns the spec's default weighting.
func DefaultWeights() Weights {
	return Weights{Time: 0.6, Memory: 0.3, Lines: 0.1}
}

// DefaultThresholds returns the spec's default verdict thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{ImprovedAbove: 0.05, RegressedBelow: -0.05}
}

// Evaluator computes fitness scores with a fixed weighting and
// threshold configuration.
type Evaluator struct {
	weights    Weights
	thresholds Thresholds
}

// New creates an Evaluator with the given weights and thresholds.
func New(w Weights, th Thresholds) *Evaluator {
	return &Evaluator{weights: w, thresholds: th}
}

// NewDefault creates an Evaluator using the spec's defaults.
func NewDefault() *Evaluator {
	return New(DefaultWeights(), DefaultThresholds())
}

// ratio computes (before-after)/before, or 0 if before <= 0 or the key
// is missing from either snapshot (spec.md §4.5, boundary cases in §8).
func ratio(before, after map[string]float64, key string) float64 {
	b, ok := before[key]
	if !ok || b <= 0 {
		return 0
	}
	a, ok := after[key]
	if !ok {
		return 0
	}
	return (b - a) / b
}

// Score computes score(before, after) = 0.6*r(time) + 0.3*r(memory) +
// 0.1*r(lines).
func (e *Evaluator) Score(before, after map[string]float64) float64 {
	rt := ratio(before, after, MetricExecutionTimeUS)
	rm := ratio(before, after, MetricMemoryBytes)
	rl := ratio(before, after, MetricCodeSizeLines)
	return e.weights.Time*rt + e.weights.Memory*rm + e.weights.Lines*rl
}

// Evaluate returns the full verdict for a before/after comparison. A
// score whose magnitude is within the thresholds is classified neutral
// with Score forced to exactly 0.0 (spec.md §4.5: "Return a neutral
// verdict with score = 0.0 exactly, preserving the threshold semantics
// even if the underlying score is a tiny non-zero").
func (e *Evaluator) Evaluate(before, after map[string]float64) Verdict {
	score := e.Score(before, after)

	switch {
	case score > e.thresholds.ImprovedAbove:
		return Verdict{Label: Improved, Score: score}
	case score < e.thresholds.RegressedBelow:
		return Verdict{Label: Regressed, Score: score}
	default:
		return Verdict{Label: Neutral, Score: 0.0}
	}
}
