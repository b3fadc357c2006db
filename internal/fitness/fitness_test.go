package fitness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func snap(time, mem, lines float64) map[string]float64 {
	return map[string]float64{
		MetricExecutionTimeUS: time,
		MetricMemoryBytes:     mem,
		MetricCodeSizeLines:   lines,
	}
}

func TestScoreOfIdenticalSnapshotsIsExactlyZero(t *testing.T) {
	e := NewDefault()
	x := snap(100, 1000, 50)
	assert.Equal(t, 0.0, e.Score(x, x))
}

func TestEvaluateNeutralIffWithinThreshold(t *testing.T) {
	e := NewDefault()

	// score = 0.6 * (100-104)/100 = -0.024, within [-0.05, 0.05]
	v := e.Evaluate(snap(100, 1000, 50), snap(104, 1000, 50))
	assert.Equal(t, Neutral, v.Label)
	assert.Equal(t, 0.0, v.Score, "neutral verdict forces score to exactly 0.0")
}

func TestEvaluateImproved(t *testing.T) {
	e := NewDefault()
	// time 100 -> 80: r = 0.2, score = 0.6*0.2 = 0.12
	v := e.Evaluate(snap(100, 1000, 50), snap(80, 1000, 50))
	assert.Equal(t, Improved, v.Label)
	assert.InDelta(t, 0.12, v.Score, 1e-9)
}

func TestEvaluateRegressed(t *testing.T) {
	e := NewDefault()
	// time 100 -> 200: r = -1.0, score = 0.6*-1.0 = -0.6
	v := e.Evaluate(snap(100, 1000, 50), snap(200, 1000, 50))
	assert.Equal(t, Regressed, v.Label)
	assert.InDelta(t, -0.6, v.Score, 1e-9)
}

func TestZeroBeforeContributesZeroNotDivisionError(t *testing.T) {
	e := NewDefault()
	before := map[string]float64{MetricExecutionTimeUS: 0, MetricMemoryBytes: 1000, MetricCodeSizeLines: 50}
	after := map[string]float64{MetricExecutionTimeUS: 50, MetricMemoryBytes: 500, MetricCodeSizeLines: 50}
	v := e.Evaluate(before, after)
	// time ratio forced to 0; memory ratio = 0.5 -> score = 0.3*0.5 = 0.15
	assert.InDelta(t, 0.15, v.Score, 1e-9)
}

func TestEmptySnapshotsScoreZero(t *testing.T) {
	e := NewDefault()
	assert.Equal(t, 0.0, e.Score(map[string]float64{}, map[string]float64{}))
}

func TestMissingKeyContributesZero(t *testing.T) {
	e := NewDefault()
	before := snap(100, 1000, 50)
	after := map[string]float64{MetricMemoryBytes: 1000, MetricCodeSizeLines: 50} // no execution_time_us
	assert.Equal(t, 0.0, e.Score(before, after))
}

func TestThresholdBoundaryIsExclusiveForImproved(t *testing.T) {
	e := NewDefault()
	before := snap(100, 1000, 50)
	// construct score exactly at 0.05
	after := snap(100-100*0.05/0.6, 1000, 50)
	v := e.Evaluate(before, after)
	assert.Equal(t, Neutral, v.Label, "score exactly at threshold should be neutral, not improved")
}
