package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"evo/internal/registry"
)

func TestBuildIncludesTargetAndSource(t *testing.T) {
	p := Build(registry.Target{Name: "sorter"}, "func Sort(xs []int) []int { return xs }", map[string]float64{})
	assert.Contains(t, p, "sorter")
	assert.Contains(t, p, "func Sort(xs []int) []int")
}

func TestBuildListsForbiddenConstructs(t *testing.T) {
	p := Build(registry.Target{Name: "sorter"}, "", map[string]float64{})
	for _, f := range forbidden {
		assert.Contains(t, p, f)
	}
}

func TestBuildRequestsFencedCodeAndReasoning(t *testing.T) {
	p := Build(registry.Target{Name: "sorter"}, "", map[string]float64{})
	assert.Contains(t, p, "fenced Go code block")
	assert.Contains(t, p, "Reasoning:")
}

func TestFormatBenchmarksEmptyMapYieldsEmptyString(t *testing.T) {
	assert.Equal(t, "", FormatBenchmarks(map[string]float64{}))
}

func TestFormatBenchmarksNonMapYieldsFallback(t *testing.T) {
	assert.Equal(t, fallbackBenchmarks, FormatBenchmarks("not a map"))
	assert.Equal(t, fallbackBenchmarks, FormatBenchmarks(nil))
}

func TestFormatBenchmarksSortsKeys(t *testing.T) {
	out := FormatBenchmarks(map[string]float64{"z_metric": 1, "a_metric": 2})
	aIdx := strings.Index(out, "a_metric")
	zIdx := strings.Index(out, "z_metric")
	assert.True(t, aIdx < zIdx)
}

func TestBuildHandlesEmptyBenchmarks(t *testing.T) {
	p := Build(registry.Target{Name: "sorter"}, "code", map[string]float64{})
	assert.Contains(t, p, "no prior benchmark data")
}
