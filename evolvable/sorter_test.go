package evolvable

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortMatchesStandardLibrary(t *testing.T) {
	xs := []int{5, 3, 8, 1, 9, 2, 7, 4, 6, 0}
	want := append([]int{}, xs...)
	sort.Ints(want)

	got := Sort(xs)
	assert.Equal(t, want, got)
}

func TestSortEmpty(t *testing.T) {
	assert.Equal(t, []int{}, Sort([]int{}))
}

func TestSortDoesNotMutateInput(t *testing.T) {
	xs := []int{3, 1, 2}
	_ = Sort(xs)
	assert.Equal(t, []int{3, 1, 2}, xs)
}
