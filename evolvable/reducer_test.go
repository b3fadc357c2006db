package evolvable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	assert.Equal(t, 15, Sum([]int{1, 2, 3, 4, 5}))
}

func TestSumEmpty(t *testing.T) {
	assert.Equal(t, 0, Sum(nil))
}

func TestSumNegative(t *testing.T) {
	assert.Equal(t, -1, Sum([]int{2, -3}))
}
