package evolvable

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatJoinsWithSpace(t *testing.T) {
	assert.Equal(t, "a b c", Format([]string{"a", "b", "c"}))
}

func TestFormatSkipsEmpty(t *testing.T) {
	assert.Equal(t, "a c", Format([]string{"a", "", "c"}))
}

func TestFormatEmptyInput(t *testing.T) {
	assert.Equal(t, "", Format(nil))
}
