package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkStack(t *testing.T) {
	t.Parallel()
	a, b := &Module{name: "a"}, &Module{name: "b"}
	var s workStack

	assert.Nil(t, s.pop())
	assert.False(t, s.contains(a))

	s.push(a)
	s.push(b)
	assert.True(t, s.contains(a))
	assert.Equal(t, []string{"a", "b"}, s.names())

	assert.Same(t, b, s.pop())
	assert.False(t, s.contains(b))
	assert.Same(t, a, s.pop())
	assert.Nil(t, s.pop())
	assert.Empty(t, s.names())
}
