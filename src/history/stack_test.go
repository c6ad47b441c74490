package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStack_PushPop(t *testing.T) {
	s := New[int](3)
	assert.True(t, s.IsEmpty())
	_, ok := s.Pop()
	assert.False(t, ok)

	s.Push(1)
	s.Push(2)
	assert.Equal(t, 2, s.Len())
	v, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = s.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, v)
	v, _ = s.Pop()
	assert.Equal(t, 1, v)
	assert.True(t, s.IsEmpty())
}

func TestStack_EvictsOldest(t *testing.T) {
	const capacity = 4
	s := New[string](capacity)
	for _, v := range []string{"a", "b", "c", "d", "e"} {
		s.Push(v)
	}
	assert.Equal(t, capacity, s.Len())
	assert.Equal(t, capacity, s.Capacity())

	var got []string
	for !s.IsEmpty() {
		v, _ := s.Pop()
		got = append(got, v)
	}
	assert.Equal(t, []string{"e", "d", "c", "b"}, got)
}

func TestStack_WrapAround(t *testing.T) {
	s := New[int](3)
	for i := 1; i <= 10; i++ {
		s.Push(i)
		if i%4 == 0 {
			s.Pop()
		}
	}
	//8 is popped, 10 evicts 6
	var got []int
	for !s.IsEmpty() {
		v, _ := s.Pop()
		got = append(got, v)
	}
	assert.Equal(t, []int{10, 9, 7}, got)
}

func TestStack_DefaultCapacity(t *testing.T) {
	assert.Equal(t, DefCapacity, New[int](0).Capacity())
	assert.Equal(t, DefCapacity, New[int](-5).Capacity())
}

func TestStack_Clear(t *testing.T) {
	s := New[*int](2)
	v := 1
	s.Push(&v)
	s.Push(&v)
	s.Push(&v)
	s.Clear()
	assert.True(t, s.IsEmpty())
	assert.Equal(t, []*int{nil, nil}, s.items)
	s.Push(&v)
	assert.Equal(t, 1, s.Len())
}
