//Package history keeps a bounded window of previous values, used to rewind the universe
package history

//DefCapacity is the default number of kept values
const DefCapacity = 10

//Stack is a LIFO with a fixed capacity: pushing past the capacity evicts the oldest value
//it is not safe for concurrent use
type Stack[T any] struct {
	items []T
	head  int //index of the oldest value
	size  int
}

//New creates a Stack keeping at most capacity values, capacity < 1 means DefCapacity
func New[T any](capacity int) *Stack[T] {
	if capacity < 1 {
		capacity = DefCapacity
	}
	return &Stack[T]{items: make([]T, capacity)}
}

//Push appends item, evicting the oldest value when the stack is full
func (s *Stack[T]) Push(item T) {
	if s.size == len(s.items) {
		s.items[s.head] = item
		s.head = (s.head + 1) % len(s.items)
		return
	}
	s.items[(s.head+s.size)%len(s.items)] = item
	s.size++
}

//Pop removes and returns the most recently pushed value
func (s *Stack[T]) Pop() (T, bool) {
	var zero T
	if s.size == 0 {
		return zero, false
	}
	i := (s.head + s.size - 1) % len(s.items)
	item := s.items[i]
	s.items[i] = zero
	s.size--
	return item, true
}

//Peek returns the most recently pushed value without removing it
func (s *Stack[T]) Peek() (T, bool) {
	if s.size == 0 {
		var zero T
		return zero, false
	}
	return s.items[(s.head+s.size-1)%len(s.items)], true
}

func (s *Stack[T]) IsEmpty() bool {
	return s.size == 0
}

func (s *Stack[T]) Len() int {
	return s.size
}

func (s *Stack[T]) Capacity() int {
	return len(s.items)
}

//Clear drops every value
func (s *Stack[T]) Clear() {
	clear(s.items)
	s.head = 0
	s.size = 0
}
