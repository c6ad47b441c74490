package config

import "sync"

//Store is the observable, concurrency safe holder of the running Settings
type Store struct {
	mu        sync.RWMutex
	settings  Settings
	listeners map[int]func(Settings)
	nextID    int
}

//NewStore validates s and wraps it
func NewStore(s Settings) (*Store, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &Store{settings: s, listeners: map[int]func(Settings){}}, nil
}

//Settings returns a copy of the current settings
func (st *Store) Settings() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.settings
}

func (st *Store) EvolutionSpeed() int {
	return st.Settings().EvolutionSpeed
}

func (st *Store) SetEvolutionSpeed(speed int) error {
	return st.change(func(s *Settings) { s.EvolutionSpeed = speed })
}

func (st *Store) Animated() bool {
	return st.Settings().Animated
}

func (st *Store) SetAnimated(animated bool) error {
	return st.change(func(s *Settings) { s.Animated = animated })
}

func (st *Store) CorpseFreezeRate() float64 {
	return st.Settings().CorpseFreezeRate
}

func (st *Store) SetCorpseFreezeRate(rate float64) error {
	return st.change(func(s *Settings) { s.CorpseFreezeRate = rate })
}

//Update replaces all settings at once
func (st *Store) Update(s Settings) error {
	return st.change(func(cur *Settings) { *cur = s })
}

//OnChange registers fn to be called with the new settings after every effective change
//the returned func unregisters it
func (st *Store) OnChange(fn func(Settings)) (cancel func()) {
	st.mu.Lock()
	id := st.nextID
	st.nextID++
	st.listeners[id] = fn
	st.mu.Unlock()
	return func() {
		st.mu.Lock()
		delete(st.listeners, id)
		st.mu.Unlock()
	}
}

//change applies fn to a copy, validates it, stores it and notifies the listeners outside the lock
func (st *Store) change(fn func(*Settings)) error {
	st.mu.Lock()
	next := st.settings
	fn(&next)
	if err := next.Validate(); err != nil {
		st.mu.Unlock()
		return err
	}
	if next == st.settings {
		st.mu.Unlock()
		return nil
	}
	st.settings = next
	listeners := make([]func(Settings), 0, len(st.listeners))
	for _, l := range st.listeners {
		listeners = append(listeners, l)
	}
	st.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return nil
}
