package userdata

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// Errors
var (
	ErrNoListenKey = errors.New("no listen key")
	ErrUnknownMode = errors.New("unknown listen key mode")
)

// Mode is a listen key transition.
type Mode int

const (
	Create Mode = iota // POST, NoKey -> Active
	Extend             // PUT, keeps the key alive
	Close              // DELETE, Active -> NoKey
)

func (m Mode) String() string {
	switch m {
	case Create:
		return "create"
	case Extend:
		return "extend"
	case Close:
		return "close"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Method returns the HTTP verb for the transition.
func (m Mode) Method() (string, error) {
	switch m {
	case Create:
		return http.MethodPost, nil
	case Extend:
		return http.MethodPut, nil
	case Close:
		return http.MethodDelete, nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
}

// State is whether a listen key is held.
type State int

const (
	NoKey State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "no_key"
}

// KeyState holds the current listen key. Only the Manager writes it; reads
// are safe from any goroutine.
type KeyState struct {
	mu  sync.RWMutex
	key string
}

// Key returns the listen key, or "" when none is held.
func (s *KeyState) Key() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// Active reports whether a key is held.
func (s *KeyState) Active() bool {
	return s.Key() != ""
}

// State returns NoKey or Active.
func (s *KeyState) State() State {
	if s.Active() {
		return Active
	}
	return NoKey
}

func (s *KeyState) set(key string) {
	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
}

func (s *KeyState) clear() {
	s.set("")
}
