// Package sequence executes scripts in document order while their contents
// arrive in any order.
//
// Every descriptor owns a slot. NotifyLoaded fills a slot and drains: from
// the cursor upwards each loaded slot is executed and the cursor advances;
// the first slot still pending stops the drain. A slot is executed at most
// once and slots are executed strictly by position.
package sequence

import (
	"errors"
	"fmt"
	"sync"

	"jsxhost/internal/script"
)

// ExecFunc runs the content of the slot at position. It is called with the
// sequencer locked and must not call back into it.
type ExecFunc func(position int, content, url string) error

// Policy decides what an execution failure does to later slots.
type Policy uint8

const (
	// FailFast stops the run at the failing slot; nothing after it executes.
	FailFast Policy = iota
	// Isolate marks the failing slot Failed and keeps draining.
	Isolate
)

func (p Policy) String() string {
	if p == Isolate {
		return "isolate"
	}
	return "fail-fast"
}

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "fail-fast", "failfast":
		return FailFast, nil
	case "isolate":
		return Isolate, nil
	}
	return FailFast, fmt.Errorf("unknown failure policy %q (want fail-fast or isolate)", s)
}

var ErrUnknownSlot = errors.New("unknown script slot")

// AbortError is returned by every call after a fail-fast failure. Its
// message is the failure's own message.
type AbortError struct {
	Position int
	Err      error
}

func (e *AbortError) Error() string {
	return e.Err.Error()
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// Failure is an isolated execution failure.
type Failure struct {
	Position int
	Err      error
}

type slot struct {
	state   script.State
	content string
	url     string
}

type Sequencer struct {
	mu       sync.Mutex
	slots    []slot
	cursor   int
	exec     ExecFunc
	policy   Policy
	abort    *AbortError
	order    []int
	failures []Failure
}

func New(descs []script.Descriptor, exec ExecFunc, policy Policy) *Sequencer {
	return &Sequencer{
		slots:  make([]slot, len(descs)),
		exec:   exec,
		policy: policy,
		order:  make([]int, 0, len(descs)),
	}
}

// NotifyLoaded records the content of the slot at position and drains.
// A repeated notification for a slot that is no longer pending changes
// nothing. After a fail-fast abort it returns the same *AbortError.
func (s *Sequencer) NotifyLoaded(position int, content, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.abort != nil {
		return s.abort
	}
	if position < 0 || position >= len(s.slots) {
		return fmt.Errorf("%w: %d (have %d)", ErrUnknownSlot, position, len(s.slots))
	}
	sl := &s.slots[position]
	if sl.state != script.Pending {
		return nil
	}
	if err := script.Transition(sl.state, script.Loaded); err != nil {
		return err
	}
	sl.state = script.Loaded
	sl.content = content
	sl.url = url
	return s.drainLocked()
}

// Drain executes the ready prefix starting at the cursor.
func (s *Sequencer) Drain() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.abort != nil {
		return s.abort
	}
	return s.drainLocked()
}

func (s *Sequencer) drainLocked() error {
	for s.cursor < len(s.slots) {
		pos := s.cursor
		sl := &s.slots[pos]
		switch sl.state {
		case script.Pending:
			return nil
		case script.Executed, script.Failed:
			s.cursor++
			continue
		}

		if err := s.exec(pos, sl.content, sl.url); err != nil {
			if s.policy == Isolate {
				sl.state = script.Failed
				s.failures = append(s.failures, Failure{Position: pos, Err: err})
				s.cursor++
				continue
			}
			// слот остаётся Loaded, курсор не двигается
			s.abort = &AbortError{Position: pos, Err: err}
			return s.abort
		}
		sl.state = script.Executed
		// содержимое больше не нужно
		sl.content = ""
		s.order = append(s.order, pos)
		s.cursor++
	}
	return nil
}

// Len is the number of slots.
func (s *Sequencer) Len() int {
	return len(s.slots)
}

// Done reports whether every slot has been processed.
func (s *Sequencer) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor == len(s.slots)
}

func (s *Sequencer) Cursor() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Aborted returns the fail-fast abort, or nil.
func (s *Sequencer) Aborted() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.abort == nil {
		return nil
	}
	return s.abort
}

// Snapshot returns the state of every slot.
func (s *Sequencer) Snapshot() []script.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]script.State, len(s.slots))
	for i := range s.slots {
		out[i] = s.slots[i].state
	}
	return out
}

// Order returns positions in the order they were executed successfully.
func (s *Sequencer) Order() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.order...)
}

func (s *Sequencer) Failures() []Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Failure(nil), s.failures...)
}

// Unexecuted lists positions that neither executed nor failed in isolation.
// After an abort this includes the failing slot and everything after it.
func (s *Sequencer) Unexecuted() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for i := range s.slots {
		if !s.slots[i].state.IsTerminal() {
			out = append(out, i)
		}
	}
	return out
}
