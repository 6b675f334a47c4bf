package dice

import (
	"fmt"
	"sync"
)

// ScriptedRoller replays a fixed sequence of roll results. Each call to
// RollSum consumes one queued value regardless of n and sides, so a 3d20
// resolution scripted as three single d20 draws consumes three values.
// Intended for tests and for replaying logged touches.
type ScriptedRoller struct {
	mu    sync.Mutex
	queue []int
}

// NewScriptedRoller queues the given results in order.
func NewScriptedRoller(results ...int) *ScriptedRoller {
	return &ScriptedRoller{queue: append([]int(nil), results...)}
}

// Push appends more results to the script.
func (s *ScriptedRoller) Push(results ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, results...)
}

func (s *ScriptedRoller) RollSum(n, sides int) (int, error) {
	if n < 1 || sides < 1 {
		return 0, ErrInvalidSpec
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return 0, fmt.Errorf("scripted roller exhausted (wanted %dd%d)", n, sides)
	}
	v := s.queue[0]
	s.queue = s.queue[1:]
	return v, nil
}

// Remaining reports how many scripted results are left unconsumed.
func (s *ScriptedRoller) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
