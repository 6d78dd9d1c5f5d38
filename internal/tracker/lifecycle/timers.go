package lifecycle

// timerKind identifies one of the stage-owned countdowns.
type timerKind string

const (
	timerMoving      timerKind = "moving"
	timerArrivedGate timerKind = "arrived_gate"
	timerAutoStart   timerKind = "auto_start"
	timerWaiting     timerKind = "waiting"
	timerWorking     timerKind = "working"
)

// countdown is a once-per-second countdown. onExpire fires exactly once;
// the fired guard protects against double firing when ticks overlap.
type countdown struct {
	remaining int
	fired     bool
	onExpire  func()
}

// timerSet holds the countdowns owned by the current stage. Entering a
// new stage must cancel the whole set before arming new timers; leaked
// timers are the dominant source of duplicate side effects.
type timerSet struct {
	active map[timerKind]*countdown
}

func newTimerSet() *timerSet {
	return &timerSet{active: make(map[timerKind]*countdown)}
}

// start arms a countdown, replacing any existing one of the same kind.
// A non-positive duration fires on the next tick.
func (s *timerSet) start(kind timerKind, seconds int, onExpire func()) {
	if seconds < 0 {
		seconds = 0
	}
	s.active[kind] = &countdown{remaining: seconds, onExpire: onExpire}
}

func (s *timerSet) cancel(kind timerKind) {
	delete(s.active, kind)
}

func (s *timerSet) cancelAll() {
	s.active = make(map[timerKind]*countdown)
}

// remaining returns the seconds left, or -1 when the timer is not armed.
func (s *timerSet) remaining(kind timerKind) int {
	c, ok := s.active[kind]
	if !ok {
		return -1
	}
	return c.remaining
}

// expired reports whether the timer ran to zero. An unarmed timer counts
// as expired so gates never wedge a stage that skipped arming one.
func (s *timerSet) expired(kind timerKind) bool {
	c, ok := s.active[kind]
	if !ok {
		return true
	}
	return c.remaining <= 0
}

func (s *timerSet) count() int {
	return len(s.active)
}

// tick advances every armed countdown by one second and fires expiries.
// Expired timers stay armed so expired() keeps answering until the stage
// changes and cancels them.
func (s *timerSet) tick() {
	for _, c := range s.active {
		if c.remaining > 0 {
			c.remaining--
		}
		if c.remaining <= 0 && !c.fired {
			c.fired = true
			if c.onExpire != nil {
				c.onExpire()
			}
		}
	}
}
