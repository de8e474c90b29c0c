package checkpoint

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"golang.org/x/sys/unix"
)

// Signals holds the two monotone signal-driven flags: checkpoint_alarm
// (checkpoint and continue) and checkpoint_and_end (checkpoint and
// exit). The reader goroutine started by newSignals only ever
// increments these atomics — no allocation, no filesystem access, no
// locks — so signal handling never does anything but
// flag-set/counter-increment work.
type Signals struct {
	alarm  atomic.Int32
	andEnd atomic.Int32

	ch   chan os.Signal
	done chan struct{}

	timerArmed bool
}

func newSignals() *Signals {
	s := &Signals{
		ch:   make(chan os.Signal, 8),
		done: make(chan struct{}),
	}
	signal.Notify(s.ch, syscall.SIGALRM, syscall.SIGVTALRM, syscall.SIGINT, syscall.SIGHUP)
	go s.loop()
	return s
}

func (s *Signals) loop() {
	for {
		select {
		case sig := <-s.ch:
			switch sig {
			case syscall.SIGALRM, syscall.SIGVTALRM:
				bumpClamped(&s.alarm)
			case syscall.SIGINT, syscall.SIGHUP:
				bumpClamped(&s.andEnd)
			}
		case <-s.done:
			return
		}
	}
}

// bumpClamped increments c, clamping wrap-around back to 1 instead of
// 0 or negative.
func bumpClamped(c *atomic.Int32) {
	for {
		v := c.Load()
		next := v + 1
		if next <= 0 {
			next = 1
		}
		if c.CompareAndSwap(v, next) {
			return
		}
	}
}

// CheckpointRequested reports whether checkpoint_alarm is set.
func (s *Signals) CheckpointRequested() bool { return s.alarm.Load() != 0 }

// EndRequested reports whether checkpoint_and_end is set.
func (s *Signals) EndRequested() bool { return s.andEnd.Load() != 0 }

// ClearAlarm clears checkpoint_alarm after a successful checkpoint
// write.
func (s *Signals) ClearAlarm() { s.alarm.Store(0) }

// ArmPeriodic arms the virtual-time interval timer used for
// chkpt_secs > 0: every secs seconds of process virtual time,
// SIGVTALRM fires and checkpoint_alarm is incremented.
func (s *Signals) ArmPeriodic(secs int) error {
	it := unix.Itimerval{
		Interval: unix.Timeval{Sec: int64(secs)},
		Value:    unix.Timeval{Sec: int64(secs)},
	}
	if _, err := unix.Setitimer(unix.ITIMER_VIRTUAL, it); err != nil {
		return err
	}
	s.timerArmed = true
	return nil
}

// Stop disarms the periodic timer (if any) and stops signal delivery.
// Safe to call multiple times.
func (s *Signals) Stop() {
	if s.timerArmed {
		unix.Setitimer(unix.ITIMER_VIRTUAL, unix.Itimerval{}) //nolint:errcheck
		s.timerArmed = false
	}
	signal.Stop(s.ch)
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
