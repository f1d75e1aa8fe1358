// Package motion provides the robot's postures and looping motion routines.
//
// A Sequencer runs at most one routine at a time. Starting a routine stops the
// current one first, and Stop does not return until the stopped routine's
// goroutine has exited, so no command from an old routine can follow a newer one.
package motion

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/mlsorensen/purpleeye"
)

// Writer sends servo commands to a robot. purpleeye.Robot satisfies it.
type Writer interface {
	WriteServos(ctx context.Context, cmd purpleeye.ServoCommand) error
}

// Postures.
var (
	Spread = purpleeye.ServoCommand{RightLeg: 110, RightFoot: 94, LeftFoot: 86, LeftLeg: 70}
	Stand  = purpleeye.ServoCommand{RightLeg: 90, RightFoot: 90, LeftFoot: 90, LeftLeg: 90}
	Rest   = purpleeye.ServoCommand{}
)

// State is the routine a Sequencer is running.
type State int

const (
	Idle State = iota
	Shimmying
	Dancing
)

func (s State) String() string {
	switch s {
	case Shimmying:
		return "shimmying"
	case Dancing:
		return "dancing"
	default:
		return "idle"
	}
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithStepDelay waits d between routine steps. The default of zero sends the next
// step as soon as the previous write completes.
func WithStepDelay(d time.Duration) Option {
	return func(s *Sequencer) {
		s.stepDelay = d
	}
}

// WithErrorHandler is called for every failed write inside a routine. The
// routine keeps running afterwards unless the robot is no longer connected.
func WithErrorHandler(f func(State, error)) Option {
	return func(s *Sequencer) {
		s.onError = f
	}
}

// Sequencer drives the postures and routines of one robot.
type Sequencer struct {
	w         Writer
	stepDelay time.Duration
	onError   func(State, error)

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

func New(w Writer, opts ...Option) *Sequencer {
	s := &Sequencer{
		w: w,
		onError: func(state State, err error) {
			log.Printf("Error when writing value while %s: %v", state, err)
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the running routine, or Idle when none is running.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		select {
		case <-s.done:
			// Ended by its parent context.
			return Idle
		default:
		}
	}
	return s.state
}

// Spread writes the spread posture. A running routine is not stopped.
func (s *Sequencer) Spread(ctx context.Context) error {
	if err := s.w.WriteServos(ctx, Spread); err != nil {
		return err
	}
	log.Println("Spread successful")
	return nil
}

// Stand writes the standing posture. A running routine is not stopped.
func (s *Sequencer) Stand(ctx context.Context) error {
	if err := s.w.WriteServos(ctx, Stand); err != nil {
		return err
	}
	log.Println("Stand successful")
	return nil
}

// Rest stops any routine, then relaxes all servos. The rest command is always
// the last one written.
func (s *Sequencer) Rest(ctx context.Context) error {
	s.Stop()
	if err := s.w.WriteServos(ctx, Rest); err != nil {
		return err
	}
	log.Println("Rest successful")
	return nil
}

// Shimmy alternates between standing and spread, starting with standing, until
// stopped or ctx is done.
func (s *Sequencer) Shimmy(ctx context.Context) {
	s.start(ctx, Shimmying, newShimmy().next)
}

// Dance sweeps all four servos together around 90 degrees until stopped or ctx
// is done.
func (s *Sequencer) Dance(ctx context.Context) {
	s.start(ctx, Dancing, newDance().next)
}

// Stop ends the running routine and waits for it to exit. A write in flight is
// abandoned through its context.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	cancel, done := s.detachLocked()
	s.mu.Unlock()

	// mu is released first: the routine may call State from its error handler.
	if cancel != nil {
		cancel()
		<-done
	}
}

// detachLocked moves the sequencer to Idle and hands back the running routine,
// if any, for the caller to cancel and wait on.
func (s *Sequencer) detachLocked() (context.CancelFunc, chan struct{}) {
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.done = nil
	s.state = Idle
	return cancel, done
}

// start is the only transition into a running state. The new routine does not
// write until the one it replaces has exited.
func (s *Sequencer) start(ctx context.Context, state State, next func() purpleeye.ServoCommand) {
	s.mu.Lock()
	prevCancel, prevDone := s.detachLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.state = state
	s.cancel = cancel
	s.done = done

	go s.run(loopCtx, state, next, prevDone, done)
	s.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}
}

func (s *Sequencer) run(ctx context.Context, state State, next func() purpleeye.ServoCommand, prev <-chan struct{}, done chan struct{}) {
	defer close(done)

	if prev != nil {
		<-prev
	}

	for ctx.Err() == nil {
		if err := s.w.WriteServos(ctx, next()); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.onError(state, err)
			if errors.Is(err, purpleeye.ErrNotConnected) {
				return
			}
		}

		if s.stepDelay > 0 {
			select {
			case <-time.After(s.stepDelay):
			case <-ctx.Done():
				return
			}
		}
	}
}

type shimmySteps struct {
	standing bool
}

func newShimmy() *shimmySteps {
	return &shimmySteps{standing: true}
}

func (s *shimmySteps) next() purpleeye.ServoCommand {
	cmd := Spread
	if s.standing {
		cmd = Stand
	}
	s.standing = !s.standing
	return cmd
}

const (
	danceCenter = 90
	danceStep   = 5
	// danceLimit is checked after stepping, so the sweep reaches one step past it
	// before turning around.
	danceLimit = 25
)

type danceSteps struct {
	delta     int
	direction int
}

func newDance() *danceSteps {
	return &danceSteps{direction: 1}
}

func (d *danceSteps) next() purpleeye.ServoCommand {
	d.delta += danceStep * d.direction
	if d.delta > danceLimit || d.delta < -danceLimit {
		d.direction = -d.direction
	}
	angle := int8(danceCenter + d.delta)
	return purpleeye.ServoCommand{RightLeg: angle, RightFoot: angle, LeftFoot: angle, LeftLeg: angle}
}
