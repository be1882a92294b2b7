package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"callbell/appliance"
	apcfg "callbell/appliance/config"
	"callbell/core"
	"callbell/sim"
)

// plannedReply is the answer given to the next call.
type plannedReply struct {
	code  byte
	polls int
}

// simulator runs an appliance against simulated hardware.
type simulator struct {
	app   *appliance.Appliance
	cfg   *apcfg.Config
	board *sim.Board
	ctrl  *sim.Controller
	link  *sim.Link
	clock *sim.Clock // nil in realtime mode

	mu      sync.Mutex
	planned *plannedReply
}

func newSimulator(cfg *apcfg.Config, realtime bool) (*simulator, error) {
	s := &simulator{
		cfg:   cfg,
		board: sim.NewBoard(),
		link:  sim.NewLink(),
	}
	pins := cfg.LCDPins()
	s.ctrl = sim.NewController(s.board, sim.ControllerPins{
		RS: pins.RS,
		RW: pins.RW,
		EN: pins.EN,
		DB: [4]core.GPIOPin{pins.DB4, pins.DB5, pins.DB6, pins.DB7},
	})

	app, err := appliance.NewApplianceWithConfig(cfg)
	if err != nil {
		return nil, err
	}
	if realtime {
		app.SetDelay(time.Sleep)
	} else {
		s.clock = sim.NewClock()
		app.SetDelay(s.clock.Sleep)
	}
	if err := app.Initialize(s.board, s.link); err != nil {
		return nil, err
	}
	s.app = app
	s.link.OnSend(s.sent)
	return s, nil
}

// start powers the appliance up. In realtime mode the service loop runs until ctx ends.
func (s *simulator) start(ctx context.Context) error {
	if err := s.app.Start(); err != nil {
		return err
	}
	if s.clock == nil {
		go func() {
			if err := s.app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				glog.Errorf("appliance stopped: %v", err)
			}
		}()
	}
	return nil
}

// sent schedules the planned reply once the call byte goes out.
func (s *simulator) sent(b byte) {
	if b != byte(s.cfg.Session.NotifyByte) {
		return
	}
	s.mu.Lock()
	p := s.planned
	s.planned = nil
	s.mu.Unlock()
	if p == nil {
		return
	}
	glog.V(1).Infof("replying %d after %d polls", p.code, p.polls)
	s.link.ReplyAfter(p.polls, p.code)
}

// planReply arms a reply for the next call.
func (s *simulator) planReply(code byte, polls int) {
	if polls < 1 {
		polls = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planned = &plannedReply{code: code, polls: polls}
}

// inject makes code receivable immediately.
func (s *simulator) inject(code byte) {
	s.link.Inject(code)
}

// press operates the push button. With a virtual clock the whole session runs before
// press returns and the result reports whether one ran.
func (s *simulator) press() bool {
	pin, edge := s.cfg.ButtonPin()
	if edge == core.EdgeRising {
		s.board.Drive(pin, true)
	} else {
		s.board.Drive(pin, false)
	}
	s.board.Release(pin)

	if s.clock == nil {
		return true
	}
	return s.app.Poll()
}

// elapsed is the virtual time since power up, zero in realtime mode.
func (s *simulator) elapsed() time.Duration {
	if s.clock == nil {
		return 0
	}
	return s.clock.Elapsed()
}

func (s *simulator) screen() string {
	return s.ctrl.Dump(s.cfg.Display.Width)
}
