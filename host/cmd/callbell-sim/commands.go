package main

import (
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"callbell/core"
	"callbell/host/sh"
	"callbell/notify"
)

func commands() []*ishell.Cmd {
	return []*ishell.Cmd{
		{
			Name:    "press",
			Aliases: []string{"p"},
			Help:    "press [CODE [POLLS]]: push the button, optionally answering after POLLS polls",
			Func: func(c *ishell.Context) {
				s := sh.StateFrom(c).(*simulator)
				if len(c.Args) > 0 {
					code, polls, err := replyArgs(c.Args)
					if err != nil {
						c.Err(err)
						return
					}
					s.planReply(code, polls)
				}
				if !s.press() {
					c.Println("no session (appliance busy or stopped)")
					return
				}
				c.Print(s.screen())
				c.Println(formatStats(s.app.Machine().Stats()))
			},
		},
		{
			Name: "reply",
			Help: "reply CODE [POLLS]: answer the next call, or now when POLLS is 0",
			Func: func(c *ishell.Context) {
				s := sh.StateFrom(c).(*simulator)
				code, polls, err := replyArgs(c.Args)
				if err != nil {
					c.Err(err)
					return
				}
				if len(c.Args) > 1 && polls == 0 {
					s.inject(code)
					return
				}
				s.planReply(code, polls)
			},
		},
		{
			Name:    "screen",
			Aliases: []string{"lcd"},
			Help:    "show the display contents",
			Func: func(c *ishell.Context) {
				s := sh.StateFrom(c).(*simulator)
				c.Print(s.screen())
			},
		},
		{
			Name: "stats",
			Help: "show the session counters",
			Func: func(c *ishell.Context) {
				s := sh.StateFrom(c).(*simulator)
				c.Println(formatStats(s.app.Machine().Stats()))
				if d := s.elapsed(); d > 0 {
					c.Printf("virtual time %v\n", d)
				}
			},
		},
		{
			Name: "events",
			Help: "dump the event ring",
			Func: func(c *ishell.Context) {
				for _, evt := range core.Events() {
					c.Printf("%-14s session=%d v1=%d v2=%d\n",
						core.EventName(evt.EventType), evt.Session, evt.Value1, evt.Value2)
				}
			},
		},
	}
}

// replyArgs parses CODE [POLLS]. POLLS defaults to 2.
func replyArgs(args []string) (code byte, polls int, err error) {
	if len(args) == 0 || len(args) > 2 {
		return 0, 0, fmt.Errorf("usage: CODE [POLLS]")
	}
	if code, err = sh.ParseByte(args[0]); err != nil {
		return 0, 0, err
	}
	polls = 2
	if len(args) == 2 {
		if polls, err = strconv.Atoi(args[1]); err != nil || polls < 0 {
			return 0, 0, fmt.Errorf("invalid poll count %q", args[1])
		}
	}
	return code, polls, nil
}

func formatStats(st notify.Stats) string {
	return fmt.Sprintf("sessions=%d responded=%d timed_out=%d unknown=%d dropped=%d link_errors=%d last=%d",
		st.Sessions, st.Responded, st.TimedOut, st.UnknownCodes, st.DroppedEdges, st.LinkErrors, st.LastCode)
}
