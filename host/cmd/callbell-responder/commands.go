package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"callbell/host/responder"
	"callbell/host/sh"
)

func commands() []*ishell.Cmd {
	return []*ishell.Cmd{
		{
			Name:    "reply",
			Aliases: []string{"r"},
			Help:    "reply CODE|LABEL: answer the waiting call",
			Func: func(c *ishell.Context) {
				r := sh.StateFrom(c).(*responder.Responder)
				if len(c.Args) != 1 {
					c.Err(fmt.Errorf("usage: reply CODE|LABEL"))
					return
				}
				code, err := parseCode(r, c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				if err := r.Reply(code); err != nil {
					c.Err(err)
					return
				}
				c.Printf("sent %d (%s)\n", code, r.Label(code))
			},
		},
		{
			Name:    "status",
			Aliases: []string{"s"},
			Help:    "show the current call and counters",
			Func: func(c *ishell.Context) {
				r := sh.StateFrom(c).(*responder.Responder)
				c.Println(formatStatus(r.Status()))
			},
		},
		{
			Name: "codes",
			Help: "list the reply codes",
			Func: func(c *ishell.Context) {
				r := sh.StateFrom(c).(*responder.Responder)
				for _, code := range r.Codes() {
					c.Printf("%3d  %s\n", code, r.Label(code))
				}
			},
		},
	}
}

// parseCode accepts a numeric code or a case-insensitive label.
func parseCode(r *responder.Responder, arg string) (byte, error) {
	if code, err := sh.ParseByte(arg); err == nil {
		return code, nil
	}
	for _, code := range r.Codes() {
		if strings.EqualFold(r.Label(code), arg) {
			return code, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", responder.ErrUnknownCode, arg)
}

func formatStatus(st responder.Status) string {
	var b strings.Builder
	switch {
	case st.Waiting:
		fmt.Fprintf(&b, "call %d waiting, %v left\n", st.Last.Seq, st.Remaining.Truncate(100*time.Millisecond))
	case st.Last != nil && st.Last.Answered:
		fmt.Fprintf(&b, "call %d answered with %d\n", st.Last.Seq, st.Last.Code)
	case st.Last != nil:
		fmt.Fprintf(&b, "call %d expired\n", st.Last.Seq)
	default:
		b.WriteString("no calls yet\n")
	}
	fmt.Fprintf(&b, "calls=%d replies=%d stray=%d", st.Calls, st.Replies, st.Stray)
	return b.String()
}
