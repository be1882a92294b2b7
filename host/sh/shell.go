// Package sh provides the ishell backed interactive shell used by the desktop tools.
package sh

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"
)

const stateKey = "$state"

var evalOnly bool

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
}

// Shell wraps an ishell.Shell carrying a tool specific state value.
type Shell struct {
	Interactive bool
	Shell       *ishell.Shell
}

// New creates a shell with prompt, state reachable from commands through StateFrom,
// and the given commands.
func New(prompt string, state interface{}, cmds ...*ishell.Cmd) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Shell:       ishell.New(),
	}
	s.Shell.Set(stateKey, state)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range cmds {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// StateFrom gets the state value from an ishell context.
func StateFrom(c *ishell.Context) interface{} {
	return c.Get(stateKey)
}

// Printf prints through the shell so output does not garble the prompt.
func (s *Shell) Printf(format string, args ...interface{}) {
	s.Shell.Printf(format, args...)
}

// Run processes args as one command when given, otherwise runs the interactive shell.
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if s.Interactive {
		s.Shell.Run()
	}
	return nil
}

// ByteArg parses c.Args[i] as a byte value in decimal or 0x hex.
func ByteArg(c *ishell.Context, i int) (byte, error) {
	if len(c.Args) <= i {
		return 0, fmt.Errorf("missing argument %d", i+1)
	}
	return ParseByte(c.Args[i])
}

// ParseByte parses s as a byte value in decimal or 0x hex.
func ParseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", s)
	}
	return byte(v), nil
}
