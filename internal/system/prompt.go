package system

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Prompter asks the user a yes/no question. The engine consults it before
// cascading enables/disables across services.
type Prompter interface {
	ConfirmYesNo(message string) bool
}

// StdinPrompter reads the answer from an input stream, defaulting to "no"
// on EOF or unrecognised input.
type StdinPrompter struct {
	In  io.Reader
	Out io.Writer
}

func NewStdinPrompter() *StdinPrompter {
	return &StdinPrompter{In: os.Stdin, Out: os.Stdout}
}

func (p *StdinPrompter) ConfirmYesNo(message string) bool {
	fmt.Fprintf(p.Out, "%s (y/N) ", message)
	reader := bufio.NewReader(p.In)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// AssumeYesPrompter answers yes to everything without blocking. Used when
// --assume-yes is passed.
type AssumeYesPrompter struct{}

func (AssumeYesPrompter) ConfirmYesNo(string) bool { return true }
