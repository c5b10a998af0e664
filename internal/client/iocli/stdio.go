package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Stdio is IO over the process stdin and stdout
type Stdio struct {
	in         *bufio.Reader
	out        io.Writer
	isTerminal func(fd int) bool
}

// NewStdio returns IO bound to os.Stdin and os.Stdout
func NewStdio() IO {
	return &Stdio{
		in:         bufio.NewReader(os.Stdin),
		out:        os.Stdout,
		isTerminal: term.IsTerminal,
	}
}

func (s *Stdio) Println(a ...any) {
	fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	input, err := s.in.ReadString('\n')
	if err != nil && (err != io.EOF || input == "") {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// ReadPassword reads without echo when stdin is a terminal, and falls back
// to a plain line read for piped input.
func (s *Stdio) ReadPassword(prompt string) (string, error) {
	s.Printf("%s", prompt)

	fd := int(os.Stdin.Fd())
	if !s.isTerminal(fd) {
		input, err := s.in.ReadString('\n')
		s.Println("")
		if err != nil && (err != io.EOF || input == "") {
			return "", err
		}
		return strings.TrimRight(input, "\r\n"), nil
	}

	pwBytes, err := term.ReadPassword(fd)
	s.Println("")
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}
