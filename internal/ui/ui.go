package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Level classifies a user-visible notice.
type Level int

const (
	Info Level = iota
	Success
	Warning
	Failure
)

func (l Level) String() string {
	switch l {
	case Success:
		return "ok"
	case Warning:
		return "warning"
	case Failure:
		return "error"
	default:
		return "info"
	}
}

// Notifier shows a component-scoped notice to the user.
type Notifier interface {
	Notify(level Level, msg string)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// Terminal talks to the user over a pair of streams.
type Terminal struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
	// AssumeYes answers every confirmation with yes without prompting.
	AssumeYes bool
}

// NewTerminal wraps in and out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

func (t *Terminal) Notify(level Level, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch level {
	case Failure:
		fmt.Fprintf(t.out, "Error: %s\n", msg)
	case Warning:
		fmt.Fprintf(t.out, "Warning: %s\n", msg)
	default:
		fmt.Fprintln(t.out, msg)
	}
}

func (t *Terminal) Confirm(prompt string) bool {
	if t.AssumeYes {
		return true
	}
	answer, err := t.Prompt(prompt + " [y/N]: ")
	if err != nil {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// Prompt writes label and reads one trimmed line. io.EOF is returned once
// input is exhausted and nothing was typed.
func (t *Terminal) Prompt(label string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if label != "" {
		fmt.Fprint(t.out, label)
	}
	line, err := t.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Writer exposes the output stream for rendering.
func (t *Terminal) Writer() io.Writer { return t.out }

// LogNotifier turns notices into log lines, for unattended components.
type LogNotifier struct {
	Log zerolog.Logger
}

func (n LogNotifier) Notify(level Level, msg string) {
	switch level {
	case Failure:
		n.Log.Error().Msg(msg)
	case Warning:
		n.Log.Warn().Msg(msg)
	default:
		n.Log.Info().Str("level_hint", level.String()).Msg(msg)
	}
}

// Notice is one recorded notification.
type Notice struct {
	Level   Level
	Message string
}

// Recorder keeps notices in memory and answers confirmations with Answer.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
	prompts []string
	Answer  bool
}

func (r *Recorder) Notify(level Level, msg string) {
	r.mu.Lock()
	r.notices = append(r.notices, Notice{Level: level, Message: msg})
	r.mu.Unlock()
}

func (r *Recorder) Confirm(prompt string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	return r.Answer
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Last returns the most recent notice.
func (r *Recorder) Last() (Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}, false
	}
	return r.notices[len(r.notices)-1], true
}

// Prompts returns the confirmation questions asked so far.
func (r *Recorder) Prompts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.prompts...)
}
