package process

import (
	"context"
	"strings"
	"sync"
)

// Fake is a scripted Executor. Responses are keyed by the command line
// (Command.String) or, failing that, by the executable path alone. Commands
// without a scripted response exit 0 with no output. One-shot responses
// registered with Once take precedence and are consumed in order.
type Fake struct {
	mu        sync.Mutex
	responses map[string]FakeResponse
	once      map[string][]FakeResponse
	calls     []Command
}

// FakeResponse is what the fake returns for a matching command.
type FakeResponse struct {
	ExitCode int
	Stdout   string
	Err      error
}

// Compile-time interface satisfaction check.
var _ Executor = (*Fake)(nil)

// NewFake creates an empty scripted executor.
func NewFake() *Fake {
	return &Fake{
		responses: make(map[string]FakeResponse),
		once:      make(map[string][]FakeResponse),
	}
}

// On registers a response for a command line or bare executable path.
func (f *Fake) On(key string, resp FakeResponse) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key] = resp
	return f
}

// Once queues a response used for a single matching call.
func (f *Fake) Once(key string, resp FakeResponse) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.once[key] = append(f.once[key], resp)
	return f
}

// Run records the call and returns the scripted response.
func (f *Fake) Run(ctx context.Context, cmd Command) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cmd.Args = append([]string(nil), cmd.Args...)
	f.calls = append(f.calls, cmd)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	resp := f.lookup(cmd)
	if resp.Err != nil {
		return Result{}, resp.Err
	}

	res := Result{ExitCode: resp.ExitCode}
	if cmd.Capture {
		res.Stdout = []byte(resp.Stdout)
	}
	return res, nil
}

func (f *Fake) lookup(cmd Command) FakeResponse {
	for _, key := range []string{cmd.String(), cmd.Path} {
		if queued := f.once[key]; len(queued) > 0 {
			f.once[key] = queued[1:]
			return queued[0]
		}
	}
	if resp, ok := f.responses[cmd.String()]; ok {
		return resp
	}
	return f.responses[cmd.Path]
}

// Calls returns every command run so far, in order.
func (f *Fake) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

// CallLines returns Calls rendered as command lines.
func (f *Fake) CallLines() []string {
	calls := f.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.String()
	}
	return lines
}

// Called reports whether any call's command line starts with prefix.
func (f *Fake) Called(prefix string) bool {
	for _, line := range f.CallLines() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
