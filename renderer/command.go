package renderer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"time"
)

const (
	// stderrTail is how much of a child's diagnostic output a session keeps.
	stderrTail = 8 << 10
	// waitDelay bounds how long reaping waits for I/O after the child exits
	// or is killed, in case a grandchild still holds the pipes.
	waitDelay = 5 * time.Second
)

// Command is a Renderer backed by an executable. The document is written to
// the child's stdin and the child's stdout is the session output.
type Command struct {
	name string
	path string
	args func(Options) []string
	env  []string
}

// NewCommand returns a renderer that runs path with args followed by
// Options.ExtraArgs.
func NewCommand(path string, args ...string) *Command {
	fixed := append([]string(nil), args...)
	return &Command{
		name: path,
		path: path,
		args: func(o Options) []string {
			return append(append([]string(nil), fixed...), o.ExtraArgs...)
		},
	}
}

// WithEnv returns a copy of c that runs the child with the given
// environment entries in addition to the parent's.
func (c *Command) WithEnv(env ...string) *Command {
	cp := *c
	cp.env = append(append([]string(nil), c.env...), env...)
	return &cp
}

func (c *Command) Name() string { return c.name }

// Path returns the executable the renderer runs.
func (c *Command) Path() string { return c.path }

// Args returns the argument list used for opts.
func (c *Command) Args(opts Options) []string { return c.args(opts) }

// Available reports whether the executable can be found.
func (c *Command) Available() bool {
	_, err := exec.LookPath(c.path)
	return err == nil
}

// Start spawns the child. Cancelling ctx kills it, which closes the output
// channel.
func (c *Command) Start(ctx context.Context, document []byte, opts Options) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StartError{Renderer: c.name, Err: err}
	}
	cmd := exec.CommandContext(ctx, c.path, c.args(opts)...)
	if len(c.env) > 0 {
		cmd.Env = append(cmd.Environ(), c.env...)
	}
	cmd.WaitDelay = waitDelay
	cmd.Stdin = bytes.NewReader(document)
	stderr := &tailBuffer{limit: stderrTail}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &StartError{Renderer: c.name, Err: err}
	}
	if err := cmd.Start(); err != nil {
		return nil, &StartError{Renderer: c.name, Err: err}
	}
	return &commandSession{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type commandSession struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *tailBuffer

	once     sync.Once
	code     int
	err      error
	trailing int64
}

func (s *commandSession) Output() io.Reader { return s.stdout }
func (s *commandSession) Stderr() string    { return s.stderr.String() }

func (s *commandSession) Wait() (int, error) {
	s.reap(false)
	return s.code, s.err
}

func (s *commandSession) Close() error {
	s.reap(true)
	return nil
}

// Trailing returns the number of output bytes Wait discarded.
func (s *commandSession) Trailing() int64 { return s.trailing }

// reap waits for the child exactly once. With kill set the child is
// terminated first; otherwise its remaining output is drained so it cannot
// block on a full pipe.
func (s *commandSession) reap(kill bool) {
	s.once.Do(func() {
		if kill {
			_ = s.cmd.Process.Kill()
		} else {
			s.trailing, _ = io.Copy(io.Discard, s.stdout)
		}
		s.code, s.err = exitStatus(s.cmd.Wait())
	})
}

func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode(), nil
	}
	return -1, err
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := len(p)
	if len(p) >= b.limit {
		b.buf = append(b.buf[:0], p[len(p)-b.limit:]...)
		return n, nil
	}
	if over := len(b.buf) + len(p) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	b.buf = append(b.buf, p...)
	return n, nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
