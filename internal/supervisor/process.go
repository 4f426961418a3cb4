package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/danmuck/fmtrelay/internal/observability"
	"github.com/danmuck/fmtrelay/internal/resolver"
)

const (
	chunkSize    = 32 * 1024
	eventBacklog = 64
)

var ErrEmptyCommand = errors.New("supervisor: empty command")

// Process is one running tool invocation.
type Process struct {
	id      string
	cmd     *exec.Cmd
	started time.Time
	events  chan Event
	done    chan struct{}
	exit    ExitStatus
	onExit  func(ExitStatus)
}

// Start spawns command and returns once the process is running. Canceling ctx
// kills the process (its whole group when detached). onExit runs after the
// exit event has been delivered and the event channel closed.
func Start(ctx context.Context, id string, command resolver.Command, onExit func(ExitStatus)) (*Process, error) {
	if command.Name == "" {
		return nil, ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, command.Name, command.Args...)
	cmd.Dir = command.Options.Dir
	if len(command.Options.Env) > 0 {
		cmd.Env = append(os.Environ(), command.Options.Env...)
	}
	if command.Options.Detached {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		cmd.Cancel = func() error {
			return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("supervisor: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("supervisor: stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &Process{
		id:      id,
		cmd:     cmd,
		started: time.Now(),
		events:  make(chan Event, eventBacklog),
		done:    make(chan struct{}),
		onExit:  onExit,
	}
	observability.ProcessStarted()
	log.Debug().
		Str("id", id).
		Str("command", command.Name).
		Strs("args", command.Args).
		Int("pid", cmd.Process.Pid).
		Msg("process started")

	go p.run(stdout, stderr)
	return p, nil
}

func (p *Process) ID() string {
	return p.id
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Events yields output chunks in read order, then one exit event.
func (p *Process) Events() <-chan Event {
	return p.events
}

// Done is closed after the exit hook has returned.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Exit is valid once Done is closed.
func (p *Process) Exit() ExitStatus {
	<-p.done
	return p.exit
}

func (p *Process) run(stdout, stderr io.Reader) {
	defer close(p.done)

	var g errgroup.Group
	g.Go(func() error { return p.pump(Stdout, stdout) })
	g.Go(func() error { return p.pump(Stderr, stderr) })
	if err := g.Wait(); err != nil {
		log.Warn().Str("id", p.id).Err(err).Msg("process output read failed")
	}

	waitErr := p.cmd.Wait()
	p.exit = exitStatus(p.cmd.ProcessState, waitErr)
	observability.ProcessExited(p.exit.Code, time.Since(p.started))
	log.Debug().
		Str("id", p.id).
		Int("exit_code", p.exit.Code).
		Bool("abnormal", p.exit.Abnormal).
		Dur("duration", time.Since(p.started)).
		Msg("process exited")

	exit := p.exit
	p.events <- Event{Exit: &exit}
	close(p.events)

	if p.onExit != nil {
		p.onExit(exit)
	}
}

func (p *Process) pump(stream Stream, r io.Reader) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			observability.RecordStreamBytes(stream.String(), n)
			p.events <- Event{Stream: stream, Data: chunk}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("%s: %w", stream, err)
		}
	}
}

func exitStatus(state *os.ProcessState, waitErr error) ExitStatus {
	if state == nil {
		return ExitStatus{Code: -1, Abnormal: true, Err: waitErr}
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ExitStatus{Code: -1, Signal: ws.Signal().String(), Abnormal: true}
	}
	return ExitStatus{Code: state.ExitCode()}
}
