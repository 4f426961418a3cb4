package supervisor

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/fmtrelay/internal/resolver"
	"github.com/danmuck/fmtrelay/internal/testutil/testlog"
)

func shell(script string) resolver.Command {
	return resolver.Command{Name: "/bin/sh", Args: []string{"-c", script}}
}

func collect(t *testing.T, p *Process) (string, string, ExitStatus) {
	t.Helper()
	var stdout, stderr strings.Builder
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev, ok := <-p.Events():
			if !ok {
				t.Fatalf("event channel closed before exit event")
			}
			if ev.IsExit() {
				if _, more := <-p.Events(); more {
					t.Fatalf("event after exit")
				}
				return stdout.String(), stderr.String(), *ev.Exit
			}
			switch ev.Stream {
			case Stdout:
				stdout.Write(ev.Data)
			case Stderr:
				stderr.Write(ev.Data)
			default:
				t.Fatalf("unexpected stream: %v", ev.Stream)
			}
		case <-timeout:
			t.Fatalf("timed out waiting for process %s", p.ID())
		}
	}
}

func TestStartStreamsStdoutAndExit(t *testing.T) {
	testlog.Start(t)
	p, err := Start(context.Background(), "p1", shell("printf hello"), nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	stdout, stderr, exit := collect(t, p)
	if stdout != "hello" || stderr != "" {
		t.Fatalf("unexpected output: stdout=%q stderr=%q", stdout, stderr)
	}
	if exit.Code != 0 || exit.Abnormal {
		t.Fatalf("unexpected exit: %+v", exit)
	}
}

func TestStartReportsNonZeroExitAndStderr(t *testing.T) {
	testlog.Start(t)
	p, err := Start(context.Background(), "p2", shell("echo oops >&2; exit 1"), nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	_, stderr, exit := collect(t, p)
	if stderr != "oops\n" {
		t.Fatalf("unexpected stderr: %q", stderr)
	}
	if exit.Code != 1 || exit.Abnormal {
		t.Fatalf("unexpected exit: %+v", exit)
	}
}

func TestStartFailureAttachesNothing(t *testing.T) {
	testlog.Start(t)
	called := false
	p, err := Start(context.Background(), "p3", resolver.Command{Name: "/definitely/not/a/tool"}, func(ExitStatus) {
		called = true
	})
	if err == nil {
		t.Fatalf("expected spawn error")
	}
	if p != nil {
		t.Fatalf("expected nil process on spawn failure")
	}
	if called {
		t.Fatalf("exit hook must not run for a process that never started")
	}

	if _, err := Start(context.Background(), "p4", resolver.Command{}, nil); !errors.Is(err, ErrEmptyCommand) {
		t.Fatalf("expected ErrEmptyCommand, got %v", err)
	}
	if _, err := Start(context.Background(), "p5", resolver.Command{Name: "no-such-binary-on-path"}, nil); !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected exec.ErrNotFound, got %v", err)
	}
}

func TestExitHookRunsAfterExitEvent(t *testing.T) {
	testlog.Start(t)
	hook := make(chan ExitStatus, 1)
	p, err := Start(context.Background(), "p6", shell("exit 3"), func(st ExitStatus) {
		hook <- st
	})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	_, _, exit := collect(t, p)
	select {
	case st := <-hook:
		if st.Code != 3 || exit.Code != 3 {
			t.Fatalf("unexpected codes: hook=%d event=%d", st.Code, exit.Code)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("exit hook did not run")
	}
	<-p.Done()
	if p.Exit().Code != 3 {
		t.Fatalf("unexpected recorded exit: %+v", p.Exit())
	}
}

func TestStartUsesOptions(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	cmd := shell(`printf "%s|%s" "$(pwd)" "$RELAY_TEST_VAR"`)
	cmd.Options = resolver.Options{Dir: dir, Env: []string{"RELAY_TEST_VAR=set"}, Detached: true}

	p, err := Start(context.Background(), "p7", cmd, nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	stdout, _, exit := collect(t, p)
	if exit.Code != 0 {
		t.Fatalf("unexpected exit: %+v", exit)
	}
	parts := strings.SplitN(stdout, "|", 2)
	if len(parts) != 2 || !strings.HasSuffix(parts[0], dir) || parts[1] != "set" {
		t.Fatalf("unexpected output: %q (dir %q)", stdout, dir)
	}
}

func TestCancelKillsDetachedProcessGroup(t *testing.T) {
	testlog.Start(t)
	ctx, cancel := context.WithCancel(context.Background())
	cmd := shell("sleep 30 & wait")
	cmd.Options.Detached = true

	p, err := Start(ctx, "p8", cmd, nil)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	cancel()
	_, _, exit := collect(t, p)
	if !exit.Abnormal || exit.Code != -1 {
		t.Fatalf("expected abnormal exit, got %+v", exit)
	}
	if exit.Signal == "" {
		t.Fatalf("expected signal name in exit status")
	}
}
