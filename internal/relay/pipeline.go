package relay

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/danmuck/fmtrelay/internal/filetree"
	"github.com/danmuck/fmtrelay/internal/observability"
	"github.com/danmuck/fmtrelay/internal/resolver"
	"github.com/danmuck/fmtrelay/internal/supervisor"
)

// Pipeline runs submit requests for every session of one server.
type Pipeline struct {
	scratch  *filetree.Scratch
	limits   filetree.Limits
	resolver resolver.Resolver

	// procCtx bounds process lifetimes; it is canceled only on shutdown.
	procCtx context.Context
	running sync.WaitGroup

	materialize func(root string, n filetree.Node) error
}

func NewPipeline(ctx context.Context, scratch *filetree.Scratch, limits filetree.Limits, res resolver.Resolver) *Pipeline {
	return &Pipeline{
		scratch:  scratch,
		limits:   limits.WithDefaults(),
		resolver: res,
		procCtx:  ctx,

		materialize: filetree.Materialize,
	}
}

// Wait blocks until every started process has exited and been cleaned up.
func (p *Pipeline) Wait() {
	p.running.Wait()
}

// Submit runs one submit request. Everything up to and including the spawn
// happens on the caller's goroutine, so accept (or the error) is queued
// before Submit returns; output is forwarded asynchronously.
func (p *Pipeline) Submit(req request, s *Session) {
	if req.Files == nil {
		p.reject(s, observability.OutcomeProtocolFail, MsgMissingFiles)
		return
	}
	if req.Arguments == nil {
		p.reject(s, observability.OutcomeProtocolFail, MsgMissingArgs)
		return
	}

	tree, err := filetree.Decode(req.Files, p.limits)
	if err != nil {
		p.reject(s, observability.OutcomeRejected, err.Error())
		return
	}

	id, root := p.scratch.Allocate()
	sub := &submission{
		ID:        id,
		Root:      root,
		Tree:      tree,
		Arguments: req.Arguments,
		Created:   time.Now(),
	}
	logger := s.logger.With().Str("id", id).Str("root", root).Logger()

	if err := p.materialize(root, tree); err != nil {
		logger.Error().Err(err).Msg("materialize failed")
		// an existing root belongs to someone else; leave it alone
		if !rootCollision(err, root) {
			p.discard(logger, sub)
		}
		p.reject(s, observability.OutcomeIOError, MsgIOError)
		return
	}

	cmd, err := p.resolver.Resolve(p.procCtx, req.Arguments, root, tree)
	if err != nil {
		logger.Info().Err(err).Msg("resolver rejected submission")
		p.discard(logger, sub)
		p.reject(s, observability.OutcomeUnresolved, err.Error())
		return
	}

	if !s.active.add(sub) {
		// uuid collision; never expected in practice
		logger.Error().Msg("submission id already tracked")
		p.discard(logger, sub)
		p.reject(s, observability.OutcomeIOError, MsgIOError)
		return
	}

	p.running.Add(1)
	proc, err := supervisor.Start(p.procCtx, id, cmd, func(exit supervisor.ExitStatus) {
		defer p.running.Done()
		s.active.remove(id)
		p.discard(logger, sub)
	})
	if err != nil {
		p.running.Done()
		s.active.remove(id)
		logger.Warn().Err(err).Str("command", cmd.Name).Msg("spawn failed")
		p.discard(logger, sub)
		p.reject(s, observability.OutcomeSpawnFailed, err.Error())
		return
	}
	s.active.attach(id, proc)

	observability.RecordSubmission(observability.OutcomeAccepted)
	logger.Info().Str("command", cmd.Name).Int("pid", proc.Pid()).Msg("submission accepted")
	s.Send(AcceptEvent(id))

	go forward(s, id, proc)
}

func (p *Pipeline) reject(s *Session, outcome, description string) {
	observability.RecordSubmission(outcome)
	s.Send(ErrorEvent(description))
}

// rootCollision reports whether err is root itself already existing, as
// opposed to a collision somewhere inside a root we created.
func rootCollision(err error, root string) bool {
	var pathErr *fs.PathError
	if !errors.As(err, &pathErr) {
		return false
	}
	return errors.Is(pathErr.Err, fs.ErrExist) && filepath.Clean(pathErr.Path) == filepath.Clean(root)
}

// discard removes a submission's root. It is the only place roots are deleted.
func (p *Pipeline) discard(logger zerolog.Logger, sub *submission) {
	if err := filetree.Dematerialize(sub.Root, sub.Tree); err != nil {
		logger.Error().Err(err).Msg("cleanup failed")
		return
	}
	logger.Debug().Msg("root removed")
}

// forward relays one process's events to its session in order.
func forward(s *Session, id string, proc *supervisor.Process) {
	for ev := range proc.Events() {
		switch {
		case ev.IsExit():
			s.Send(FinishedEvent(id, ev.Exit.Abnormal, ev.Exit.Code))
		case ev.Stream == supervisor.Stdout:
			s.Send(StdoutEvent(id, ev.Data))
		case ev.Stream == supervisor.Stderr:
			s.Send(StderrEvent(id, ev.Data))
		}
	}
}
