package diagram

import (
	"context"
	"sync"
	"sync/atomic"

	mmerrors "github.com/matzehuels/mindmap/pkg/errors"
	"github.com/matzehuels/mindmap/pkg/outline"
	"github.com/matzehuels/mindmap/pkg/source"
)

// Loop owns a Diagram on a single goroutine. Every read and mutation goes
// through its queue, so callers on other goroutines (input handlers,
// answer fetchers, exporters) never touch the diagram directly.
type Loop struct {
	d    *Diagram
	jobs chan func(*Diagram)
	done chan struct{}

	wg sync.WaitGroup
}

// NewLoop wraps d. Call Run to start processing.
func NewLoop(d *Diagram) *Loop {
	return &Loop{
		d:    d,
		jobs: make(chan func(*Diagram), 64),
		done: make(chan struct{}),
	}
}

// Run processes queued work until ctx is done, then waits for in-flight
// answer requests to finish and returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case fn := <-l.jobs:
			fn(l.d)
		case <-ctx.Done():
			close(l.done)
			l.wg.Wait()
			return ctx.Err()
		}
	}
}

// Do runs fn on the loop goroutine and waits for it. When Do returns, fn
// has either finished or will never run, so fn may write to variables the
// caller reads afterwards.
func (l *Loop) Do(ctx context.Context, fn func(*Diagram) error) error {
	var state atomic.Int32 // jobQueued, jobStarted or jobAbandoned
	errc := make(chan error, 1)
	job := func(d *Diagram) {
		if state.CompareAndSwap(jobQueued, jobStarted) {
			errc <- fn(d)
		}
	}
	if err := l.enqueue(ctx, job); err != nil {
		return err
	}
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if state.CompareAndSwap(jobQueued, jobAbandoned) {
			return ctx.Err()
		}
	case <-l.done:
		if state.CompareAndSwap(jobQueued, jobAbandoned) {
			return mmerrors.New(mmerrors.ErrCodeInvalidState, "loop stopped")
		}
	}
	// fn is running; wait for it.
	return <-errc
}

const (
	jobQueued int32 = iota
	jobStarted
	jobAbandoned
)

// Send dispatches cmd and waits for its result.
func (l *Loop) Send(ctx context.Context, cmd Command) (Result, error) {
	var res Result
	err := l.Do(ctx, func(d *Diagram) error {
		res = d.Dispatch(ctx, cmd)
		return nil
	})
	return res, err
}

// Post queues cmd without waiting for it to run.
func (l *Loop) Post(ctx context.Context, cmd Command) error {
	return l.enqueue(ctx, func(d *Diagram) {
		// The poster may be gone by the time the command runs.
		res := d.Dispatch(context.Background(), cmd)
		if res.Err != nil {
			d.logger.Warn("posted command failed", "cmd", commandName(cmd), "err", res.Err)
		}
	})
}

// Snapshot returns the current render state.
func (l *Loop) Snapshot(ctx context.Context) (*RenderState, error) {
	var st *RenderState
	err := l.Do(ctx, func(d *Diagram) error {
		st = d.RenderState()
		return nil
	})
	return st, err
}

// Resolve asks asker for the answer to the pending follow-up id in the
// background and posts an [Answer] (or [AnswerFailed]) when it arrives.
// The diagram stays usable while the answer is outstanding.
func (l *Loop) Resolve(ctx context.Context, id string, asker source.Asker) error {
	var question string
	err := l.Do(ctx, func(d *Diagram) error {
		n, ok := d.outline.Node(id)
		if !ok {
			return mmerrors.New(mmerrors.ErrCodeNodeNotFound, "node %q does not exist", id)
		}
		if n.Kind != outline.KindQnA || n.State != outline.StatePending {
			return mmerrors.New(mmerrors.ErrCodeInvalidState, "node %q is not a pending follow-up", id)
		}
		question = n.Title
		return nil
	})
	if err != nil {
		return err
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		answer, err := asker.Ask(ctx, id, question)
		var cmd Command = Answer{ID: id, Text: answer}
		if err != nil {
			cmd = AnswerFailed{ID: id, Err: err}
		}
		if perr := l.enqueue(context.Background(), func(d *Diagram) {
			d.Dispatch(context.Background(), cmd)
		}); perr != nil {
			l.d.logger.Debug("dropped answer, loop stopped", "id", id)
		}
	}()
	return nil
}

// Ask inserts a follow-up beneath parentID and resolves it with asker.
// It returns the new node's ID as soon as the node is placed.
func (l *Loop) Ask(ctx context.Context, parentID, question string, asker source.Asker) (string, error) {
	res, err := l.Send(ctx, InsertFollowUp{ParentID: parentID, Question: question})
	if err != nil {
		return "", err
	}
	if res.Err != nil {
		return "", res.Err
	}
	return res.ID, l.Resolve(ctx, res.ID, asker)
}

func (l *Loop) enqueue(ctx context.Context, fn func(*Diagram)) error {
	select {
	case l.jobs <- fn:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return mmerrors.New(mmerrors.ErrCodeInvalidState, "loop stopped")
	}
}
