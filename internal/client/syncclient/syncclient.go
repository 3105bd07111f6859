// Package syncclient keeps one editor session in step with the shared
// document. It polls the server on a fixed interval, coalesces bursts of
// local edits into a single save after a quiet period, and ignores incoming
// content while local edits are unsaved.
//
// There is no merging: whichever client saves last overwrites the others.
package syncclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/collabedit/docsync/internal/client/docapi"
	"github.com/collabedit/docsync/internal/client/syncstatus"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultQuietPeriod  = time.Second
)

var (
	ErrAlreadyStarted = errors.New("sync session already started")
	ErrClosed         = errors.New("sync session closed")
)

// Remote is the document store as seen from the client.
type Remote interface {
	Read(ctx context.Context) (string, error)
	Replace(ctx context.Context, content string) error
}

type Options struct {
	PollInterval time.Duration
	QuietPeriod  time.Duration
	Scheduler    Scheduler
	Logger       zerolog.Logger

	// OnContent is called when a poll replaced the local content.
	OnContent func(content string)
	// OnStatus is called on every status change.
	OnStatus func(t syncstatus.Transition)
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Content          string
	Status           syncstatus.State
	SuppressIncoming bool
	LastError        error
}

type Client struct {
	remote       Remote
	sched        Scheduler
	pollInterval time.Duration
	quietPeriod  time.Duration
	logger       zerolog.Logger
	onContent    func(string)
	onStatus     func(syncstatus.Transition)

	mu       sync.Mutex
	ctx      context.Context
	content  string
	status   *syncstatus.Machine
	suppress bool
	// editSeq counts local edits. A read or save issued at one value is stale
	// once it has moved on.
	editSeq        uint64
	pendingSave    Task
	pendingSeq     uint64
	pendingContent string
	readInFlight   bool
	pollTask       Task
	started        bool
	closed         bool
	lastErr        error
}

func New(remote Remote, opts Options) *Client {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = DefaultQuietPeriod
	}
	if opts.Scheduler == nil {
		opts.Scheduler = timerScheduler{}
	}
	return &Client{
		remote:       remote,
		sched:        opts.Scheduler,
		pollInterval: opts.PollInterval,
		quietPeriod:  opts.QuietPeriod,
		logger:       opts.Logger,
		onContent:    opts.OnContent,
		onStatus:     opts.OnStatus,
		ctx:          context.Background(),
		status:       syncstatus.New(),
	}
}

// Start begins polling. The first poll fires immediately. ctx is passed to
// every remote call of the session.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return ErrClosed
	case c.started:
		return ErrAlreadyStarted
	}
	c.started = true
	c.ctx = ctx
	c.pollTask = c.sched.AfterFunc(0, c.poll)
	return nil
}

func (c *Client) poll() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.pollTask = c.sched.AfterFunc(c.pollInterval, c.poll)
	if c.suppress || c.readInFlight {
		c.mu.Unlock()
		return
	}
	c.readInFlight = true
	seq := c.editSeq
	ctx := c.ctx
	c.mu.Unlock()

	content, err := c.remote.Read(ctx)

	c.mu.Lock()
	c.readInFlight = false
	if c.closed {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Warn().Err(err).Str("kind", string(docapi.Classify(err))).Msg("poll failed")
		return
	}
	if c.suppress || c.editSeq != seq || content == c.content {
		c.mu.Unlock()
		return
	}
	c.content = content
	onContent := c.onContent
	c.mu.Unlock()

	c.logger.Debug().Int("bytes", len(content)).Msg("remote content applied")
	if onContent != nil {
		onContent(content)
	}
}

// Edit records a local change and (re)arms the save timer. Only the content
// of the last edit in a burst is saved.
func (c *Client) Edit(content string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.content = content
	c.editSeq++
	c.suppress = true
	tr, err := c.status.Fire(syncstatus.Edit)

	if c.pendingSave != nil {
		c.pendingSave.Stop()
	}
	seq := c.editSeq
	c.pendingSeq = seq
	c.pendingContent = content
	c.pendingSave = c.sched.AfterFunc(c.quietPeriod, func() {
		c.save(c.sessionContext(), seq, content)
	})
	c.mu.Unlock()

	c.emit(tr, err)
}

func (c *Client) sessionContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

// Flush runs the pending save now instead of waiting for the quiet period.
// It returns the save error, or nil when nothing was pending.
func (c *Client) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.pendingSeq == 0 {
		c.mu.Unlock()
		return nil
	}
	if c.pendingSave != nil && !c.pendingSave.Stop() {
		// Already firing on its own.
		c.mu.Unlock()
		return nil
	}
	seq, content := c.pendingSeq, c.pendingContent
	c.mu.Unlock()

	return c.save(ctx, seq, content)
}

func (c *Client) save(ctx context.Context, seq uint64, content string) error {
	c.mu.Lock()
	if c.closed || seq != c.pendingSeq {
		c.mu.Unlock()
		return nil
	}
	c.pendingSave = nil
	c.pendingSeq = 0
	c.pendingContent = ""
	tr, fireErr := c.status.Fire(syncstatus.SaveStarted)
	c.mu.Unlock()
	c.emit(tr, fireErr)

	err := c.remote.Replace(ctx, content)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return err
	}
	// A newer edit keeps suppression and its Typing label; its own save is
	// already scheduled.
	superseded := c.editSeq != seq
	c.lastErr = err
	var event syncstatus.Event
	if !superseded {
		c.suppress = false
		event = syncstatus.SaveSucceeded
		if err != nil {
			event = syncstatus.SaveFailed
		}
		tr, fireErr = c.status.Fire(event)
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error().Err(err).Str("kind", string(docapi.Classify(err))).Bool("superseded", superseded).Msg("save failed")
	} else {
		c.logger.Debug().Int("bytes", len(content)).Msg("saved")
	}
	if !superseded {
		c.emit(tr, fireErr)
	}
	return err
}

func (c *Client) emit(tr syncstatus.Transition, err error) {
	if err != nil {
		c.logger.Debug().Err(err).Msg("status event rejected")
		return
	}
	if c.onStatus != nil {
		c.onStatus(tr)
	}
}

// Close ends the session. The poll stops, a pending save is dropped and the
// results of in-flight calls are ignored. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.pollTask != nil {
		c.pollTask.Stop()
	}
	if c.pendingSave != nil {
		c.pendingSave.Stop()
	}
	c.pendingSave = nil
	c.pendingSeq = 0
}

func (c *Client) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Content:          c.content,
		Status:           c.status.State(),
		SuppressIncoming: c.suppress,
		LastError:        c.lastErr,
	}
}
