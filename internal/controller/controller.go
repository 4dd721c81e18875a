// Package controller owns the active chat session: its identity, transcript and
// bound wellness task. All mutations go through the Controller, which feeds
// events to Reduce and runs the resulting requests off the caller's goroutine.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"moodmate/internal/directory"
	"moodmate/internal/model"
	"moodmate/pkg/logger"
)

// Backend is the subset of the wellness API the controller drives.
type Backend interface {
	FetchTranscript(ctx context.Context, sessionID string) ([]model.Message, error)
	FetchTask(ctx context.Context, sessionID string) (*model.Task, error)
	SendMessage(ctx context.Context, text, sessionID string) (*model.SendOutcome, error)
	CompleteTask(ctx context.Context, taskID, sessionID string) error
}

// Notifier surfaces alerts that need the user's attention.
type Notifier interface {
	Alert(message string)
}

type NotifierFunc func(message string)

func (f NotifierFunc) Alert(message string) { f(message) }

type logNotifier struct{}

func (logNotifier) Alert(message string) { logger.Warnf("alert: %s", message) }

type Options struct {
	RequestTimeout      time.Duration
	CelebrationDuration time.Duration
	Notifier            Notifier
	Now                 func() time.Time
	NewID               func() string
}

func (o *Options) setDefaults() {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.CelebrationDuration <= 0 {
		o.CelebrationDuration = 3 * time.Second
	}
	if o.Notifier == nil {
		o.Notifier = logNotifier{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = uuid.NewString
	}
}

type Controller struct {
	backend Backend
	dir     *directory.Directory
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	state      State
	version    uint64
	closed     bool
	celebrator *time.Timer
	subs       map[int]func(State)
	nextSub    int

	notifyMu     sync.Mutex
	lastNotified uint64
}

// New builds a controller in the new-chat state. dir may be nil when no
// session directory is shown.
func New(backend Backend, dir *directory.Directory, opts Options) *Controller {
	opts.setDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		backend: backend,
		dir:     dir,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		subs:    make(map[int]func(State)),
	}
	c.state, _, _ = Reduce(State{}, c.resetEvent(""))
	return c
}

// Mount resets to a new chat seeded for mood and refreshes the directory once.
func (c *Controller) Mount(mood string) error {
	if err := c.dispatch(c.resetEvent(mood)); err != nil {
		return err
	}
	if c.dir != nil {
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			ctx, cancel := context.WithTimeout(c.ctx, c.opts.RequestTimeout)
			defer cancel()
			_ = c.dir.Refresh(ctx)
		}()
	}
	return nil
}

// SelectSession switches to id and loads its transcript and task.
func (c *Controller) SelectSession(id string) error {
	return c.dispatch(Select{SessionID: id})
}

// ResetToNewChat returns to the unsaved draft keeping the current mood.
func (c *Controller) ResetToNewChat() error {
	return c.dispatch(c.resetEvent(c.Snapshot().Mood))
}

// SendMessage appends text optimistically and asks the backend for a reply.
// Blank text is rejected with ErrEmptyMessage and leaves everything untouched.
func (c *Controller) SendMessage(text string) error {
	return c.dispatch(Send{
		Text: text,
		Message: model.Message{
			ID:        c.opts.NewID(),
			Sender:    model.SenderUser,
			Timestamp: c.opts.Now(),
		},
	})
}

// UpdateTaskStatus moves the bound task forward. Only TaskCompleted reaches
// the backend; other statuses apply locally.
func (c *Controller) UpdateTaskStatus(taskID string, status model.TaskStatus) error {
	return c.dispatch(SetTaskStatus{TaskID: taskID, Status: status})
}

// CompleteTask is UpdateTaskStatus with TaskCompleted.
func (c *Controller) CompleteTask(taskID string) error {
	return c.UpdateTaskStatus(taskID, model.TaskCompleted)
}

// ToggleStep flips one step locally.
func (c *Controller) ToggleStep(taskID string, index int) error {
	return c.dispatch(ToggleStep{TaskID: taskID, Index: index})
}

func (c *Controller) SetTaskVisible(visible bool) error {
	return c.dispatch(SetTaskVisible{Visible: visible})
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsActive reports whether id is the session on screen, for directory highlighting.
func (c *Controller) IsActive(id string) bool {
	s := c.Snapshot()
	return id != "" && s.SessionID == id
}

func (c *Controller) Directory() *directory.Directory { return c.dir }

// Subscribe registers fn for every applied transition and returns a cancel func.
// fn runs outside the controller lock and may call Snapshot.
func (c *Controller) Subscribe(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Wait blocks until every request issued so far has been applied or dropped.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Close drops pending timers, cancels in-flight requests and waits for them.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.celebrator != nil {
		c.celebrator.Stop()
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Controller) resetEvent(mood string) Reset {
	return Reset{
		Mood: mood,
		Greeting: model.Message{
			ID:        c.opts.NewID(),
			Text:      Greeting(mood),
			Sender:    model.SenderAI,
			Timestamp: c.opts.Now(),
		},
	}
}

func (c *Controller) dispatch(ev Event) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	next, effects, err := Reduce(c.state, ev)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.state = next
	c.version++
	version := c.version
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	c.notify(version, next, subs)
	c.run(effects)
	return nil
}

// deliver applies an async result; stale and post-close results are logged and dropped.
func (c *Controller) deliver(ev Event, tag Tag) {
	err := c.dispatch(ev)
	switch {
	case err == nil:
	case errors.Is(err, ErrStaleResult):
		logger.WithFields(logrus.Fields{
			"session_id": tag.SessionID,
			"epoch":      tag.Epoch,
			"event":      ev.eventName(),
		}).Debug("dropped stale result")
	case errors.Is(err, ErrClosed):
	default:
		logger.Errorf("apply %s: %v", ev.eventName(), err)
	}
}

func (c *Controller) notify(version uint64, s State, subs []func(State)) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	if version <= c.lastNotified {
		return
	}
	c.lastNotified = version
	for _, fn := range subs {
		fn(s)
	}
}

func (c *Controller) run(effects []Effect) {
	var loads []Effect
	for _, eff := range effects {
		switch e := eff.(type) {
		case FetchTranscript, FetchTask:
			loads = append(loads, e)
		case SendMessage:
			c.request(func(ctx context.Context) {
				out, err := c.backend.SendMessage(ctx, e.Text, e.Tag.SessionID)
				if err != nil {
					logFailure("send message", e.Tag, err)
				}
				c.deliver(SendCompleted{Tag: e.Tag, Outcome: out, Err: err}, e.Tag)
			})
		case CompleteTask:
			c.request(func(ctx context.Context) {
				err := c.backend.CompleteTask(ctx, e.TaskID, e.Tag.SessionID)
				if err != nil {
					logFailure("complete task", e.Tag, err)
				}
				c.deliver(CompletionFinished{Tag: e.Tag, TaskID: e.TaskID, At: c.opts.Now(), Err: err}, e.Tag)
			})
		case Celebrate:
			c.scheduleCelebrationEnd(e.Seq)
		case Alert:
			c.opts.Notifier.Alert(e.Message)
		}
	}
	if len(loads) > 0 {
		c.loadSession(loads)
	}
}

// loadSession issues the transcript and task fetches concurrently; each result
// is applied as soon as it arrives.
func (c *Controller) loadSession(loads []Effect) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		var g errgroup.Group
		for _, eff := range loads {
			switch e := eff.(type) {
			case FetchTranscript:
				g.Go(func() error {
					ctx, cancel := context.WithTimeout(c.ctx, c.opts.RequestTimeout)
					defer cancel()
					msgs, err := c.backend.FetchTranscript(ctx, e.Tag.SessionID)
					c.deliver(TranscriptLoaded{Tag: e.Tag, Messages: msgs, Err: err}, e.Tag)
					return err
				})
			case FetchTask:
				g.Go(func() error {
					ctx, cancel := context.WithTimeout(c.ctx, c.opts.RequestTimeout)
					defer cancel()
					task, err := c.backend.FetchTask(ctx, e.Tag.SessionID)
					c.deliver(TaskLoaded{Tag: e.Tag, Task: task, Err: err}, e.Tag)
					return err
				})
			}
		}
		if err := g.Wait(); err != nil {
			if tag, ok := loadTag(loads); ok {
				logFailure("load session", tag, err)
			}
		}
	}()
}

func (c *Controller) request(fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(c.ctx, c.opts.RequestTimeout)
		defer cancel()
		fn(ctx)
	}()
}

func (c *Controller) scheduleCelebrationEnd(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.celebrator != nil {
		c.celebrator.Stop()
	}
	c.celebrator = time.AfterFunc(c.opts.CelebrationDuration, func() {
		c.deliver(CelebrationEnded{Seq: seq}, Tag{})
	})
}

func loadTag(loads []Effect) (Tag, bool) {
	for _, eff := range loads {
		switch e := eff.(type) {
		case FetchTranscript:
			return e.Tag, true
		case FetchTask:
			return e.Tag, true
		}
	}
	return Tag{}, false
}

func logFailure(op string, tag Tag, err error) {
	logger.WithFields(logrus.Fields{
		"session_id": tag.SessionID,
		"epoch":      tag.Epoch,
	}).Warnf("%s failed: %v", op, err)
}
