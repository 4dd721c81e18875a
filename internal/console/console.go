// Package console is a line-oriented terminal front end for the chat controller.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"

	"moodmate/internal/controller"
	"moodmate/internal/model"
)

const helpText = `Type a message to talk, or one of:
  /history        list past conversations
  /open <n|id>    open a conversation from the list
  /new            start a new conversation
  /task           show the current task
  /start          mark the task as in progress
  /step <n>       toggle step n
  /complete       complete the task
  /hide, /show    hide or show the task card
  /help           this text
  /quit           leave
`

// Console reads commands from in and writes everything to out. It implements
// controller.Notifier so alerts land in the same stream.
type Console struct {
	in  io.Reader
	out io.Writer

	mu   sync.Mutex
	ctrl *controller.Controller
}

func New(in io.Reader, out io.Writer) *Console {
	return &Console{in: in, out: out}
}

// Alert prints a highlighted alert line.
func (c *Console) Alert(message string) {
	c.print(renderAlert(message))
}

func (c *Console) print(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.out, s)
}

// Run drives ctrl until in is exhausted, /quit is typed or ctx ends.
func (c *Console) Run(ctx context.Context, ctrl *controller.Controller) error {
	c.ctrl = ctrl
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	celebrating := false
	unsubscribe := ctrl.Subscribe(func(s controller.State) {
		if s.Celebrating && !celebrating {
			c.print(renderCelebration(s))
		}
		celebrating = s.Celebrating
	})
	defer unsubscribe()

	ctrl.Wait()
	c.print(renderTranscript(ctrl.Snapshot().Transcript.Messages()))
	c.print(color.HiBlackString("Type /help for commands.") + "\n")

	lines := make(chan string)
	scanErr := make(chan error, 1)
	// Scan cannot be interrupted: after ctx ends the reader stays parked
	// until in yields a line or closes, then exits without sending.
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		c.prompt()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if quit := c.Execute(ctx, line); quit {
				return nil
			}
		}
	}
}

func (c *Console) prompt() {
	s := c.ctrl.Snapshot()
	label := "new"
	if s.Bound() {
		label = shortID(s.SessionID)
	}
	c.print(color.HiBlackString("[%s]", label) + color.GreenString("> "))
}

// Execute runs one input line and reports whether the console should stop.
func (c *Console) Execute(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		c.send(line)
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/help":
		c.print(helpText)
	case "/history":
		c.history(ctx)
	case "/open":
		c.open(arg)
	case "/new":
		c.report(c.ctrl.ResetToNewChat())
		c.print(renderTranscript(c.ctrl.Snapshot().Transcript.Messages()))
	case "/task":
		c.showTask()
	case "/start":
		c.report(c.ctrl.UpdateTaskStatus(c.taskID(), model.TaskInProgress))
		c.showTask()
	case "/step":
		n, err := strconv.Atoi(arg)
		if err != nil {
			c.Alert("usage: /step <n>")
			return false
		}
		c.report(c.ctrl.ToggleStep(c.taskID(), n-1))
		c.showTask()
	case "/complete":
		if c.report(c.ctrl.CompleteTask(c.taskID())) {
			c.print(color.YellowString("Completing...") + "\n")
			c.ctrl.Wait()
			c.showTask()
		}
	case "/hide":
		c.report(c.ctrl.SetTaskVisible(false))
	case "/show":
		c.report(c.ctrl.SetTaskVisible(true))
		c.showTask()
	default:
		c.Alert(fmt.Sprintf("unknown command %s, try /help", cmd))
	}
	return false
}

func (c *Console) send(text string) {
	before := c.taskID()
	if !c.report(c.ctrl.SendMessage(text)) {
		return
	}
	c.print(color.HiBlackString("companion is typing...") + "\n")
	c.ctrl.Wait()

	s := c.ctrl.Snapshot()
	if last, ok := s.Transcript.Last(); ok && last.Pending {
		c.print(color.HiBlackString("Your message wasn't delivered. The companion didn't answer.") + "\n")
		return
	}
	c.print(renderTranscript(repliesAfterLastUser(s.Transcript.Messages())))
	if s.Task.TaskID() != before && s.Task.Visible() {
		c.print(color.CyanString("A new task was suggested for you:") + "\n")
		c.print(renderTask(s.Task))
	}
}

func (c *Console) history(ctx context.Context) {
	dir := c.ctrl.Directory()
	if dir == nil {
		c.Alert("no session directory")
		return
	}
	if err := dir.Refresh(ctx); err != nil {
		c.Alert("couldn't load your conversations")
		return
	}
	c.print(renderDirectory(dir.Entries(), c.ctrl.IsActive))
}

func (c *Console) open(arg string) {
	var entries []model.ChatSession
	if dir := c.ctrl.Directory(); dir != nil {
		entries = dir.Entries()
	}
	id, ok := resolveEntry(entries, arg)
	if !ok {
		c.Alert("usage: /open <n|id>, see /history")
		return
	}
	if !c.report(c.ctrl.SelectSession(id)) {
		return
	}
	c.ctrl.Wait()

	s := c.ctrl.Snapshot()
	c.print(renderTranscript(s.Transcript.Messages()))
	if s.Task.Visible() {
		c.print(renderTask(s.Task))
	}
}

func (c *Console) showTask() {
	s := c.ctrl.Snapshot()
	if s.Task.Empty() {
		c.print(color.HiBlackString("No task for this conversation yet.") + "\n")
		return
	}
	if !s.Task.Visible() {
		c.print(color.HiBlackString("Task hidden, /show to display it.") + "\n")
		return
	}
	c.print(renderTask(s.Task))
}

func (c *Console) taskID() string {
	return c.ctrl.Snapshot().Task.TaskID()
}

// report turns a rejected operation into an alert line.
func (c *Console) report(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, controller.ErrEmptyMessage):
	case errors.Is(err, controller.ErrNoTask):
		c.Alert("there is no task in this conversation")
	case errors.Is(err, controller.ErrSendInFlight):
		c.Alert("still waiting for the last reply")
	case errors.Is(err, controller.ErrSessionLoading):
		c.Alert("the conversation is still loading")
	default:
		c.Alert(err.Error())
	}
	return false
}

// repliesAfterLastUser returns the messages that follow the newest user turn.
func repliesAfterLastUser(msgs []model.Message) []model.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Sender == model.SenderUser {
			return msgs[i+1:]
		}
	}
	return msgs
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
