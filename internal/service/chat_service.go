package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"moodmate/internal/config"
	"moodmate/internal/llm"
	"moodmate/internal/model"
	"moodmate/internal/storage"
	"moodmate/pkg/logger"
)

var ErrEmptyMessage = errors.New("message is empty")

// historyConcurrency bounds the parallel task lookups of History.
const historyConcurrency = 8

type ChatService struct {
	storage   storage.Storage
	responder llm.Responder
	planner   *Planner
	config    config.SessionConfig

	// 每个会话一把锁，保证同一会话的消息顺序
	locks sync.Map

	now   func() time.Time
	newID func() string
}

func NewChatService(store storage.Storage, responder llm.Responder, planner *Planner, cfg config.SessionConfig) *ChatService {
	return &ChatService{
		storage:   store,
		responder: responder,
		planner:   planner,
		config:    cfg,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (s *ChatService) lock(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Send stores text as a user turn, appends the companion's reply and, when the
// planner finds a fit, attaches a task to a session that has none. An empty
// sessionID opens a new session once the reply is in, so a failed first turn
// leaves nothing behind.
func (s *ChatService) Send(ctx context.Context, text, sessionID string) (*model.SendData, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}
	if sessionID == "" {
		return s.sendDraft(ctx, text)
	}

	unlock := s.lock(sessionID)
	defer unlock()

	session, err := s.storage.GetSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	userMsg := s.message(model.RoleUser, text)
	if err := s.storage.AddMessage(sessionID, &userMsg); err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}
	history := append(session.Messages, userMsg)

	reply, err := s.responder.Reply(ctx, history)
	if err != nil {
		return nil, fmt.Errorf("failed to generate reply: %w", err)
	}
	aiMsg := s.message(model.RoleAssistant, reply)
	if err := s.storage.AddMessage(sessionID, &aiMsg); err != nil {
		return nil, fmt.Errorf("failed to add message: %w", err)
	}
	history = append(history, aiMsg)

	return s.attachTask(session, history), nil
}

func (s *ChatService) sendDraft(ctx context.Context, text string) (*model.SendData, error) {
	userMsg := s.message(model.RoleUser, text)
	reply, err := s.responder.Reply(ctx, []model.ChatMessage{userMsg})
	if err != nil {
		return nil, fmt.Errorf("failed to generate reply: %w", err)
	}
	aiMsg := s.message(model.RoleAssistant, reply)

	session, err := s.createSession(userMsg.Timestamp)
	if err != nil {
		return nil, err
	}
	unlock := s.lock(session.ID)
	defer unlock()

	history := []model.ChatMessage{userMsg, aiMsg}
	for i := range history {
		if err := s.storage.AddMessage(session.ID, &history[i]); err != nil {
			return nil, fmt.Errorf("failed to add message: %w", err)
		}
	}
	return s.attachTask(session, history), nil
}

// attachTask plans a task for a session that has none yet.
func (s *ChatService) attachTask(session *model.Session, history []model.ChatMessage) *model.SendData {
	data := &model.SendData{SessionID: session.ID, Response: history}
	if session.TaskID != "" || s.planner == nil {
		return data
	}
	if task := s.planner.Plan(session.ID, history); task != nil {
		if err := s.storage.SaveTask(task); err != nil {
			logger.Errorf("Failed to save task for session %s: %v", session.ID, err)
		} else {
			data.GenerateTask = true
			data.Task = task
		}
	}
	return data
}

// createSession opens a session dated at its first user turn.
func (s *ChatService) createSession(now time.Time) (*model.Session, error) {
	session := &model.Session{
		ID:        s.newID(),
		Messages:  make([]model.ChatMessage, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.storage.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	logger.Debugf("Created session %s", session.ID)
	return session, nil
}

func (s *ChatService) message(role, content string) model.ChatMessage {
	return model.ChatMessage{
		ID:        s.newID(),
		Content:   content,
		Role:      role,
		Timestamp: s.now(),
	}
}

// Transcript returns a session's messages in order.
func (s *ChatService) Transcript(sessionID string) ([]model.ChatMessage, error) {
	messages, err := s.storage.GetMessages(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	return messages, nil
}

// History lists sessions newest first, each with its task status when it has one.
func (s *ChatService) History(ctx context.Context) ([]model.HistoryItem, error) {
	sessions, err := s.storage.ListSessions()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	items := make([]model.HistoryItem, len(sessions))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(historyConcurrency)

	for i, session := range sessions {
		items[i] = model.HistoryItem{
			SessionID: session.ID,
			Messages:  session.Messages,
			UpdatedAt: session.UpdatedAt,
		}
		if session.TaskID == "" {
			continue
		}
		i, session := i, session
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			task, err := s.storage.GetTask(session.TaskID)
			if errors.Is(err, storage.ErrTaskNotFound) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("load task of session %s: %w", session.ID, err)
			}
			items[i].Task = &model.TaskMarker{Status: task.Status}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

// CleanupExpired deletes sessions idle for longer than the configured TTL.
func (s *ChatService) CleanupExpired() int {
	if s.config.TTL <= 0 {
		return 0
	}

	sessions, err := s.storage.ListSessions()
	if err != nil {
		logger.Errorf("Failed to list sessions for cleanup: %v", err)
		return 0
	}

	removed := 0
	cutoff := s.now().Add(-s.config.TTL)
	for _, session := range sessions {
		if !session.UpdatedAt.Before(cutoff) {
			continue
		}
		if err := s.storage.DeleteSession(session.ID); err != nil {
			logger.Errorf("Failed to delete expired session %s: %v", session.ID, err)
			continue
		}
		s.locks.Delete(session.ID)
		removed++
		logger.Infof("Cleaned up expired session: %s", session.ID)
	}
	return removed
}

// RunCleanup calls CleanupExpired every cleanup interval until ctx ends.
func (s *ChatService) RunCleanup(ctx context.Context) {
	if s.config.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanupExpired()
		}
	}
}
