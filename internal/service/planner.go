package service

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"moodmate/internal/model"
)

type taskTemplate struct {
	category      model.Category
	keywords      []string
	title         string
	description   string
	estimatedTime string
	steps         []string
}

// templates are checked in order; the first keyword hit wins.
var templates = []taskTemplate{
	{
		category:      model.CategoryBreathing,
		keywords:      []string{"anxious", "anxiety", "panic", "panicking", "stress", "stressed", "worried", "worry", "nervous"},
		title:         "Box Breathing",
		description:   "Slow your breath to calm your nervous system.",
		estimatedTime: "5 min",
		steps:         []string{"Inhale for 4 seconds", "Hold for 4 seconds", "Exhale for 4 seconds", "Hold for 4 seconds and repeat"},
	},
	{
		category:      model.CategoryJournaling,
		keywords:      []string{"sad", "lonely", "down", "depressed", "cry", "crying", "hurt", "grief"},
		title:         "Gentle Journaling",
		description:   "Put what you are feeling into words without judging it.",
		estimatedTime: "10 min",
		steps:         []string{"Write down what happened today", "Name the feeling it left you with", "Write one kind thing to yourself"},
	},
	{
		category:      model.CategoryMindfulness,
		keywords:      []string{"tired", "overwhelmed", "exhausted", "burnout", "burned", "sleepless"},
		title:         "Mindful Pause",
		description:   "Take a short break to reconnect with the present moment.",
		estimatedTime: "5 min",
		steps:         []string{"Take three deep breaths", "Notice five things you can see", "Set an intention for the next hour"},
	},
	{
		category:      model.CategoryMovement,
		keywords:      []string{"angry", "mad", "frustrated", "restless", "furious", "irritated"},
		title:         "Release Walk",
		description:   "Let the tension out of your body with some movement.",
		estimatedTime: "15 min",
		steps:         []string{"Stand up and stretch your arms", "Walk briskly for ten minutes", "Shake out your hands and shoulders"},
	},
}

// Planner suggests a wellness task from the words of the latest user turn.
type Planner struct {
	now   func() time.Time
	newID func() string
}

func NewPlanner() *Planner {
	return &Planner{now: time.Now, newID: uuid.NewString}
}

// Plan returns a pending task for sessionID, or nil when nothing fits.
func (p *Planner) Plan(sessionID string, history []model.ChatMessage) *model.Task {
	words := tokenize(lastUserText(history))
	if len(words) == 0 {
		return nil
	}

	for _, tpl := range templates {
		if !containsAny(words, tpl.keywords) {
			continue
		}
		steps := make([]model.TaskStep, len(tpl.steps))
		for i, label := range tpl.steps {
			steps[i] = model.TaskStep{Label: label}
		}
		return &model.Task{
			ID:            p.newID(),
			Title:         tpl.title,
			Description:   tpl.description,
			Category:      tpl.category,
			Status:        model.TaskPending,
			Steps:         steps,
			SessionID:     sessionID,
			EstimatedTime: tpl.estimatedTime,
			CreatedAt:     p.now(),
		}
	}
	return nil
}

func lastUserText(history []model.ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleUser {
			return strings.ToLower(history[i].Content)
		}
	}
	return ""
}

func tokenize(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	}) {
		words[w] = true
	}
	return words
}

func containsAny(words map[string]bool, keywords []string) bool {
	for _, k := range keywords {
		if words[k] {
			return true
		}
	}
	return false
}
