package llm

import (
	"context"

	"moodmate/internal/model"
)

var cannedReplies = []string{
	"That sounds really important to you. Tell me more about how that makes you feel.",
	"I hear you. It's completely normal to feel this way. What do you think might help right now?",
	"Thank you for sharing that with me. Your feelings are valid. How long have you been experiencing this?",
	"I can sense this is weighing on you. Would you like to explore some coping strategies together?",
	"You're showing a lot of strength by talking about this. What would make you feel more supported right now?",
	"That must be challenging for you. Have you noticed any patterns in when you feel this way?",
	"Your awareness of these feelings is really insightful. What small step could you take today to care for yourself?",
}

// Canned rotates through fixed supportive replies, keyed on how many times
// the user has spoken so a conversation never repeats itself back to back.
type Canned struct {
	replies []string
}

func NewCanned() *Canned {
	return &Canned{replies: cannedReplies}
}

func (c *Canned) Reply(_ context.Context, history []model.ChatMessage) (string, error) {
	turns := 0
	for _, m := range history {
		if m.Role == model.RoleUser {
			turns++
		}
	}
	if turns > 0 {
		turns--
	}
	return c.replies[turns%len(c.replies)], nil
}
