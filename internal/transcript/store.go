// Package transcript holds the ordered messages of the active session.
//
// Store is a value: every mutation returns a new Store and never touches the
// receiver's backing array, so snapshots handed to renderers stay stable.
package transcript

import "moodmate/internal/model"

type Store struct {
	messages []model.Message
}

func New(msgs ...model.Message) Store {
	return Store{}.Replace(msgs)
}

// Append adds m after the last message.
func (s Store) Append(m model.Message) Store {
	next := make([]model.Message, len(s.messages), len(s.messages)+1)
	copy(next, s.messages)
	return Store{messages: append(next, m)}
}

// Replace discards the current sequence in favour of msgs, in order.
func (s Store) Replace(msgs []model.Message) Store {
	if len(msgs) == 0 {
		return Store{}
	}
	next := make([]model.Message, len(msgs))
	copy(next, msgs)
	return Store{messages: next}
}

func (s Store) Clear() Store { return Store{} }

func (s Store) Messages() []model.Message {
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s Store) Len() int { return len(s.messages) }

func (s Store) Last() (model.Message, bool) {
	if len(s.messages) == 0 {
		return model.Message{}, false
	}
	return s.messages[len(s.messages)-1], true
}

// PendingCount reports optimistic messages awaiting confirmation.
func (s Store) PendingCount() int {
	n := 0
	for _, m := range s.messages {
		if m.Pending {
			n++
		}
	}
	return n
}
