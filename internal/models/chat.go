package models

import (
	"encoding/json"
	"slices"
)

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript is an append-only sequence of turns. Append returns a new
// value; the receiver is left untouched so earlier snapshots stay valid.
type Transcript struct {
	turns []ChatTurn
}

func NewTranscript(turns ...ChatTurn) Transcript {
	return Transcript{turns: slices.Clone(turns)}
}

func (t Transcript) Append(role, content string) Transcript {
	next := make([]ChatTurn, len(t.turns), len(t.turns)+1)
	copy(next, t.turns)
	return Transcript{turns: append(next, ChatTurn{Role: role, Content: content})}
}

func (t Transcript) Len() int { return len(t.turns) }

// Turns returns the turns in submission order.
func (t Transcript) Turns() []ChatTurn {
	return slices.Clone(t.turns)
}

// Last returns the most recent turn, if any.
func (t Transcript) Last() (ChatTurn, bool) {
	if len(t.turns) == 0 {
		return ChatTurn{}, false
	}
	return t.turns[len(t.turns)-1], true
}

func (t Transcript) MarshalJSON() ([]byte, error) {
	turns := t.turns
	if turns == nil {
		turns = []ChatTurn{}
	}
	return json.Marshal(turns)
}
