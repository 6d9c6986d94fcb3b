// internal/chat/conversation/transcript.go
package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrBusy = errors.New("CONVERSATION_BUSY")

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// typingPlaceholder is shown while the assistant turn is unresolved.
const typingPlaceholder = "..."

// Turn is one rendered transcript entry. Pending marks the typing
// placeholder that gets replaced once the responder settles.
type Turn struct {
	ID        string    `json:"id"`
	Speaker   Speaker   `json:"speaker"`
	HTML      string    `json:"html"`
	Timestamp time.Time `json:"timestamp"`
	Pending   bool      `json:"pending,omitempty"`
}

type sessionState struct {
	turns []Turn
	busy  bool
}

// Transcript holds per-session append-only turn lists. Turns are only ever
// appended or resolved in place; nothing is removed until the session ends.
type Transcript struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
}

func NewTranscript() *Transcript {
	return &Transcript{
		sessions: make(map[string]*sessionState),
	}
}

// Begin appends the user's turn plus a pending assistant turn and marks the
// session busy. Returns ErrBusy while a previous query is still in flight:
// one outstanding query per session, no queue.
func (t *Transcript) Begin(session, userHTML string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.sessions[session]
	if !ok {
		state = &sessionState{}
		t.sessions[session] = state
	}
	if state.busy {
		return "", ErrBusy
	}
	state.busy = true

	now := time.Now()
	state.turns = append(state.turns, Turn{
		ID:        uuid.New().String(),
		Speaker:   SpeakerUser,
		HTML:      userHTML,
		Timestamp: now,
	})

	pendingID := uuid.New().String()
	state.turns = append(state.turns, Turn{
		ID:        pendingID,
		Speaker:   SpeakerAssistant,
		HTML:      typingPlaceholder,
		Timestamp: now,
		Pending:   true,
	})

	return pendingID, nil
}

// Resolve replaces the pending turn's placeholder with the final HTML and
// frees the session for the next query.
func (t *Transcript) Resolve(session, pendingID, html string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.sessions[session]
	if !ok {
		return
	}
	state.busy = false

	for i := range state.turns {
		if state.turns[i].ID == pendingID {
			state.turns[i].HTML = html
			state.turns[i].Pending = false
			state.turns[i].Timestamp = time.Now()
			return
		}
	}
}

// History returns a copy of the session's turns, oldest first.
func (t *Transcript) History(session string) []Turn {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.sessions[session]
	if !ok {
		return nil
	}
	turns := make([]Turn, len(state.turns))
	copy(turns, state.turns)
	return turns
}
