package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"sentiment-dashboard/internal/llm"
	"sentiment-dashboard/internal/models"
)

const promptTemplate = `Answer this question using the dataset:

<context>
%s
</context>

Question: %s`

// BuildPrompt embeds the table text and the question in the request sent to
// the completion service.
func BuildPrompt(promptContext, question string) string {
	return fmt.Sprintf(promptTemplate, promptContext, question)
}

// Orchestrator turns a question into a completion request and records both
// sides of the exchange in a transcript.
type Orchestrator struct {
	client  llm.Client
	timeout time.Duration
}

// NewOrchestrator builds an orchestrator. A zero timeout leaves the call
// bounded only by the caller's context.
func NewOrchestrator(client llm.Client, timeout time.Duration) *Orchestrator {
	return &Orchestrator{client: client, timeout: timeout}
}

// Ask appends the question and the reply to transcript and returns the new
// transcript with the reply text. A failed completion is recorded as an
// assistant turn carrying the error message; Ask itself never fails.
func (o *Orchestrator) Ask(ctx context.Context, transcript models.Transcript, promptContext, question string) (models.Transcript, string) {
	transcript = transcript.Append(models.RoleUser, question)
	reply := o.Reply(ctx, promptContext, question)
	return transcript.Append(models.RoleAssistant, reply), reply
}

// Reply completes question against promptContext. A failure is logged and
// turned into the "Completion error: ..." text.
func (o *Orchestrator) Reply(ctx context.Context, promptContext, question string) string {
	reply, err := o.complete(ctx, BuildPrompt(promptContext, question))
	if err != nil {
		log.Error().Err(fmt.Errorf("%w: %w", models.ErrCompletion, err)).Msg("chat completion failed")
		return fmt.Sprintf("Completion error: %v", err)
	}
	return reply
}

func (o *Orchestrator) complete(ctx context.Context, prompt string) (string, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	return o.client.Complete(ctx, prompt)
}

// Phase is the state of a Conversation.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingReply
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingReply:
		return "awaiting_reply"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

var (
	ErrBusy               = errors.New("a reply is still pending")
	ErrEmptyQuestion      = errors.New("question is empty")
	ErrConversationClosed = errors.New("conversation is closed")
)

// Conversation owns the transcript of one session and serialises its turns.
type Conversation struct {
	orchestrator  *Orchestrator
	promptContext string

	mu         sync.Mutex
	transcript models.Transcript
	pending    string
	phase      Phase
}

func NewConversation(o *Orchestrator, promptContext string) *Conversation {
	return &Conversation{orchestrator: o, promptContext: promptContext}
}

// Submit records question as a user turn, then blocks until the reply (or
// its error text) has been recorded. Only one question may be in flight at a
// time. If the conversation is closed meanwhile the reply is dropped and the
// user turn stays.
func (c *Conversation) Submit(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)

	c.mu.Lock()
	switch {
	case c.phase == PhaseDone:
		c.mu.Unlock()
		return "", ErrConversationClosed
	case c.phase == PhaseAwaitingReply:
		c.mu.Unlock()
		return "", ErrBusy
	case question == "":
		c.mu.Unlock()
		return "", ErrEmptyQuestion
	}
	c.transcript = c.transcript.Append(models.RoleUser, question)
	c.phase = PhaseAwaitingReply
	c.pending = question
	c.mu.Unlock()

	reply := c.orchestrator.Reply(ctx, c.promptContext, question)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = ""
	if c.phase == PhaseDone {
		return reply, ErrConversationClosed
	}
	c.transcript = c.transcript.Append(models.RoleAssistant, reply)
	c.phase = PhaseIdle
	return reply, nil
}

// Transcript returns the committed turns.
func (c *Conversation) Transcript() models.Transcript {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}

// Pending returns the question awaiting a reply, if any. It is already the
// last turn of the transcript.
func (c *Conversation) Pending() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending, c.phase == PhaseAwaitingReply
}

func (c *Conversation) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Close ends the conversation. A reply still in flight is discarded.
func (c *Conversation) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.phase = PhaseDone
}
