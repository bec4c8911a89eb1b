package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentiment-dashboard/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("PRODUCT  SENTIMENT_SCORE\nSkis     0.8", "Which product is best?")

	assert.Equal(t, "Answer this question using the dataset:\n\n<context>\nPRODUCT  SENTIMENT_SCORE\nSkis     0.8\n</context>\n\nQuestion: Which product is best?", prompt)
}

func TestAskSuccess(t *testing.T) {
	client := &fakeClient{reply: "Skis score highest."}
	o := NewOrchestrator(client, time.Second)

	before := models.NewTranscript()
	after, reply := o.Ask(context.Background(), before, "ctx-table", "Which product is best?")

	assert.Equal(t, "Skis score highest.", reply)
	assert.Equal(t, 0, before.Len(), "input transcript is not modified")
	assert.Equal(t, []models.ChatTurn{
		{Role: models.RoleUser, Content: "Which product is best?"},
		{Role: models.RoleAssistant, Content: "Skis score highest."},
	}, after.Turns())
	assert.Contains(t, client.lastPrompt(), "<context>\nctx-table\n</context>")
}

func TestAskTimeoutIsRecordedAndNextTurnProceeds(t *testing.T) {
	client := &fakeClient{block: make(chan struct{})}
	conv := NewConversation(NewOrchestrator(client, 20*time.Millisecond), "ctx")

	reply, err := conv.Submit(context.Background(), "What is the average sentiment?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(reply, "Completion error:"), reply)
	assert.Contains(t, reply, context.DeadlineExceeded.Error())

	turns := conv.Transcript().Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, models.ChatTurn{Role: models.RoleAssistant, Content: reply}, turns[1])
	assert.Equal(t, PhaseIdle, conv.Phase())

	client.set("0.33", nil, nil)
	reply, err = conv.Submit(context.Background(), "And now?")
	require.NoError(t, err)
	assert.Equal(t, "0.33", reply)
	assert.Equal(t, 4, conv.Transcript().Len())
}

func TestReplyTurnsErrorIntoText(t *testing.T) {
	o := NewOrchestrator(&fakeClient{err: errors.New("quota exceeded")}, 0)
	assert.Equal(t, "Completion error: quota exceeded", o.Reply(context.Background(), "ctx", "q"))
}

func TestAskErrorIsSwallowed(t *testing.T) {
	client := &fakeClient{err: errors.New("model overloaded")}
	after, reply := NewOrchestrator(client, 0).Ask(context.Background(), models.NewTranscript(), "ctx", "q")

	assert.Equal(t, "Completion error: model overloaded", reply)
	last, ok := after.Last()
	require.True(t, ok)
	assert.Equal(t, models.RoleAssistant, last.Role)
}

func TestConversationRejectsConcurrentSubmit(t *testing.T) {
	release := make(chan struct{})
	client := &fakeClient{reply: "done", block: release}
	conv := NewConversation(NewOrchestrator(client, 0), "ctx")

	done := make(chan string)
	go func() {
		reply, _ := conv.Submit(context.Background(), "first")
		done <- reply
	}()

	require.Eventually(t, func() bool { return conv.Phase() == PhaseAwaitingReply }, time.Second, time.Millisecond)
	pending, ok := conv.Pending()
	assert.True(t, ok)
	assert.Equal(t, "first", pending)

	turns := conv.Transcript().Turns()
	require.Len(t, turns, 1, "question is recorded before the reply arrives")
	assert.Equal(t, models.ChatTurn{Role: models.RoleUser, Content: "first"}, turns[0])

	_, err := conv.Submit(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1, conv.Transcript().Len())

	close(release)
	assert.Equal(t, "done", <-done)
	assert.Equal(t, 2, conv.Transcript().Len())
	assert.Equal(t, PhaseIdle, conv.Phase())
}

func TestConversationCloseWhileAwaitingKeepsQuestion(t *testing.T) {
	release := make(chan struct{})
	conv := NewConversation(NewOrchestrator(&fakeClient{reply: "late", block: release}, 0), "ctx")

	errc := make(chan error)
	go func() {
		_, err := conv.Submit(context.Background(), "still there?")
		errc <- err
	}()

	require.Eventually(t, func() bool { return conv.Phase() == PhaseAwaitingReply }, time.Second, time.Millisecond)
	conv.Close()
	close(release)

	assert.ErrorIs(t, <-errc, ErrConversationClosed)
	assert.Equal(t, []models.ChatTurn{
		{Role: models.RoleUser, Content: "still there?"},
	}, conv.Transcript().Turns())
	assert.Equal(t, PhaseDone, conv.Phase())
}

func TestConversationEmptyQuestion(t *testing.T) {
	client := &fakeClient{reply: "x"}
	conv := NewConversation(NewOrchestrator(client, 0), "ctx")

	_, err := conv.Submit(context.Background(), "   \n")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Equal(t, 0, conv.Transcript().Len())
	assert.Empty(t, client.lastPrompt())
}

func TestConversationClose(t *testing.T) {
	conv := NewConversation(NewOrchestrator(&fakeClient{reply: "x"}, 0), "ctx")
	_, err := conv.Submit(context.Background(), "hi")
	require.NoError(t, err)

	conv.Close()
	assert.Equal(t, PhaseDone, conv.Phase())

	_, err = conv.Submit(context.Background(), "again")
	assert.ErrorIs(t, err, ErrConversationClosed)
	assert.Equal(t, 2, conv.Transcript().Len())
}

func TestConversationReplayIsStable(t *testing.T) {
	conv := NewConversation(NewOrchestrator(&fakeClient{reply: "x"}, 0), "ctx")
	_, err := conv.Submit(context.Background(), "hi")
	require.NoError(t, err)

	first := conv.Transcript().Turns()
	second := conv.Transcript().Turns()
	assert.Equal(t, first, second)

	first[0].Content = "mutated"
	assert.Equal(t, "hi", conv.Transcript().Turns()[0].Content)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "awaiting_reply", PhaseAwaitingReply.String())
	assert.Equal(t, "done", PhaseDone.String())
}
