package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/estatein/internal/observability"
)

type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	block   chan struct{}
	system  string
	history [][]Message
}

func (f *fakeCompleter) Complete(ctx context.Context, system string, history []Message) (string, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.system = system
	f.history = append(f.history, append([]Message(nil), history...))
	return f.reply, f.err
}

func TestMatch(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"How do I ADD A NEW PROPERTY?", "To add a new property", true},
		{"please add property", "To add a new property", true},
		{"How do I edit property details", "To edit an existing property", true},
		{"register client now", "To add a new client", true},
		{"show me the property list", "To view all properties", true},
		{"where is the client list", "To view all clients", true},
		{"stats please", "To access statistics", true},
		{"who are the staff", "To manage team members", true},
		{"change office address", "To update office location", true},
		{"Thanks a lot", "You're welcome!", true},
		{"what is the weather", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Match(DefaultRules, tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Contains(t, got, tt.want)
			}
		})
	}
}

func TestMatch_FirstRuleWins(t *testing.T) {
	// "add property" and "data" both appear; the property rule is earlier.
	got, ok := Match(DefaultRules, "add property data")
	require.True(t, ok)
	assert.Contains(t, got, "To add a new property")
}

func TestSystemPrompt(t *testing.T) {
	p := DefaultSite.SystemPrompt()
	assert.Contains(t, p, `"Estatein"`)
	assert.Contains(t, p, "Apartments, Villas, Stores, Lands")
	assert.Contains(t, p, "200 happy customers, 10k+ properties, 16+ years experience")
	assert.Contains(t, p, "+966112345678")
	assert.Contains(t, p, "support@esty.com")
}

func TestAssistant_KeywordReplySkipsModel(t *testing.T) {
	fc := &fakeCompleter{reply: "model"}
	a := NewAssistant(DefaultRules, fc, DefaultSite)

	before := testutil.ToFloat64(observability.ChatReplies.WithLabelValues(SourceKeyword))
	r, err := a.Send(context.Background(), "s1", "How do I add a new property?")
	require.NoError(t, err)
	assert.Equal(t, SourceKeyword, r.Source)
	assert.Equal(t, RoleAssistant, r.Message.Role)
	assert.Empty(t, fc.history)
	assert.Equal(t, before+1, testutil.ToFloat64(observability.ChatReplies.WithLabelValues(SourceKeyword)))

	h := a.History("s1")
	require.Len(t, h, 2)
	assert.Equal(t, RoleUser, h[0].Role)
	assert.Equal(t, RoleAssistant, h[1].Role)
}

func TestAssistant_ModelReceivesHistory(t *testing.T) {
	fc := &fakeCompleter{reply: "Sure."}
	a := NewAssistant(DefaultRules, fc, DefaultSite)
	ctx := context.Background()

	_, err := a.Send(ctx, "s1", "thanks")
	require.NoError(t, err)
	r, err := a.Send(ctx, "s1", "What colors can I pick?")
	require.NoError(t, err)

	assert.Equal(t, SourceModel, r.Source)
	assert.Equal(t, "Sure.", r.Message.Content)
	assert.Equal(t, DefaultSite.SystemPrompt(), fc.system)
	require.Len(t, fc.history, 1)
	sent := fc.history[0]
	require.Len(t, sent, 3)
	assert.Equal(t, "thanks", sent[0].Content)
	assert.Equal(t, RoleAssistant, sent[1].Role)
	assert.Equal(t, "What colors can I pick?", sent[2].Content)
}

func TestAssistant_CompleterErrorApologises(t *testing.T) {
	fc := &fakeCompleter{err: errors.New("dial tcp: refused")}
	a := NewAssistant(DefaultRules, fc, DefaultSite)

	r, err := a.Send(context.Background(), "s1", "Explain mortgages")
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, r.Source)
	assert.Equal(t, ConnectionErrorReply, r.Message.Content)

	fc.err = nil
	fc.reply = "ok"
	r, err = a.Send(context.Background(), "s1", "Explain again")
	require.NoError(t, err)
	assert.Equal(t, "ok", r.Message.Content)
}

func TestAssistant_NoCompleter(t *testing.T) {
	a := NewAssistant(DefaultRules, nil, DefaultSite)
	r, err := a.Send(context.Background(), "s1", "Explain mortgages")
	require.NoError(t, err)
	assert.Equal(t, NoModelReply, r.Message.Content)
}

func TestAssistant_RejectsEmptyInput(t *testing.T) {
	a := NewAssistant(DefaultRules, nil, DefaultSite)
	_, err := a.Send(context.Background(), "s1", "   \n")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, a.History("s1"))
}

func TestAssistant_BusyWhilePending(t *testing.T) {
	fc := &fakeCompleter{reply: "done", block: make(chan struct{})}
	a := NewAssistant(DefaultRules, fc, DefaultSite)

	done := make(chan error, 1)
	go func() {
		_, err := a.Send(context.Background(), "s1", "first question")
		done <- err
	}()

	require.Eventually(t, func() bool {
		return len(a.History("s1")) == 1
	}, time2s, tick)

	_, err := a.Send(context.Background(), "s1", "second question")
	assert.ErrorIs(t, err, ErrBusy)

	// Other conversations are unaffected.
	_, err = a.Send(context.Background(), "s2", "thanks")
	assert.NoError(t, err)

	close(fc.block)
	require.NoError(t, <-done)
	assert.Len(t, a.History("s1"), 2)
}

func TestAssistant_HistoryBoundedAndReset(t *testing.T) {
	a := NewAssistant(DefaultRules, nil, DefaultSite)
	a.maxHistory = 4
	for i := 0; i < 5; i++ {
		_, err := a.Send(context.Background(), "s1", "thanks")
		require.NoError(t, err)
	}
	assert.Len(t, a.History("s1"), 4)

	a.Reset("s1")
	assert.Empty(t, a.History("s1"))
	assert.Len(t, a.Suggestions(), 8)
}

const (
	time2s = 2 * time.Second
	tick   = 5 * time.Millisecond
)
