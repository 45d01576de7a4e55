// Package chat implements the dashboard assistant: a keyword table for
// common questions and a chat completion model for everything else.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/matthewbaird/estatein/internal/logger"
	"github.com/matthewbaird/estatein/internal/observability"
)

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Reply sources.
const (
	SourceKeyword  = "keyword"
	SourceModel    = "model"
	SourceFallback = "fallback"
)

const (
	// ConnectionErrorReply is sent when the model cannot be reached.
	ConnectionErrorReply = "Sorry, there was a connection error. Please try again."
	// NoModelReply is sent for unmatched questions when no model is configured.
	NoModelReply = "I can only answer the common dashboard questions right now. Try one of the suggested questions."

	defaultMaxHistory = 40
)

var (
	// ErrEmptyMessage is returned for blank input.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrBusy is returned while a reply for the same conversation is pending.
	ErrBusy = errors.New("a reply is already pending")
)

// Message is one entry of a conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Reply is the assistant's answer to one user message.
type Reply struct {
	Message Message `json:"message"`
	Source  string  `json:"source"`
}

type conversation struct {
	messages []Message
	busy     bool
}

// Assistant keeps one conversation per id, typically the session id.
type Assistant struct {
	rules      []Rule
	completer  Completer
	system     string
	maxHistory int
	now        func() time.Time
	log        zerolog.Logger

	mu    sync.Mutex
	convs map[string]*conversation
}

// NewAssistant creates an assistant. completer may be nil, in which case
// only the keyword table answers.
func NewAssistant(rules []Rule, completer Completer, site SiteInfo) *Assistant {
	return &Assistant{
		rules:      rules,
		completer:  completer,
		system:     site.SystemPrompt(),
		maxHistory: defaultMaxHistory,
		now:        time.Now,
		log:        logger.Component("chat"),
		convs:      make(map[string]*conversation),
	}
}

// Send records the user message and produces the reply. Model failures do
// not fail the call: the reply is a fixed apology and the conversation
// stays usable.
func (a *Assistant) Send(ctx context.Context, conversationID, input string) (Reply, error) {
	if strings.TrimSpace(input) == "" {
		return Reply{}, ErrEmptyMessage
	}

	a.mu.Lock()
	conv, ok := a.convs[conversationID]
	if !ok {
		conv = &conversation{}
		a.convs[conversationID] = conv
	}
	if conv.busy {
		a.mu.Unlock()
		return Reply{}, ErrBusy
	}
	conv.busy = true
	conv.messages = append(conv.messages, Message{Role: RoleUser, Content: input, Timestamp: a.now()})
	history := append([]Message(nil), conv.messages...)
	a.mu.Unlock()

	content, source := a.answer(ctx, input, history)
	reply := Reply{
		Message: Message{Role: RoleAssistant, Content: content, Timestamp: a.now()},
		Source:  source,
	}
	observability.ChatReplies.WithLabelValues(source).Inc()

	a.mu.Lock()
	conv.messages = append(conv.messages, reply.Message)
	if over := len(conv.messages) - a.maxHistory; over > 0 {
		conv.messages = append([]Message(nil), conv.messages[over:]...)
	}
	conv.busy = false
	a.mu.Unlock()
	return reply, nil
}

func (a *Assistant) answer(ctx context.Context, input string, history []Message) (string, string) {
	if resp, ok := Match(a.rules, input); ok {
		return resp, SourceKeyword
	}
	if a.completer == nil {
		return NoModelReply, SourceFallback
	}
	content, err := a.completer.Complete(ctx, a.system, history)
	if err != nil {
		a.log.Error().Err(err).Msg("chat completion failed")
		return ConnectionErrorReply, SourceFallback
	}
	return content, SourceModel
}

// History returns the messages of a conversation, oldest first.
func (a *Assistant) History(conversationID string) []Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	conv, ok := a.convs[conversationID]
	if !ok {
		return []Message{}
	}
	return append([]Message{}, conv.messages...)
}

// Reset forgets a conversation, e.g. on logout.
func (a *Assistant) Reset(conversationID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.convs, conversationID)
}

// Suggestions returns the suggested questions.
func (a *Assistant) Suggestions() []string {
	return append([]string(nil), Suggestions...)
}
