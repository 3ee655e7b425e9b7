// Package chat drives one conversation: the in-memory transcript, the session it
// is mirrored to, and one relay call per user turn.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ydkdan6/poly-com-ai/internal/client"
	"github.com/ydkdan6/poly-com-ai/internal/models"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
	"github.com/ydkdan6/poly-com-ai/pkg/relay"
)

const (
	// Greeting seeds every transcript
	Greeting = "Hello! I'm your AI assistant for the Computer Science Department at Kaduna Polytechnic. How can I help you today?"

	// SessionTitle names every persisted session
	SessionTitle = "Chat Session"

	// AnonymousPrefix marks a client-side session that is never persisted
	AnonymousPrefix = "anonymous-"

	// UnsavedWarning is shown when the conversation falls back to an anonymous session
	UnsavedWarning = "Chat history will not be saved for this conversation."

	// RelayFailedNotice accompanies the apology appended after a failed relay call
	RelayFailedNotice = "Failed to get AI response"
)

// Apologies shown in place of a reply, keyed by failure kind
const (
	ApologyUnavailable  = "The assistant service is not available right now. Please contact the department directly."
	ApologyTimeout      = "The request took too long to complete. Please try again in a moment."
	ApologyUnauthorized = "Your session has expired. Please sign in again to continue."
)

// State of the controller
type State int

const (
	StateInitializing State = iota
	StateIdle
	StateWaiting
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// Message is one transcript entry
type Message struct {
	ID        string
	Content   string
	Role      string
	Timestamp time.Time
}

// NoticeLevel grades a Notice
type NoticeLevel string

const (
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient message for the user, outside the transcript
type Notice struct {
	Level NoticeLevel
	Text  string
}

// Backend is what the controller needs from the server
type Backend interface {
	CurrentUser(ctx context.Context) (*models.UserResponse, error)
	CreateSession(ctx context.Context, title string) (*models.ChatSession, error)
	AppendMessage(ctx context.Context, sessionID, content, role string) error
	Relay(ctx context.Context, message string, sessionID *string) (client.Reply, error)
}

// Controller is safe for concurrent use; only one send is in flight at a time
type Controller struct {
	backend Backend
	log     *logger.Logger
	notify  func(Notice)
	now     func() time.Time

	mu         sync.Mutex
	state      State
	sessionID  string
	persistent bool
	messages   []Message
}

// NewController creates a controller in the initializing state with the greeting
// already in its transcript. notify may be nil.
func NewController(backend Backend, notify func(Notice), log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	if notify == nil {
		notify = func(Notice) {}
	}

	c := &Controller{
		backend: backend,
		log:     log,
		notify:  notify,
		now:     time.Now,
		state:   StateInitializing,
	}
	c.messages = []Message{c.newMessage(Greeting, models.RoleAssistant)}
	return c
}

// Bootstrap opens the session. With a signed-in user and a working store the
// session is persistent; otherwise an anonymous session is used and a warning
// is emitted. Calling it outside the initializing state does nothing.
func (c *Controller) Bootstrap(ctx context.Context) {
	c.mu.Lock()
	if c.state != StateInitializing {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	sessionID, err := c.openSession(ctx)
	persistent := err == nil
	if err != nil {
		c.log.Warn("Falling back to anonymous chat session", "error", err.Error())
		sessionID = AnonymousPrefix + uuid.New().String()
	}

	c.mu.Lock()
	c.sessionID = sessionID
	c.persistent = persistent
	c.state = StateIdle
	c.mu.Unlock()

	if !persistent {
		c.notify(Notice{Level: NoticeWarning, Text: UnsavedWarning})
	}
}

func (c *Controller) openSession(ctx context.Context) (string, error) {
	user, err := c.backend.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", client.ErrNotSignedIn
	}

	session, err := c.backend.CreateSession(ctx, SessionTitle)
	if err != nil {
		return "", err
	}
	return session.ID, nil
}

// Send runs one user turn. It returns false without doing anything when text is
// blank or another turn is in flight.
func (c *Controller) Send(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return false
	}
	c.state = StateWaiting
	userMsg := c.newMessage(text, models.RoleUser)
	c.messages = append(c.messages, userMsg)
	sessionID, persistent := c.sessionID, c.persistent
	c.mu.Unlock()

	if persistent {
		c.persist(ctx, sessionID, userMsg)
	}

	content := ""
	reply, err := c.backend.Relay(ctx, text, &sessionID)
	if err != nil {
		kind := FailureKind(err)
		c.log.Error("Relay call failed", "kind", string(kind), "error", err.Error())
		content = Apology(kind)
	} else {
		content = reply.Text()
	}

	assistantMsg := c.newMessage(content, models.RoleAssistant)

	c.mu.Lock()
	c.messages = append(c.messages, assistantMsg)
	c.mu.Unlock()

	if persistent {
		c.persist(ctx, sessionID, assistantMsg)
	}
	if err != nil {
		c.notify(Notice{Level: NoticeError, Text: RelayFailedNotice})
	}

	c.mu.Lock()
	c.state = StateIdle
	c.mu.Unlock()
	return true
}

// persist mirrors one entry to the store; failures are logged only
func (c *Controller) persist(ctx context.Context, sessionID string, msg Message) {
	if err := c.backend.AppendMessage(ctx, sessionID, msg.Content, msg.Role); err != nil {
		c.log.Error("Error saving message", "sessionID", sessionID, "role", msg.Role, "error", err.Error())
	}
}

func (c *Controller) newMessage(content, role string) Message {
	return Message{
		ID:        uuid.New().String(),
		Content:   content,
		Role:      role,
		Timestamp: c.now(),
	}
}

// Messages returns a copy of the transcript
func (c *Controller) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the session id; empty before Bootstrap
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Persistent reports whether entries are mirrored to the store
func (c *Controller) Persistent() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.persistent
}

// FailureKind extracts the failure kind of a relay error
func FailureKind(err error) relay.FailureKind {
	var relayErr *client.RelayError
	if errors.As(err, &relayErr) {
		return relayErr.Kind
	}
	return relay.KindUnknown
}

// Apology picks the assistant text shown for a failed relay call
func Apology(kind relay.FailureKind) string {
	switch kind {
	case relay.KindConfiguration:
		return ApologyUnavailable
	case relay.KindTimeout:
		return ApologyTimeout
	case relay.KindUnauthorized:
		return ApologyUnauthorized
	default:
		return relay.TechnicalDifficulties
	}
}
