// Package portal is the sign-in / sign-up flow that gates the chat screen.
package portal

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ydkdan6/poly-com-ai/internal/client"
	"github.com/ydkdan6/poly-com-ai/internal/models"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
)

// Notice texts
const (
	TitleError       = "Error"
	TitleWelcomeBack = "Welcome back!"
	TitleCreated     = "Account created!"
	TitleSignedOut   = "Signed out"

	SignedInText   = "You have successfully signed in."
	SignUpText     = "Please check your email to verify your account."
	SignedOutText  = "You have been successfully signed out."
	UnexpectedText = "An unexpected error occurred."
)

// Tab of the auth screen
type Tab int

const (
	TabSignIn Tab = iota
	TabSignUp
)

// Screen the application shows
type Screen int

const (
	ScreenAuth Screen = iota
	ScreenChat
)

// Identity is the account backend
type Identity interface {
	SignIn(ctx context.Context, email, password string) (*models.UserResponse, error)
	SignUp(ctx context.Context, email, password, fullName string) (string, error)
	SignOut(ctx context.Context) error
}

// Notice is a toast-style message
type Notice struct {
	Title string
	Text  string
	Error bool
}

// Result of a submit. Ignored is set when another submit was still in flight.
type Result struct {
	Notice  Notice
	User    *models.UserResponse
	Ignored bool
}

// Portal holds the auth screen state
type Portal struct {
	identity Identity
	validate *validator.Validate
	log      *logger.Logger

	mu      sync.Mutex
	tab     Tab
	screen  Screen
	loading bool
}

// New creates a portal on the sign-in tab of the auth screen
func New(identity Identity, log *logger.Logger) *Portal {
	if log == nil {
		log = logger.Nop()
	}
	return &Portal{
		identity: identity,
		validate: validator.New(),
		log:      log,
	}
}

// SelectTab switches between sign-in and sign-up
func (p *Portal) SelectTab(t Tab) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tab = t
}

// Tab returns the selected tab
func (p *Portal) Tab() Tab {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tab
}

// Screen returns the screen to show
func (p *Portal) Screen() Screen {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.screen
}

// SignIn submits the sign-in form. Success navigates to the chat screen.
func (p *Portal) SignIn(ctx context.Context, email, password string) Result {
	if msg := p.checkFields(email, password); msg != "" {
		return failure(msg)
	}
	if !p.begin() {
		return Result{Ignored: true}
	}
	defer p.end()

	user, err := p.identity.SignIn(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return p.providerFailure("sign in", err)
	}

	p.mu.Lock()
	p.screen = ScreenChat
	p.mu.Unlock()

	return Result{
		Notice: Notice{Title: TitleWelcomeBack, Text: SignedInText},
		User:   user,
	}
}

// SignUp submits the sign-up form. The user stays on the auth screen until the
// address is verified.
func (p *Portal) SignUp(ctx context.Context, email, password, fullName string) Result {
	if msg := p.checkFields(email, password); msg != "" {
		return failure(msg)
	}
	if !p.begin() {
		return Result{Ignored: true}
	}
	defer p.end()

	if _, err := p.identity.SignUp(ctx, strings.TrimSpace(email), password, strings.TrimSpace(fullName)); err != nil {
		return p.providerFailure("sign up", err)
	}

	return Result{Notice: Notice{Title: TitleCreated, Text: SignUpText}}
}

// SignOut ends the session and returns to the auth screen
func (p *Portal) SignOut(ctx context.Context) Result {
	if err := p.identity.SignOut(ctx); err != nil {
		return p.providerFailure("sign out", err)
	}

	p.mu.Lock()
	p.screen = ScreenAuth
	p.tab = TabSignIn
	p.mu.Unlock()

	return Result{Notice: Notice{Title: TitleSignedOut, Text: SignedOutText}}
}

// checkFields runs the only client-side checks: presence and email shape
func (p *Portal) checkFields(email, password string) string {
	email = strings.TrimSpace(email)
	if email == "" {
		return "Email is required"
	}
	if err := p.validate.Var(email, "email"); err != nil {
		return "Please enter a valid email address"
	}
	if password == "" {
		return "Password is required"
	}
	return ""
}

func (p *Portal) begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loading {
		return false
	}
	p.loading = true
	return true
}

func (p *Portal) end() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loading = false
}

// providerFailure shows the backend's message as-is, or a generic one when the
// backend was never reached
func (p *Portal) providerFailure(action string, err error) Result {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return failure(apiErr.Message)
	}

	p.log.Error("Unexpected auth failure", "action", action, "error", err.Error())
	return failure(UnexpectedText)
}

func failure(text string) Result {
	return Result{Notice: Notice{Title: TitleError, Text: text, Error: true}}
}
