package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/ydkdan6/poly-com-ai/internal/chat"
	"github.com/ydkdan6/poly-com-ai/internal/client"
	"github.com/ydkdan6/poly-com-ai/internal/models"
	"github.com/ydkdan6/poly-com-ai/internal/portal"
	"github.com/ydkdan6/poly-com-ai/pkg/logger"
)

type options struct {
	server    string
	timeout   time.Duration
	tokenFile string
	verbose   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "chat-cli",
		Short:        "Computer Science Department assistant, Kaduna Polytechnic",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.server, "server", envOr("CS_ASSISTANT_URL", "http://localhost:8081"), "backend base URL")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "per-request timeout (0 for none)")
	root.PersistentFlags().StringVar(&opts.tokenFile, "token-file", defaultTokenFile(), "where the sign-in token is kept")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log backend calls to stderr")

	root.AddCommand(
		&cobra.Command{
			Use:   "signin",
			Short: "Sign in with email and password",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSignIn(cmd.Context(), opts)
			},
		},
		&cobra.Command{
			Use:   "signup",
			Short: "Create an account",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSignUp(cmd.Context(), opts)
			},
		},
		&cobra.Command{
			Use:   "signout",
			Short: "Sign out and revoke the stored token",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSignOut(cmd.Context(), opts)
			},
		},
		&cobra.Command{
			Use:   "chat",
			Short: "Start a conversation (the default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runChat(cmd.Context(), opts)
			},
		},
	)

	return root
}

func newClient(opts *options) (*client.Client, *logger.Logger) {
	log := logger.Nop()
	if opts.verbose {
		cfg := logger.DefaultConfig()
		cfg.Level = "debug"
		cfg.JSON = false
		log = logger.New(cfg)
	}

	c := client.New(client.Config{BaseURL: opts.server, Timeout: opts.timeout}, log)
	if token, err := loadToken(opts.tokenFile); err == nil {
		c.SetToken(token)
	}
	return c, log
}

func runSignIn(ctx context.Context, opts *options) error {
	c, log := newClient(opts)
	p := portal.New(c, log)

	answers := struct {
		Email    string
		Password string
	}{}
	err := survey.Ask([]*survey.Question{
		{Name: "email", Prompt: &survey.Input{Message: "Email"}, Validate: survey.Required},
		{Name: "password", Prompt: &survey.Password{Message: "Password"}, Validate: survey.Required},
	}, &answers)
	if err != nil {
		return err
	}

	res := p.SignIn(ctx, answers.Email, answers.Password)
	showNotice(res.Notice)
	if res.Notice.Error {
		return errors.New(res.Notice.Text)
	}

	if err := saveToken(opts.tokenFile, c.Token()); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	if p.Screen() == portal.ScreenChat {
		return runChatWith(ctx, c, log)
	}
	return nil
}

func runSignUp(ctx context.Context, opts *options) error {
	c, log := newClient(opts)
	p := portal.New(c, log)
	p.SelectTab(portal.TabSignUp)

	answers := struct {
		FullName string `survey:"fullName"`
		Email    string
		Password string
	}{}
	err := survey.Ask([]*survey.Question{
		{Name: "fullName", Prompt: &survey.Input{Message: "Full name"}},
		{Name: "email", Prompt: &survey.Input{Message: "Email"}, Validate: survey.Required},
		{Name: "password", Prompt: &survey.Password{Message: "Password"}, Validate: survey.Required},
	}, &answers)
	if err != nil {
		return err
	}

	res := p.SignUp(ctx, answers.Email, answers.Password, answers.FullName)
	showNotice(res.Notice)
	if res.Notice.Error {
		return errors.New(res.Notice.Text)
	}
	return nil
}

func runSignOut(ctx context.Context, opts *options) error {
	c, log := newClient(opts)
	p := portal.New(c, log)

	res := p.SignOut(ctx)
	showNotice(res.Notice)
	if err := os.Remove(opts.tokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if res.Notice.Error {
		return errors.New(res.Notice.Text)
	}
	return nil
}

func runChat(ctx context.Context, opts *options) error {
	c, log := newClient(opts)
	return runChatWith(ctx, c, log)
}

func runChatWith(ctx context.Context, c *client.Client, log *logger.Logger) error {
	ctl := chat.NewController(c, func(n chat.Notice) {
		if n.Level == chat.NoticeError {
			errorColor.Println(n.Text)
			return
		}
		warnColor.Println(n.Text)
	}, log)

	title("Computer Science Department Assistant")
	ctl.Bootstrap(ctx)
	for _, m := range ctl.Messages() {
		printMessage(m)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptColor.Sprint("> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistoryFile:       filepath.Join(os.TempDir(), "cs-assistant.history"),
		HistorySearchFold: true,
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.TrimSpace(line) {
		case "/exit", "/quit":
			return nil
		}

		before := len(ctl.Messages())
		if !ctl.Send(ctx, line) {
			continue
		}
		msgs := ctl.Messages()
		for _, m := range msgs[before:] {
			if m.Role == models.RoleAssistant {
				printMessage(m)
			}
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "cs-assistant", "token")
}

func loadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func saveToken(path, token string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0o600)
}
