// Package cli implements the brook command line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brooksh/brook/internal/client/iocli"
	"github.com/brooksh/brook/internal/client/storage"
	"github.com/brooksh/brook/pkg/api"
)

// PasswordEnv lets scripts pass the account password without a prompt
const PasswordEnv = "BROOK_PASSWORD"

// ErrUsage is returned for unknown commands and bad arguments
var ErrUsage = errors.New("invalid usage")

// APIClient is the part of the HTTP client the commands use
type APIClient interface {
	BaseURL() string
	Register(ctx context.Context, req api.RegisterRequest) (*api.RegisterResponse, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.LoginResponse, error)
	CheckUsername(ctx context.Context, name string) (*api.UsernameCheckResponse, error)
	VerifyDevice(ctx context.Context, req api.VerifyDeviceRequest) (*api.VerifyDeviceResponse, error)
	Logout(ctx context.Context, sessionID string) error
	GetProfile(ctx context.Context, username string) (*api.ProfileResponse, error)
	Me(ctx context.Context, accessToken string) (*api.ProfileResponse, error)
}

// Cli runs one command per invocation
type Cli struct {
	api   APIClient
	store storage.SessionStore
	io    iocli.IO
	now   func() time.Time
}

// New creates a Cli
func New(apiClient APIClient, store storage.SessionStore, io iocli.IO) *Cli {
	return &Cli{
		api:   apiClient,
		store: store,
		io:    io,
		now:   time.Now,
	}
}

// Run dispatches args[0] to its command
func (c *Cli) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.PrintUsage()
		return ErrUsage
	}

	command, rest := args[0], args[1:]
	switch command {
	case "register":
		return c.runRegister(ctx, rest)
	case "login":
		return c.runLogin(ctx, rest)
	case "status":
		return c.runStatus(ctx)
	case "whoami":
		return c.runWhoami(ctx)
	case "logout":
		return c.runLogout(ctx)
	case "check":
		return c.runCheck(ctx, rest)
	case "profile":
		return c.runProfile(ctx, rest)
	case "help":
		c.PrintUsage()
		return nil
	default:
		c.io.Printf("Unknown command: %s\n", command)
		c.PrintUsage()
		return ErrUsage
	}
}

// PrintUsage writes the command summary
func (c *Cli) PrintUsage() {
	c.io.Println("Brook Client")
	c.io.Println()
	c.io.Println("Usage:")
	c.io.Println("  brook [OPTIONS] COMMAND")
	c.io.Println()
	c.io.Println("Options:")
	c.io.Println("  -version                 Show version information")
	c.io.Println("  -server URL              Server URL (default: http://localhost:8080)")
	c.io.Println("  -db PATH                 Path to local session cache (default: brook-client.db)")
	c.io.Println()
	c.io.Println("Commands:")
	c.io.Println("  register [-remember] [-password-file PATH]   Create an account")
	c.io.Println("  login [-remember] [-password-file PATH]      Log in with email and password")
	c.io.Println("  status                   Verify the saved device session")
	c.io.Println("  whoami                   Show the logged in profile")
	c.io.Println("  logout                   End the saved device session")
	c.io.Println("  check <username>         Check whether a username is available")
	c.io.Println("  profile <username>       Show a public profile")
	c.io.Println()
	c.io.Printf("The password is read from %s, then -password-file, then an interactive prompt.\n", PasswordEnv)
}

// getPassword picks the first source that is set: the BROOK_PASSWORD
// variable, the password file, an interactive prompt. prompted reports
// whether the user typed it.
func (c *Cli) getPassword(passwordFile, prompt string) (password string, prompted bool, err error) {
	if envPassword := os.Getenv(PasswordEnv); envPassword != "" {
		return envPassword, false, nil
	}

	if passwordFile != "" {
		content, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", false, fmt.Errorf("failed to read password file: %w", err)
		}
		fromFile := strings.TrimSpace(string(content))
		if fromFile == "" {
			return "", false, fmt.Errorf("password file is empty")
		}
		return fromFile, false, nil
	}

	password, err = c.io.ReadPassword(prompt)
	if err != nil {
		return "", true, fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", true, fmt.Errorf("password cannot be empty")
	}
	return password, true, nil
}

// saveGrant caches the session material returned by register or login
func (c *Cli) saveGrant(ctx context.Context, g *api.SessionGrant) error {
	session := &storage.Session{
		ServerURL:    c.api.BaseURL(),
		Username:     g.Username,
		SessionID:    g.SessionID,
		SessionToken: g.SessionToken,
		AccessToken:  g.AccessToken,
		ExpiresAt:    g.ExpiresAt,
	}
	if err := c.store.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// loadSession returns the cached session, or nil when there is none
func (c *Cli) loadSession(ctx context.Context) (*storage.Session, error) {
	session, err := c.store.GetSession(ctx, c.api.BaseURL())
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	return session, nil
}

func (c *Cli) forgetSession(ctx context.Context) error {
	err := c.store.DeleteSession(ctx, c.api.BaseURL())
	if err != nil && !errors.Is(err, storage.ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (c *Cli) accountURL(g *api.SessionGrant) string {
	return c.api.BaseURL() + g.RedirectURL
}
