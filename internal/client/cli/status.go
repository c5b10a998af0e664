package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/brooksh/brook/internal/client/api"
	"github.com/brooksh/brook/internal/client/storage"
	pkgapi "github.com/brooksh/brook/pkg/api"
)

// refresh verifies the cached session and stores the fresh access token.
// It returns nil when the session is gone; the local copy is then removed.
func (c *Cli) refresh(ctx context.Context, session *storage.Session) (*storage.Session, error) {
	if session.Expired(c.now()) {
		return nil, c.forgetSession(ctx)
	}

	resp, err := c.api.VerifyDevice(ctx, pkgapi.VerifyDeviceRequest{
		SessionID:    session.SessionID,
		SessionToken: session.SessionToken,
	})
	if err != nil {
		return nil, err
	}

	if !resp.Valid {
		return nil, c.forgetSession(ctx)
	}

	session.AccessToken = resp.AccessToken
	if resp.Username != "" {
		session.Username = resp.Username
	}
	if err := c.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Device Status ===")
	c.io.Println()

	session, err := c.loadSession(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		c.io.Println("Status: Not logged in")
		c.io.Println()
		c.io.Println("Run 'brook login' to authenticate.")
		return nil
	}

	session, err = c.refresh(ctx, session)
	if err != nil {
		return err
	}
	if session == nil {
		c.io.Println("Status: Session expired or revoked")
		c.io.Println()
		c.io.Println("Run 'brook login' to authenticate again.")
		return nil
	}

	c.io.Println("Status: Logged in")
	c.io.Printf("Username: %s\n", session.Username)
	c.io.Printf("Session expires: %s\n", session.ExpiresAt.Local().Format(time.RFC3339))
	c.io.Printf("Time remaining: %s\n", session.ExpiresAt.Sub(c.now()).Round(time.Minute))

	return nil
}

func (c *Cli) runWhoami(ctx context.Context) error {
	session, err := c.loadSession(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("not logged in, run 'brook login' first")
	}

	profile, err := c.api.Me(ctx, session.AccessToken)
	if api.StatusOf(err) == http.StatusUnauthorized {
		// the access token outlived its ttl; the device session may not have
		session, err = c.refresh(ctx, session)
		if err != nil {
			return err
		}
		if session == nil {
			return fmt.Errorf("session expired or revoked, run 'brook login' again")
		}
		profile, err = c.api.Me(ctx, session.AccessToken)
	}
	if err != nil {
		return err
	}

	c.printProfile(profile)
	return nil
}

func (c *Cli) printProfile(p *pkgapi.ProfileResponse) {
	c.io.Printf("Username:      %s\n", p.Username)
	c.io.Printf("Display name:  %s\n", p.DisplayName)
	c.io.Printf("Profile views: %d\n", p.ProfileViews)
	c.io.Printf("Member since:  %s\n", p.CreatedAt.Local().Format("2006-01-02"))
}
