package cli

import (
	"context"
	"fmt"
)

func (c *Cli) runLogout(ctx context.Context) error {
	c.io.Println("=== Logout ===")

	session, err := c.loadSession(ctx)
	if err != nil {
		return err
	}
	if session == nil {
		c.io.Println("Not logged in.")
		return nil
	}

	if err := c.api.Logout(ctx, session.SessionID); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	if err := c.forgetSession(ctx); err != nil {
		return err
	}

	c.io.Println("✓ Logout successful!")
	c.io.Println("Your local session has been deleted.")

	return nil
}
