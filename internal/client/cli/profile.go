package cli

import (
	"context"
	"net/http"

	"github.com/brooksh/brook/internal/client/api"
)

func (c *Cli) runCheck(ctx context.Context, args []string) error {
	if len(args) != 1 {
		c.io.Println("Usage: brook check <username>")
		return ErrUsage
	}

	resp, err := c.api.CheckUsername(ctx, args[0])
	if err != nil {
		return err
	}

	if resp.Available {
		c.io.Printf("✓ %s is available\n", args[0])
		return nil
	}
	c.io.Printf("✗ %s is not available: %s\n", args[0], resp.Reason)
	return nil
}

func (c *Cli) runProfile(ctx context.Context, args []string) error {
	if len(args) != 1 {
		c.io.Println("Usage: brook profile <username>")
		return ErrUsage
	}

	profile, err := c.api.GetProfile(ctx, args[0])
	if err != nil {
		if api.StatusOf(err) == http.StatusNotFound {
			c.io.Printf("No profile named %s\n", args[0])
			return nil
		}
		return err
	}

	c.printProfile(profile)
	c.io.Printf("Page:          %s/%s\n", c.api.BaseURL(), profile.Username)
	return nil
}
