package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/brooksh/brook/internal/validation"
	"github.com/brooksh/brook/pkg/api"
)

func (c *Cli) runRegister(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(c.io)
	remember := fs.Bool("remember", false, "keep this device logged in for 30 days")
	passwordFile := fs.String("password-file", "", "read the password from a file")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}

	c.io.Println("=== Registration ===")
	c.io.Println()

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	if err := validation.ValidateUsername(username); err != nil {
		return err
	}

	check, err := c.api.CheckUsername(ctx, username)
	if err != nil {
		return err
	}
	if !check.Available {
		return fmt.Errorf("username %q is not available: %s", username, check.Reason)
	}

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	displayName, err := c.io.ReadInput("Display name (optional): ")
	if err != nil {
		return fmt.Errorf("failed to read display name: %w", err)
	}

	password, prompted, err := c.getPassword(*passwordFile, fmt.Sprintf("Password (min %d chars): ", validation.MinPasswordLen))
	if err != nil {
		return err
	}
	if prompted {
		confirm, err := c.io.ReadPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if confirm != password {
			return fmt.Errorf("passwords do not match")
		}
	}

	grant, err := c.api.Register(ctx, api.RegisterRequest{
		Username:       username,
		Email:          email,
		Password:       password,
		DisplayName:    displayName,
		RememberDevice: *remember,
	})
	if err != nil {
		return err
	}

	if err := c.saveGrant(ctx, grant); err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Registration successful!")
	c.io.Printf("Username: %s\n", grant.Username)
	c.io.Printf("Profile:  %s/%s\n", c.api.BaseURL(), grant.Username)
	c.io.Printf("Account:  %s\n", c.accountURL(grant))
	c.io.Printf("Session valid until %s\n", grant.ExpiresAt.Local().Format("2006-01-02 15:04"))

	return nil
}
