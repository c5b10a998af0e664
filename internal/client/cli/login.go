package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/brooksh/brook/pkg/api"
)

func (c *Cli) runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(c.io)
	remember := fs.Bool("remember", false, "keep this device logged in for 30 days")
	passwordFile := fs.String("password-file", "", "read the password from a file")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}

	c.io.Println("=== Login ===")
	c.io.Println()

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	password, _, err := c.getPassword(*passwordFile, "Password: ")
	if err != nil {
		return err
	}

	grant, err := c.api.Login(ctx, api.LoginRequest{
		Email:          email,
		Password:       password,
		RememberDevice: *remember,
	})
	if err != nil {
		return err
	}

	if err := c.saveGrant(ctx, grant); err != nil {
		return err
	}

	c.io.Println()
	c.io.Println("✓ Login successful!")
	c.io.Printf("Username: %s\n", grant.Username)
	c.io.Printf("Account:  %s\n", c.accountURL(grant))
	c.io.Printf("Session valid until %s\n", grant.ExpiresAt.Local().Format("2006-01-02 15:04"))

	return nil
}
