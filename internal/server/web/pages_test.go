package web

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brooksh/brook/internal/models"
)

func testProfile() *models.Profile {
	return &models.Profile{
		UID:          1,
		Username:     "ada",
		DisplayAlias: "Ada <Lovelace>",
		ProfileViews: 42,
		CreatedAt:    time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		LastUpdated:  time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestProfilePage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ProfilePage(testProfile()).Render(context.Background(), &buf))

	html := buf.String()
	assert.Contains(t, html, "<!doctype html>")
	assert.Contains(t, html, "@ada")
	assert.Contains(t, html, "42 profile views")
	assert.Contains(t, html, "January 15, 2026")
	assert.Contains(t, html, "Ada &lt;Lovelace&gt;")
	assert.NotContains(t, html, "<Lovelace>")
}

func TestAccountPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, AccountPage(testProfile()).Render(context.Background(), &buf))

	html := buf.String()
	assert.Contains(t, html, "Welcome back")
	assert.Contains(t, html, `href="/ada"`)
	assert.Contains(t, html, "February 1, 2026")
}

func TestNotFoundPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NotFoundPage("<script>").Render(context.Background(), &buf))

	html := buf.String()
	assert.Contains(t, html, "Nobody here")
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestLoginPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, LoginPage().Render(context.Background(), &buf))

	html := buf.String()
	assert.Contains(t, html, `id="login"`)
	assert.Contains(t, html, "/auth/login")
}

func TestRenderCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	assert.ErrorIs(t, ProfilePage(testProfile()).Render(ctx, &buf), context.Canceled)
}
