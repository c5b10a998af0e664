// Package auth is the entry point for registration, login, device checks,
// logout and profile lookups. It composes the credential and profile stores,
// the device session manager and the access token issuer.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/brooksh/brook/internal/crypto"
	"github.com/brooksh/brook/internal/models"
	"github.com/brooksh/brook/internal/server/session"
	"github.com/brooksh/brook/internal/server/storage"
	"github.com/brooksh/brook/internal/server/token"
	"github.com/brooksh/brook/internal/validation"
)

const tracerName = "github.com/brooksh/brook/internal/server/auth"

// MaxDisplayNameLen bounds the optional display name, in runes
const MaxDisplayNameLen = 50

// Gateway orchestrates identity operations
type Gateway struct {
	credentials storage.CredentialStorage
	profiles    storage.ProfileStorage
	sessions    *session.Manager
	tokens      token.Issuer
	hasher      *crypto.PasswordHasher
	logger      *slog.Logger
	tracer      trace.Tracer
	now         func() time.Time

	// hashed on first use; verified against when the email is unknown so
	// that both login failures cost the same
	dummyOnce sync.Once
	dummyHash string
}

// Deps are the collaborators of a Gateway
type Deps struct {
	Credentials storage.CredentialStorage
	Profiles    storage.ProfileStorage
	Sessions    *session.Manager
	Tokens      token.Issuer
	Hasher      *crypto.PasswordHasher
	Logger      *slog.Logger
	Now         func() time.Time
}

// NewGateway creates a Gateway
func NewGateway(d Deps) *Gateway {
	now := d.Now
	if now == nil {
		now = time.Now
	}

	return &Gateway{
		credentials: d.Credentials,
		profiles:    d.Profiles,
		sessions:    d.Sessions,
		tokens:      d.Tokens,
		hasher:      d.Hasher,
		logger:      d.Logger,
		tracer:      otel.Tracer(tracerName),
		now:         now,
	}
}

// RegisterInput is the registration request
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	Fingerprint string
	Remember    bool
}

// LoginInput is the login request
type LoginInput struct {
	Email       string
	Password    string
	Fingerprint string
	Remember    bool
}

// Grant is what a successful register or login hands back to the device
type Grant struct {
	Profile     *models.Profile
	Session     *session.Credentials
	AccessToken string
}

// Availability answers a username check
type Availability struct {
	Reason    string
	Available bool
}

// DeviceStatus answers a device check. Valid is false for any invalid session.
type DeviceStatus struct {
	Profile     *models.Profile
	AccessToken string
	Valid       bool
}

// Register creates the credential, then the profile. If the profile cannot be
// created the credential is deleted again, so no credential outlives a failed
// registration.
func (g *Gateway) Register(ctx context.Context, in RegisterInput) (_ *Grant, err error) {
	ctx, span := g.tracer.Start(ctx, "auth.Register")
	defer func() { endSpan(span, err) }()

	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, validationError(err)
	}
	if validation.IsReservedUsername(in.Username) {
		return nil, &Error{Kind: KindValidation, Message: MsgUsernameReserved}
	}

	email := validation.NormalizeEmail(in.Email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, validationError(err)
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, validationError(err)
	}

	alias := strings.TrimSpace(in.DisplayName)
	if alias == "" {
		alias = in.Username
	}
	if utf8.RuneCountInString(alias) > MaxDisplayNameLen {
		return nil, &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("display name must not exceed %d characters", MaxDisplayNameLen),
		}
	}

	username := validation.CanonicalUsername(in.Username)
	span.SetAttributes(attribute.String("brook.username", username))

	// Fast path only; the store's unique index settles races.
	if _, err := g.profiles.GetProfileByUsername(ctx, username); err == nil {
		return nil, conflictError(MsgUsernameTaken, storage.ErrUsernameTaken)
	} else if !errors.Is(err, storage.ErrProfileNotFound) {
		return nil, storageError(err)
	}

	secret, err := g.hasher.Hash(in.Password)
	if err != nil {
		return nil, storageError(err)
	}

	uid, err := g.credentials.CreateCredential(ctx, email, secret)
	if err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			return nil, conflictError(MsgEmailTaken, err)
		}
		return nil, storageError(err)
	}

	now := g.now()
	profile := &models.Profile{
		UID:          uid,
		Username:     username,
		DisplayAlias: alias,
		CreatedAt:    now,
		LastUpdated:  now,
	}

	if err := g.profiles.CreateProfile(ctx, profile); err != nil {
		g.rollbackCredential(ctx, uid)

		switch {
		case errors.Is(err, storage.ErrUsernameTaken):
			return nil, conflictError(MsgUsernameTaken, err)
		case errors.Is(err, storage.ErrReservedUsername):
			return nil, &Error{Kind: KindValidation, Message: MsgUsernameReserved, Err: err}
		default:
			return nil, storageError(err)
		}
	}

	g.logger.InfoContext(ctx, "User registered",
		slog.String("username", username),
		slog.Int64("uid", uid),
	)

	return g.grant(ctx, profile, in.Fingerprint, in.Remember)
}

func (g *Gateway) rollbackCredential(ctx context.Context, uid int64) {
	// the request may already be cancelled; the cleanup still has to run
	ctx = context.WithoutCancel(ctx)

	if err := g.credentials.DeleteCredential(ctx, uid); err != nil && !errors.Is(err, storage.ErrCredentialNotFound) {
		g.logger.ErrorContext(ctx, "Failed to roll back credential",
			slog.Int64("uid", uid),
			slog.Any("error", err),
		)
	}
}

// Login checks email and password and opens a device session.
// Unknown email and wrong password are indistinguishable to the caller.
func (g *Gateway) Login(ctx context.Context, in LoginInput) (_ *Grant, err error) {
	ctx, span := g.tracer.Start(ctx, "auth.Login")
	defer func() { endSpan(span, err) }()

	if in.Email == "" || in.Password == "" {
		return nil, authError(MsgInvalidCredentials, nil)
	}

	cred, err := g.credentials.GetCredentialByEmail(ctx, in.Email)
	if err != nil {
		if !errors.Is(err, storage.ErrCredentialNotFound) {
			return nil, storageError(err)
		}
		g.burnPasswordCheck(in.Password)
		g.logger.InfoContext(ctx, "Login failed", slog.String("reason", "unknown email"))
		return nil, authError(MsgInvalidCredentials, err)
	}

	ok, err := g.hasher.Verify(in.Password, cred.PasswordSecret)
	if err != nil {
		return nil, storageError(fmt.Errorf("stored password secret for uid %d: %w", cred.UID, err))
	}
	if !ok {
		g.logger.InfoContext(ctx, "Login failed",
			slog.String("reason", "wrong password"),
			slog.Int64("uid", cred.UID),
		)
		return nil, authError(MsgInvalidCredentials, nil)
	}

	profile, err := g.profiles.GetProfileByUID(ctx, cred.UID)
	if err != nil {
		if !errors.Is(err, storage.ErrProfileNotFound) {
			return nil, storageError(err)
		}
		// registration still in flight, or a rollback that failed
		g.logger.WarnContext(ctx, "Login failed",
			slog.String("reason", "credential without profile"),
			slog.Int64("uid", cred.UID),
		)
		return nil, authError(MsgInvalidCredentials, err)
	}

	return g.grant(ctx, profile, in.Fingerprint, in.Remember)
}

func (g *Gateway) burnPasswordCheck(password string) {
	g.dummyOnce.Do(func() {
		g.dummyHash, _ = g.hasher.Hash("brook-timing-equalizer")
	})
	if g.dummyHash != "" {
		_, _ = g.hasher.Verify(password, g.dummyHash)
	}
}

func (g *Gateway) grant(ctx context.Context, profile *models.Profile, fingerprint string, remember bool) (*Grant, error) {
	creds, err := g.sessions.Create(ctx, profile.UID, fingerprint, remember)
	if err != nil {
		return nil, storageError(err)
	}

	accessToken, err := g.tokens.Issue(ctx, profile.UID)
	if err != nil {
		return nil, storageError(err)
	}

	return &Grant{
		Profile:     profile,
		Session:     creds,
		AccessToken: accessToken,
	}, nil
}

// CheckUsernameAvailable reports whether name could be registered right now
func (g *Gateway) CheckUsernameAvailable(ctx context.Context, name string) (*Availability, error) {
	if err := validation.ValidateUsername(name); err != nil {
		return &Availability{Reason: err.Error()}, nil
	}
	if validation.IsReservedUsername(name) {
		return &Availability{Reason: MsgUsernameReserved}, nil
	}

	_, err := g.profiles.GetProfileByUsername(ctx, name)
	switch {
	case err == nil:
		return &Availability{Reason: MsgUsernameTaken}, nil
	case errors.Is(err, storage.ErrProfileNotFound):
		return &Availability{Available: true}, nil
	default:
		return nil, storageError(err)
	}
}

// VerifyDevice validates a device session and, when valid, issues a fresh
// access token. An invalid session is a normal outcome, not an error.
func (g *Gateway) VerifyDevice(ctx context.Context, sessionID, sessionToken, fingerprint string) (_ *DeviceStatus, err error) {
	ctx, span := g.tracer.Start(ctx, "auth.VerifyDevice")
	defer func() { endSpan(span, err) }()

	uid, err := g.sessions.Validate(ctx, sessionID, sessionToken, fingerprint)
	if err != nil {
		if errors.Is(err, session.ErrInvalidSession) {
			return &DeviceStatus{}, nil
		}
		return nil, storageError(err)
	}

	profile, err := g.profiles.GetProfileByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			// a session must not outlive its profile
			if err := g.sessions.Revoke(ctx, sessionID); err != nil {
				return nil, storageError(err)
			}
			return &DeviceStatus{}, nil
		}
		return nil, storageError(err)
	}

	accessToken, err := g.tokens.Issue(ctx, uid)
	if err != nil {
		return nil, storageError(err)
	}

	return &DeviceStatus{Valid: true, Profile: profile, AccessToken: accessToken}, nil
}

// Logout revokes the device session. Unknown sessions are fine.
func (g *Gateway) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return &Error{Kind: KindValidation, Message: "sessionId is required"}
	}

	if err := g.sessions.Revoke(ctx, sessionID); err != nil {
		return storageError(err)
	}

	return nil
}

// ResolveAccessToken returns the profile the bearer token belongs to
func (g *Gateway) ResolveAccessToken(ctx context.Context, accessToken string) (*models.Profile, error) {
	uid, err := g.tokens.Validate(ctx, accessToken)
	if err != nil {
		return nil, authError(MsgInvalidToken, err)
	}

	profile, err := g.profiles.GetProfileByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			return nil, authError(MsgInvalidToken, err)
		}
		return nil, storageError(err)
	}

	return profile, nil
}

// ViewProfile returns the public profile and counts the view
func (g *Gateway) ViewProfile(ctx context.Context, username string) (_ *models.Profile, err error) {
	ctx, span := g.tracer.Start(ctx, "auth.ViewProfile")
	defer func() { endSpan(span, err) }()

	profile, err := g.GetProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	viewed, err := g.profiles.IncrementViews(ctx, profile.UID, g.now())
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			return nil, notFoundError(err)
		}
		return nil, storageError(err)
	}

	return viewed, nil
}

// GetProfile returns the public profile without counting a view
func (g *Gateway) GetProfile(ctx context.Context, username string) (*models.Profile, error) {
	if validation.ValidateUsername(username) != nil {
		return nil, notFoundError(storage.ErrProfileNotFound)
	}

	profile, err := g.profiles.GetProfileByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrProfileNotFound) {
			return nil, notFoundError(err)
		}
		return nil, storageError(err)
	}

	return profile, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("brook.error_kind", KindOf(err).String()))
		if KindOf(err) == KindStorage {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
