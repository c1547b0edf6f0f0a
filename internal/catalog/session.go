package catalog

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/celltrack/crawler/internal/models"
)

// CredentialProvider supplies an email/password pair when the session
// manager needs a fresh login. The CLI backs this with an interactive
// prompt; tests back it with a stub. The core never does interactive
// I/O itself.
type CredentialProvider func(ctx context.Context) (email, password string, err error)

// SessionManager owns the access/refresh token pair and wraps every
// backend call with transparent recovery: on a token rejection it
// promotes the refresh token once, and failing that it blocks on the
// credential provider until a login succeeds. That re-login loop is
// the one deliberately unbounded wait in the system; it is cut short
// only by context cancellation.
type SessionManager struct {
	client *Client
	prompt CredentialProvider
	logger zerolog.Logger

	mu      sync.Mutex
	access  string
	refresh string

	// recoverMu serializes recovery end to end, so concurrent workers
	// block on one promotion or re-login instead of double-prompting or
	// wiping a token a sibling just promoted.
	recoverMu sync.Mutex
}

// reloginDelay spaces failed interactive login attempts.
const reloginDelay = 3 * time.Second

// NewSessionManager wraps a client with token management.
func NewSessionManager(client *Client, prompt CredentialProvider, logger zerolog.Logger) *SessionManager {
	return &SessionManager{
		client: client,
		prompt: prompt,
		logger: logger.With().Str("component", "session").Logger(),
	}
}

// SetCredentials installs a previously cached token pair.
func (m *SessionManager) SetCredentials(access, refresh string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = access
	m.refresh = refresh
}

// Credentials returns the current token pair for persistence at
// shutdown.
func (m *SessionManager) Credentials() (access, refresh string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access, m.refresh
}

func (m *SessionManager) token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access
}

// Login authenticates directly and stores the resulting pair.
func (m *SessionManager) Login(ctx context.Context, email, password string) error {
	creds, err := m.client.Login(ctx, email, password)
	if err != nil {
		return err
	}
	m.SetCredentials(creds.AccessToken, creds.RefreshToken)
	return nil
}

// do runs call with the current access token, recovering from token
// rejections and retrying until the call returns a non-auth result.
func (m *SessionManager) do(ctx context.Context, call func(token string) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		token := m.token()
		err := call(token)

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.AuthFailure() {
			m.logger.Warn().Str("reason", apiErr.Message).Msg("token rejected, recovering")
			if err := m.recover(ctx, token); err != nil {
				return err
			}
			continue
		}
		return err
	}
}

// recover restores a usable access token: promote the refresh token if
// one is held, otherwise clear both and block on interactive re-login.
// rejected is the token the failing call used; if it is no longer
// current, a sibling already recovered and there is nothing to do.
func (m *SessionManager) recover(ctx context.Context, rejected string) error {
	m.recoverMu.Lock()
	defer m.recoverMu.Unlock()

	if m.token() != rejected {
		return nil
	}

	m.mu.Lock()
	if m.refresh != "" {
		m.access = m.refresh
		m.refresh = ""
		m.mu.Unlock()
		m.logger.Info().Msg("promoted refresh token")
		return nil
	}
	m.access = ""
	m.mu.Unlock()

	if m.prompt == nil {
		return errors.New("catalog: re-authentication required but no credential provider configured")
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		email, password, err := m.prompt(ctx)
		if err != nil {
			return err
		}

		err = m.Login(ctx, email, password)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrInvalidCredentials) {
			return err
		}

		m.logger.Warn().Msg("login rejected, prompting again")
		select {
		case <-time.After(reloginDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Brands lists the backend's brands, with transparent auth recovery.
func (m *SessionManager) Brands(ctx context.Context) ([]string, error) {
	var brands []string
	err := m.do(ctx, func(token string) error {
		var err error
		brands, err = m.client.Brands(ctx, token)
		return err
	})
	return brands, err
}

// ExistingIdentifiers lists the identifiers already in the catalog.
func (m *SessionManager) ExistingIdentifiers(ctx context.Context) ([]string, error) {
	var ids []string
	err := m.do(ctx, func(token string) error {
		var err error
		ids, err = m.client.ExistingIdentifiers(ctx, token)
		return err
	})
	return ids, err
}

// Upsert reconciles a record batch and returns the identifiers the
// backend wants created.
func (m *SessionManager) Upsert(ctx context.Context, records []models.ProductRecord) ([]string, error) {
	var toCreate []string
	err := m.do(ctx, func(token string) error {
		var err error
		toCreate, err = m.client.Upsert(ctx, token, records)
		return err
	})
	return toCreate, err
}

// Create inserts the records a previous Upsert reported as missing.
func (m *SessionManager) Create(ctx context.Context, records []models.ProductRecord) error {
	return m.do(ctx, func(token string) error {
		return m.client.Create(ctx, token, records)
	})
}
