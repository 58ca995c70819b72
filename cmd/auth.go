package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/librec/internal/models"
	"github.com/desertthunder/librec/internal/remote"
	"github.com/desertthunder/librec/internal/repositories"
	"github.com/desertthunder/librec/internal/server"
	"github.com/desertthunder/librec/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin runs the browser authorization flow, installs the session on the
// gateway, and persists it for later runs.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if r.config.Credentials.ClientID == "" {
		return fmt.Errorf("%w: credentials.client_id is not set", shared.ErrInvalidConfig)
	}

	token, err := r.doImplicitGrant(ctx)
	if err != nil {
		return err
	}

	expiresIn := time.Until(token.Expiry)
	r.gateway.Login(token.AccessToken, expiresIn)

	db, err := r.ensureDB()
	if err != nil {
		return err
	}
	session := models.Session{Token: token.AccessToken, ExpiresAt: token.Expiry}
	if err := repositories.NewSessionRepository(db).Save(session); err != nil {
		r.logger.Warnf("failed to persist session: %v", err)
	}

	r.writePlain("✓ Authorized; session valid for %s\n", expiresIn.Round(time.Second))
	return nil
}

// AuthLogout destroys the live session and the persisted one.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	r.gateway.Logout()

	db, err := r.ensureDB()
	if err != nil {
		return err
	}
	if err := repositories.NewSessionRepository(db).Clear(); err != nil {
		return err
	}

	return r.writePlain("✓ Logged out\n")
}

// AuthStatus reports whether a usable session is stored.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := r.ensureDB()
	if err != nil {
		return err
	}

	session, err := repositories.NewSessionRepository(db).Load()
	if err != nil {
		return r.writePlain("✗ Not authenticated\n")
	}

	if !session.Live(time.Now()) {
		return r.writePlain("✗ Session expired at %s\n", session.ExpiresAt.Format(time.RFC1123))
	}
	return r.writePlain("✓ Session valid until %s\n", session.ExpiresAt.Format(time.RFC1123))
}

// doImplicitGrant executes the implicit-grant flow with a local HTTP server.
func (r *Runner) doImplicitGrant(ctx context.Context) (*oauth2.Token, error) {
	state := shared.GenerateID()

	oauthConfig := &oauth2.Config{
		ClientID:    r.config.Credentials.ClientID,
		RedirectURL: r.config.Credentials.RedirectURI,
		Scopes:      strings.Fields(r.config.Credentials.Scopes),
		Endpoint: oauth2.Endpoint{
			AuthURL: remote.AuthorizeURL,
		},
	}
	authURL := server.AuthURL(oauthConfig, state)

	handler := server.NewImplicitGrantHandler(state)
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(handler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting authorization server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("authorization timed out after 2 minutes")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}
	return result.Token, nil
}
