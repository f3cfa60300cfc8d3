package firebase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// ErrNoCredentials is returned when no service account file is configured
var ErrNoCredentials = errors.New("firebase credentials path not provided")

// Settings selects the service account and, optionally, the project whose
// ID tokens are accepted. An empty ProjectID uses the one in the credentials.
type Settings struct {
	CredentialsPath string
	ProjectID       string
}

// IdentityProvider verifies Firebase ID tokens for the auth middleware
type IdentityProvider struct {
	Auth      *auth.Client
	ProjectID string
}

// NewIdentityProvider loads the service account and builds the auth client
func NewIdentityProvider(ctx context.Context, s Settings, logger *slog.Logger) (*IdentityProvider, error) {
	if s.CredentialsPath == "" {
		return nil, ErrNoCredentials
	}
	if _, err := os.Stat(s.CredentialsPath); err != nil {
		return nil, fmt.Errorf("firebase credentials file %s: %w", s.CredentialsPath, err)
	}

	var appConfig *firebase.Config
	if s.ProjectID != "" {
		appConfig = &firebase.Config{ProjectID: s.ProjectID}
	}

	app, err := firebase.NewApp(ctx, appConfig, option.WithCredentialsFile(s.CredentialsPath))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth client: %w", err)
	}

	logger.Info("firebase identity provider ready",
		slog.String("credentials", s.CredentialsPath),
		slog.String("project", s.ProjectID))
	return &IdentityProvider{Auth: client, ProjectID: s.ProjectID}, nil
}
