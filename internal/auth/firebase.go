package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseTokenVerifier verifies Firebase Auth ID tokens
type FirebaseTokenVerifier struct {
	client *fbauth.Client
}

// NewFirebaseTokenVerifier initializes the Firebase app for projectID. With an
// empty credentialsFile, application default credentials are used.
func NewFirebaseTokenVerifier(ctx context.Context, projectID, credentialsFile string) (*FirebaseTokenVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &FirebaseTokenVerifier{client: client}, nil
}

func (f *FirebaseTokenVerifier) VerifyIDToken(ctx context.Context, token string) (*TokenClaims, error) {
	t, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, err
	}
	email, _ := t.Claims["email"].(string)
	verified, _ := t.Claims["email_verified"].(bool)
	return &TokenClaims{UID: t.UID, Email: email, EmailVerified: verified}, nil
}
