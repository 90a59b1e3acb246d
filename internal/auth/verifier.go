// Package auth decides whether a bearer token belongs to an admin allowed to
// run catalog deployments.
package auth

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Identity kinds
const (
	KindUser    = "user"
	KindService = "service"
)

// ServiceIdentity is the subject reported for service-key callers
const ServiceIdentity = "service"

// Identity is the caller behind an authorized token
type Identity struct {
	Subject string `json:"subject"`
	Email   string `json:"email,omitempty"`
	Kind    string `json:"kind"`
}

// Verification is the outcome of Verify. Error is set whenever Authorized is false.
type Verification struct {
	Authorized bool
	Identity   *Identity
	Error      string
}

// TokenClaims are the parts of a verified identity token the verifier needs
type TokenClaims struct {
	UID           string
	Email         string
	EmailVerified bool
}

// TokenVerifier checks an identity token's signature, audience and expiry
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (*TokenClaims, error)
}

// Verifier accepts identity tokens of allow-listed admins and the service key
type Verifier struct {
	tokens         TokenVerifier
	admins         map[string]bool
	serviceKeyHash string
	logger         *zap.Logger
}

// NewVerifier creates a Verifier. tokens may be nil when identity tokens are
// not accepted; an empty serviceKeyHash disables service keys.
func NewVerifier(tokens TokenVerifier, adminEmails []string, serviceKeyHash string, logger *zap.Logger) *Verifier {
	admins := make(map[string]bool, len(adminEmails))
	for _, e := range adminEmails {
		if e = normalizeEmail(e); e != "" {
			admins[e] = true
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		tokens:         tokens,
		admins:         admins,
		serviceKeyHash: serviceKeyHash,
		logger:         logger,
	}
}

func denied(msg string) Verification {
	return Verification{Authorized: false, Error: msg}
}

// Verify never returns an error: every failure is an unauthorized Verification
func (v *Verifier) Verify(ctx context.Context, token string) Verification {
	token = strings.TrimSpace(token)
	if token == "" {
		return denied("missing token")
	}

	if !looksLikeJWT(token) {
		if v.serviceKeyHash != "" && VerifyAPIKey(token, v.serviceKeyHash) {
			return Verification{Authorized: true, Identity: &Identity{Subject: ServiceIdentity, Kind: KindService}}
		}
		return denied("invalid service key")
	}

	if v.tokens == nil {
		return denied("identity tokens are not accepted")
	}
	claims, err := v.tokens.VerifyIDToken(ctx, token)
	if err != nil {
		v.logger.Warn("Identity token rejected", zap.Error(err))
		return denied("invalid identity token")
	}
	if claims.Email == "" || !claims.EmailVerified {
		return denied("email is not verified")
	}
	if !v.admins[normalizeEmail(claims.Email)] {
		v.logger.Warn("Non-admin identity denied", zap.String("email", claims.Email))
		return denied("not an admin")
	}
	return Verification{
		Authorized: true,
		Identity:   &Identity{Subject: claims.UID, Email: claims.Email, Kind: KindUser},
	}
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// identity tokens are JWTs (three dot-separated segments); service keys are opaque
func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2
}

// HashAPIKey hashes a service key for SERVICE_KEY_HASH
func HashAPIKey(apiKey string) (string, error) {
	// Use a cost of 10 for API keys (faster than passwords)
	hash, err := bcrypt.GenerateFromPassword([]byte(apiKey), 10)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyAPIKey verifies an API key against a hash
func VerifyAPIKey(apiKey, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(apiKey))
	return err == nil
}
