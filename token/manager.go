package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Typed verification failures. Callers are expected to collapse all of them
// into a single generic unauthorized result before anything leaves the
// process boundary; the distinctions exist for metrics and audit only.
var (
	// ErrSignatureInvalid is returned when a token was tampered with or
	// signed with an unknown key.
	ErrSignatureInvalid = errors.New("token signature invalid")
	// ErrExpired is returned when the current time is past the token expiry.
	ErrExpired = errors.New("token expired")
	// ErrMalformed is returned when the token is not a parseable JWT or its
	// claims fail structural validation.
	ErrMalformed = errors.New("token malformed")
	// ErrWrongTokenType is returned when a token of one kind is presented
	// where the other kind is required.
	ErrWrongTokenType = errors.New("unexpected token type")
)

// Signer abstracts the signing primitive so the algorithm and secret source
// can be swapped (key rotation, hardware-backed signing) without touching
// the rotation engine. [Manager] is the production implementation.
type Signer interface {
	SignAccess(subjectID, tenantID, role, tokenID string) (string, error)
	SignRefresh(subjectID, tenantID, sessionID, tokenID string, ttl time.Duration) (string, error)
	ParseAccess(tokenStr string) (*AccessClaims, error)
	ParseRefresh(tokenStr string) (*RefreshClaims, error)
}

// Config defines a public type used by tokenkeep APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	Secret       []byte
	Issuer       string
	Audience     string
	Leeway       time.Duration
	RequireIAT   bool
	MaxFutureIAT time.Duration
	KeyID        string
	VerifyKeys   map[string][]byte
}

// Manager signs and verifies access and refresh credentials with an HS256
// symmetric secret provisioned out of band. Rotating the secret invalidates
// every outstanding credential; VerifyKeys allows a grace window where
// tokens signed under previous key IDs still verify.
//
// Manager instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Manager struct {
	config Config
}

const minSecretSize = 32

// NewManager validates the configuration and returns a ready [Manager].
//
// NewManager may return an error when input validation fails.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if len(cfg.Secret) < minSecretSize {
		return nil, fmt.Errorf("hs256 secret must be at least %d bytes", minSecretSize)
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	for kid, key := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
		if len(key) < minSecretSize {
			return nil, fmt.Errorf("verify key for kid %q is too short", kid)
		}
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	return &Manager{config: cfg}, nil
}

// SignAccess builds and signs an access credential for the given subject,
// tenant, and role with a fresh token ID and the configured short TTL.
//
// SignAccess may return an error when signing fails.
// SignAccess does not mutate shared state and is safe for concurrent use.
func (m *Manager) SignAccess(subjectID, tenantID, role, tokenID string) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		TenantID:  tenantID,
		Role:      role,
		TokenType: TypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.AccessTTL)),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	return m.sign(claims)
}

// SignRefresh builds and signs a refresh credential bound to the session
// family sessionID. ttl <= 0 selects the configured refresh TTL.
//
// SignRefresh may return an error when signing fails.
// SignRefresh does not mutate shared state and is safe for concurrent use.
func (m *Manager) SignRefresh(subjectID, tenantID, sessionID, tokenID string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = m.config.RefreshTTL
	}

	now := time.Now()
	claims := RefreshClaims{
		TenantID:  tenantID,
		SessionID: sessionID,
		TokenType: TypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	return m.sign(claims)
}

// ParseAccess verifies signature, expiry, and claim structure of an access
// credential and returns its typed claims.
//
// ParseAccess may return [ErrSignatureInvalid], [ErrExpired],
// [ErrMalformed], or [ErrWrongTokenType].
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeAccess {
		return nil, ErrWrongTokenType
	}
	if err := m.checkIAT(claims.IssuedAt); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseRefresh verifies signature, expiry, and claim structure of a refresh
// credential and returns its typed claims. Presence of jti and sid is NOT
// checked here; the rotation engine rejects legacy tokens itself so that the
// rejection is classified distinctly.
//
// ParseRefresh may return [ErrSignatureInvalid], [ErrExpired],
// [ErrMalformed], or [ErrWrongTokenType].
func (m *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeRefresh {
		return nil, ErrWrongTokenType
	}
	if err := m.checkIAT(claims.IssuedAt); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *Manager) sign(claims jwt.Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if m.config.KeyID != "" {
		t.Header["kid"] = m.config.KeyID
	}
	return t.SignedString(m.config.Secret)
}

func (m *Manager) parse(tokenStr string, claims jwt.Claims) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.RequireIAT {
		options = append(options, jwt.WithIssuedAt())
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, claims, m.verifyKey)
	if err != nil {
		return classifyParseError(err)
	}
	if !parsed.Valid {
		return ErrMalformed
	}
	return nil
}

func (m *Manager) verifyKey(t *jwt.Token) (interface{}, error) {
	if len(m.config.VerifyKeys) > 0 {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := m.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return key, nil
	}

	if m.config.KeyID != "" {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		if kid != m.config.KeyID {
			return nil, errors.New("unknown kid")
		}
	}

	return m.config.Secret, nil
}

func (m *Manager) checkIAT(iat *jwt.NumericDate) error {
	if iat == nil || m.config.MaxFutureIAT <= 0 {
		return nil
	}
	if iat.Time.After(time.Now().Add(m.config.MaxFutureIAT)) {
		return fmt.Errorf("%w: iat too far in the future", ErrMalformed)
	}
	return nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpired, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
