package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type values carried in the "typ" claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// RoleAdmin gets the shorter-lived token pair.
const RoleAdmin = "Admin"

// Verification failures. Callers branch on these; the boundary maps them to
// machine-readable codes.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrBadSignature   = errors.New("token signature invalid")
	ErrMalformedToken = errors.New("token malformed")
	ErrWrongAudience  = errors.New("token audience invalid")
	ErrWrongIssuer    = errors.New("token issuer invalid")
	ErrWrongType      = errors.New("token type mismatch")
	ErrInvalidToken   = errors.New("invalid token")
)

// Claims are the structured claims on every access and refresh token.
// The access and refresh token of one issuance share the same jti (the
// token family id); a rotation is correlated to its predecessor through it.
type Claims struct {
	jwt.RegisteredClaims
	DeviceID  string `json:"device_id"`
	Role      string `json:"rol"`
	Scope     string `json:"scope"`
	TokenType string `json:"typ"`
	// Nonce makes every refresh token string unique even when two issuances
	// share the same claims within one clock second; the store keys rotation
	// records by the token string.
	Nonce string `json:"nonce,omitempty"`
}

// TokenPair is the result of one issuance.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	FamilyID         string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TTLConfig holds the role-tiered token lifetimes. Admin tokens are
// shorter-lived than regular user tokens.
type TTLConfig struct {
	Access       time.Duration
	Refresh      time.Duration
	AdminAccess  time.Duration
	AdminRefresh time.Duration
	Service      time.Duration
}

// Codec signs and verifies access/refresh tokens with an asymmetric key pair
// (RS256 or ES256), so verification can run in components that never hold the
// signing key.
type Codec struct {
	privateKey    crypto.Signer
	publicKey     crypto.PublicKey
	issuer        string
	serviceIssuer string
	audience      string
	ttl           TTLConfig
	now           func() time.Time
}

// NewCodec returns a Codec signing with privateKey. issuer and audience are
// set on claims and enforced on verification; serviceIssuer is the separate
// issuer used for the global service token.
func NewCodec(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, serviceIssuer, audience string, ttl TTLConfig) *Codec {
	return &Codec{
		privateKey:    privateKey,
		publicKey:     publicKey,
		issuer:        issuer,
		serviceIssuer: serviceIssuer,
		audience:      audience,
		ttl:           ttl,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// AccessTTL returns the access-token lifetime for the given role.
func (c *Codec) AccessTTL(role string) time.Duration {
	if role == RoleAdmin {
		return c.ttl.AdminAccess
	}
	return c.ttl.Access
}

// RefreshTTL returns the refresh-token lifetime for the given role.
func (c *Codec) RefreshTTL(role string) time.Duration {
	if role == RoleAdmin {
		return c.ttl.AdminRefresh
	}
	return c.ttl.Refresh
}

// IssuePair issues an access/refresh pair for the given subject. Both tokens
// carry the same family id: familyID when non-empty (rotation preserves the
// family), a fresh uuid otherwise (new login mints a new family).
func (c *Codec) IssuePair(username, deviceID, role, familyID string) (*TokenPair, error) {
	if familyID == "" {
		familyID = uuid.New().String()
	}
	now := c.now()
	accessExp := now.Add(c.AccessTTL(role))
	refreshExp := now.Add(c.RefreshTTL(role))

	access, err := c.sign(c.buildClaims(username, deviceID, role, familyID, TokenTypeAccess, now, accessExp))
	if err != nil {
		return nil, err
	}
	refreshClaims := c.buildClaims(username, deviceID, role, familyID, TokenTypeRefresh, now, refreshExp)
	refreshClaims.Nonce = uuid.New().String()
	refresh, err := c.sign(refreshClaims)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		FamilyID:         familyID,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// IssueAccess mints a new access token only, reusing an existing family id.
// This is the cheap re-auth path when a still-valid refresh token exists for
// the same device.
func (c *Codec) IssueAccess(username, deviceID, role, familyID string) (string, time.Time, error) {
	now := c.now()
	exp := now.Add(c.AccessTTL(role))
	token, err := c.sign(c.buildClaims(username, deviceID, role, familyID, TokenTypeAccess, now, exp))
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// IssueServiceToken mints the shared long-lived service credential used by
// unauthenticated public endpoints. It is signed under the service issuer and
// carries no audience.
func (c *Codec) IssueServiceToken() (string, time.Time, error) {
	now := c.now()
	exp := now.Add(c.ttl.Service)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   "service",
			Issuer:    c.serviceIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role:      RoleAdmin,
		Scope:     "full_control",
		TokenType: TokenTypeAccess,
	}
	token, err := c.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

func (c *Codec) buildClaims(username, deviceID, role, familyID, tokenType string, now, exp time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        familyID,
			Subject:   username,
			Issuer:    c.issuer,
			Audience:  jwt.ClaimStrings{c.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		DeviceID:  deviceID,
		Role:      role,
		Scope:     scopeForRole(role),
		TokenType: tokenType,
	}
}

func scopeForRole(role string) string {
	switch role {
	case RoleAdmin:
		return "full_control"
	case "Manager":
		return "limited_control"
	default:
		return "read_only"
	}
}

func (c *Codec) sign(claims jwt.Claims) (string, error) {
	var method jwt.SigningMethod
	switch c.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", ErrInvalidToken
	}
	t := jwt.NewWithClaims(method, claims)
	return t.SignedString(c.privateKey)
}

// Verify parses and validates token (signature, exp/nbf, iss, aud) and checks
// the typ claim against expectedType. Returns the claims or one of the typed
// verification errors.
func (c *Codec) Verify(tokenString, expectedType string) (*Claims, error) {
	claims, err := c.parse(tokenString, jwt.WithIssuer(c.issuer), jwt.WithAudience(c.audience))
	if err != nil {
		return nil, err
	}
	if claims.TokenType != expectedType {
		return nil, ErrWrongType
	}
	return claims, nil
}

// VerifyServiceToken validates the global service token: service issuer, no
// audience requirement.
func (c *Codec) VerifyServiceToken(tokenString string) (*Claims, error) {
	claims, err := c.parse(tokenString, jwt.WithIssuer(c.serviceIssuer))
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrWrongType
	}
	return claims, nil
}

func (c *Codec) parse(tokenString string, opts ...jwt.ParserOption) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return c.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return c.publicKey, nil
		}
		return nil, ErrBadSignature
	}, opts...)
	if err != nil {
		return nil, mapJWTError(err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformedToken
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrWrongAudience
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrWrongIssuer
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrInvalidToken
	default:
		return ErrInvalidToken
	}
}
