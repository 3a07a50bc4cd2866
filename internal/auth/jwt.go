// Package auth issues and validates the bearer tokens that identify a profile.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type constants for the typ claim.
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Token lifetimes.
const (
	AccessTokenExpiry  = 15 * time.Minute
	RefreshTokenExpiry = 7 * 24 * time.Hour
)

// DefaultLeeway is the clock skew tolerated during validation.
const DefaultLeeway = 30 * time.Second

// DefaultIssuer is the iss claim written into every token.
const DefaultIssuer = "lattice"

var (
	// ErrInvalidToken is returned when token validation fails.
	ErrInvalidToken = errors.New("invalid token")

	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")

	// ErrWrongTokenType is returned when a refresh token is presented as an access token or vice versa.
	ErrWrongTokenType = errors.New("wrong token type")

	// ErrEmptyProfileID is returned when a token is requested without a subject.
	ErrEmptyProfileID = errors.New("profile ID cannot be empty")
)

// Claims are the JWT claims carried by lattice tokens. The subject is the profile ID.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Type  string `json:"typ"`
}

// ProfileID returns the profile the token was issued to.
func (c *Claims) ProfileID() string {
	return c.Subject
}

// Config configures a JWTService.
type Config struct {
	// Secret signs new tokens.
	Secret string

	// PreviousSecret is still accepted for validation during key rotation. Optional.
	PreviousSecret string

	// Leeway defaults to DefaultLeeway when zero.
	Leeway time.Duration

	// Issuer defaults to DefaultIssuer.
	Issuer string
}

// JWTService signs tokens with the current secret and validates them against
// the current secret, falling back to the previous one when configured.
type JWTService struct {
	secrets [][]byte
	leeway  time.Duration
	issuer  string
	now     func() time.Time
}

// NewJWTService creates a JWTService from cfg.
func NewJWTService(cfg Config) *JWTService {
	if cfg.Leeway == 0 {
		cfg.Leeway = DefaultLeeway
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}

	secrets := [][]byte{[]byte(cfg.Secret)}
	if cfg.PreviousSecret != "" {
		secrets = append(secrets, []byte(cfg.PreviousSecret))
	}

	return &JWTService{
		secrets: secrets,
		leeway:  cfg.Leeway,
		issuer:  cfg.Issuer,
		now:     time.Now,
	}
}

// GenerateAccessToken creates a short-lived access token for profileID.
func (s *JWTService) GenerateAccessToken(profileID, email string) (string, error) {
	return s.sign(profileID, email, TokenTypeAccess, AccessTokenExpiry)
}

// GenerateRefreshToken creates a long-lived refresh token for profileID.
func (s *JWTService) GenerateRefreshToken(profileID string) (string, error) {
	return s.sign(profileID, "", TokenTypeRefresh, RefreshTokenExpiry)
}

func (s *JWTService) sign(profileID, email, typ string, ttl time.Duration) (string, error) {
	if profileID == "" {
		return "", ErrEmptyProfileID
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profileID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Type:  typ,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secrets[0])
}

// ValidateToken parses and validates a token of any type.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	var lastErr error
	for _, secret := range s.secrets {
		claims, err := s.parse(tokenString, secret)
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}

	if errors.Is(lastErr, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	return nil, ErrInvalidToken
}

// ValidateAccessToken validates a token and requires it to be an access token.
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	return claims, nil
}

func (s *JWTService) parse(tokenString string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return secret, nil
	},
		jwt.WithLeeway(s.leeway),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
