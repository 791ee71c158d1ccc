package security

import (
	"errors"
	"slices"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type for this endpoint")
	ErrNotPartner     = errors.New("account is not a partner")
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

const RolePartner = "partner"

// PartnerClaims are the claims carried by the access token the booking
// backend issues at login.
type PartnerClaims struct {
	PartnerID string    `json:"partner_id"`
	Email     string    `json:"email,omitempty"`
	Type      TokenType `json:"type"`
	Roles     []string  `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// IsPartner reports whether the account may use the partner console. Tokens
// without roles predate role claims and are accepted.
func (c *PartnerClaims) IsPartner() bool {
	return len(c.Roles) == 0 || slices.Contains(c.Roles, RolePartner)
}

type TokenManager interface {
	GenerateAccessToken(partnerID, email string, roles []string, ttl time.Duration) (string, error)
	ValidateToken(tokenString string) (*PartnerClaims, error)
}

type tokenManager struct {
	secret []byte
	issuer string
}

func NewTokenManager(secret, issuer string) TokenManager {
	return &tokenManager{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// GenerateAccessToken mints a token the way the backend does. The console
// only uses it in development and tests.
func (m *tokenManager) GenerateAccessToken(partnerID, email string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := PartnerClaims{
		PartnerID: partnerID,
		Email:     email,
		Type:      TokenTypeAccess,
		Roles:     roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   partnerID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			ID:        generateJTI(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateToken(tokenString string) (*PartnerClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &PartnerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*PartnerClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.PartnerID == "" {
		claims.PartnerID = claims.Subject
	}
	if claims.PartnerID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Type != "" && claims.Type != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	if !claims.IsPartner() {
		return nil, ErrNotPartner
	}
	return claims, nil
}

// Simple unique ID generator
func generateJTI() string {
	return strconv.FormatInt(time.Now().UnixNano(), 16)
}
