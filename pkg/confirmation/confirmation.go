// Package confirmation implements a two-phase "type the code to confirm" guard
// for destructive operations. Issue hands out a short human-readable code and a
// signed token; Verify checks both and returns the token id so the caller can
// mark it consumed.
package confirmation

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

var (
	// ErrInvalid covers bad signatures, expired tokens, scope mismatches and wrong codes.
	ErrInvalid = errors.New("confirmation invalid")
)

// Claims carried inside the signed token.
type Claims struct {
	Action   string `json:"action"`
	Scope    string `json:"scope"`
	CodeHash string `json:"code_hash"`
	jwt.RegisteredClaims
}

// Challenge is returned to the caller of Issue.
type Challenge struct {
	Code      string    `json:"code"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issuer signs and verifies confirmation challenges.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

// NewIssuer builds an issuer. A zero ttl defaults to five minutes.
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, cost: bcrypt.DefaultCost, now: time.Now}
}

// TTL reports how long issued tokens stay valid.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue creates a new challenge bound to action and scope.
func (i *Issuer) Issue(action, scope string) (*Challenge, error) {
	if len(i.secret) == 0 {
		return nil, fmt.Errorf("confirmation secret missing")
	}
	code, err := randomCode()
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), i.cost)
	if err != nil {
		return nil, fmt.Errorf("hash confirmation code: %w", err)
	}

	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Action:   action,
		Scope:    scope,
		CodeHash: string(hash),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign confirmation token: %w", err)
	}
	return &Challenge{Code: code, Token: token, ExpiresAt: expiresAt}, nil
}

// Verify validates token and code for the given action and scope and returns
// the parsed claims. Codes compare case-insensitively.
func (i *Issuer) Verify(token, code, action, scope string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil || !parsed.Valid {
		return nil, ErrInvalid
	}
	if claims.Action != action || claims.Scope != scope || claims.ID == "" {
		return nil, ErrInvalid
	}
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if normalized == "" {
		return nil, ErrInvalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(claims.CodeHash), []byte(normalized)); err != nil {
		return nil, ErrInvalid
	}
	return claims, nil
}

func randomCode() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(codeAlphabet)))
	for n := 0; n < codeLength; n++ {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate confirmation code: %w", err)
		}
		b.WriteByte(codeAlphabet[idx.Int64()])
	}
	return b.String(), nil
}
