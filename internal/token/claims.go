package token

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/leszmonitor/dashboard/internal/domain"
)

// Claims is the decoded session token payload.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// DecodeClaims extracts the claims from a session token without verifying the
// signature; the server is the only party that can validate it. Structurally
// malformed input yields domain.ErrDecode, never a panic, because this runs
// inside navigation guards. A token without a username carries no identity
// and is treated the same way.
func DecodeClaims(raw string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDecode, err)
	}
	if claims.Username == "" {
		return nil, fmt.Errorf("%w: missing username claim", domain.ErrDecode)
	}
	return &claims, nil
}
