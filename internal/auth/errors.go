package auth

import "errors"

// ErrTokenExpired is returned by Verify when the token's signature is valid
// but its expiry has passed. Callers use it to report expiry distinctly from
// a generic invalid token.
var ErrTokenExpired = errors.New("session token expired")
