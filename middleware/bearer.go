package middleware

import (
	"fmt"
	"strings"

	"github.com/MrEthical07/authcore"
)

const bearerScheme = "Bearer"

// BearerToken extracts the token from an Authorization header value.
//
// A blank value returns authcore.ErrNoCredential. Any other scheme, a bare
// "Bearer", or more than one token returns an error matching
// authcore.ErrMalformedHeader. The scheme is matched case-insensitively.
func BearerToken(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) == 0 {
		return "", authcore.ErrNoCredential
	}
	if !strings.EqualFold(parts[0], bearerScheme) {
		return "", fmt.Errorf("%w: unsupported scheme", authcore.ErrMalformedHeader)
	}

	switch len(parts) {
	case 1:
		return "", fmt.Errorf("%w: no credentials provided", authcore.ErrMalformedHeader)
	case 2:
		return parts[1], nil
	default:
		return "", fmt.Errorf("%w: token string should not contain spaces", authcore.ErrMalformedHeader)
	}
}
