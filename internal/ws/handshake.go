package ws

import (
	"errors"
	"net/http"
	"strings"

	"github.com/notifyah/notifyah/pkg/auth"
)

var (
	// ErrNoToken means no credential candidate was found anywhere in
	// the upgrade request.
	ErrNoToken = errors.New("no token in upgrade request")
	// ErrRejected means a candidate was found but failed verification.
	ErrRejected = errors.New("handshake rejected")
)

// HandshakeGate authenticates connection attempts before they reach the
// registry. A rejected attempt never creates any connection state.
type HandshakeGate struct {
	jwt auth.JWTService
}

func NewHandshakeGate(jwt auth.JWTService) *HandshakeGate {
	return &HandshakeGate{jwt: jwt}
}

// Admit extracts and verifies the bearer credential. On success it
// returns the user ID and, when the token travelled in the
// Sec-WebSocket-Protocol header, the subprotocol value the upgrade
// response must echo back.
func (g *HandshakeGate) Admit(r *http.Request) (int64, string, error) {
	token, subprotocol := extractToken(r)
	if token == "" {
		return 0, "", ErrNoToken
	}

	userID, err := g.jwt.ValidateToken(token)
	if err != nil {
		return 0, "", ErrRejected
	}

	return userID, subprotocol, nil
}

// extractToken walks the credential fallback chain in fixed priority
// order and stops at the first non-empty candidate:
//
//  1. Authorization: Bearer <token>
//  2. Sec-WebSocket-Protocol value containing a "." (the shape of a
//     signed token; browser clients cannot set custom upgrade headers)
//  3. token= query parameter
//
// The second return value is the subprotocol the token arrived as, or
// empty when it came from elsewhere.
func extractToken(r *http.Request) (string, string) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimPrefix(authHeader, "Bearer "), ""
		}
	}

	if protocols := r.Header.Values("Sec-WebSocket-Protocol"); len(protocols) > 0 {
		candidate := strings.TrimSpace(strings.Split(protocols[0], ",")[0])
		if strings.Contains(candidate, ".") {
			return candidate, candidate
		}
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, ""
	}

	return "", ""
}
