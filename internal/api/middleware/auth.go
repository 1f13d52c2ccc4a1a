package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Context keys for storing user information
type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	JWTClaimsKey contextKey = "jwt_claims"
)

// RoleModerator is the role claim value that unlocks moderation routes
const RoleModerator = "moderator"

// Claims are the bearer token claims the service understands
type Claims struct {
	jwt.RegisteredClaims
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// IsModerator reports whether the token carries the moderator role
func (c *Claims) IsModerator() bool {
	return c != nil && c.Role == RoleModerator
}

// JWTAuthMiddleware authenticates HS256 bearer tokens signed with a shared secret
type JWTAuthMiddleware struct {
	secret []byte
	issuer string
}

// NewJWTAuthMiddleware creates the auth middleware
// issuer is optional; when set, tokens from other issuers are rejected
func NewJWTAuthMiddleware(secret []byte, issuer string) *JWTAuthMiddleware {
	return &JWTAuthMiddleware{secret: secret, issuer: issuer}
}

// ParseToken verifies signature, expiry and (optionally) issuer and returns the claims
func (m *JWTAuthMiddleware) ParseToken(tokenString string) (*Claims, error) {
	if len(m.secret) == 0 {
		return nil, errors.New("JWT secret not configured")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

// RequireAuth middleware ensures the user is authenticated with a valid JWT
// If not authenticated, returns 401
// If authenticated, injects user ID and JWT claims into context
func (m *JWTAuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "AuthenticationRequired", "Missing or malformed Authorization header. Expected: Bearer <token>")
			return
		}

		claims, err := m.ParseToken(token)
		if err != nil {
			log.Printf("[AUTH_FAILURE] type=verification_failed ip=%s method=%s path=%s error=%v",
				r.RemoteAddr, r.Method, r.URL.Path, err)
			writeAuthError(w, http.StatusUnauthorized, "AuthenticationRequired", "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

// RequireModerator is RequireAuth plus a role check; non-moderators get 403
func (m *JWTAuthMiddleware) RequireModerator(next http.Handler) http.Handler {
	return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsModerator(r) {
			log.Printf("[AUTH_FAILURE] type=forbidden user=%s method=%s path=%s",
				GetUserID(r), r.Method, r.URL.Path)
			writeAuthError(w, http.StatusForbidden, "Forbidden", "Moderator role required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// OptionalAuth middleware loads user info if authenticated, but doesn't require it
// Useful for endpoints that work for both authenticated and anonymous users
func (m *JWTAuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.ParseToken(token)
		if err != nil {
			// Invalid token - continue without user context
			log.Printf("Optional auth failed: %v", err)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func withClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, claims.Subject)
	return context.WithValue(ctx, JWTClaimsKey, claims)
}

// GetUserID extracts the user's ID from the request context
// Returns empty string if not authenticated
func GetUserID(r *http.Request) string {
	id, _ := r.Context().Value(UserIDKey).(string)
	return id
}

// GetJWTClaims extracts the JWT claims from the request context
// Returns nil if not authenticated
func GetJWTClaims(r *http.Request) *Claims {
	claims, _ := r.Context().Value(JWTClaimsKey).(*Claims)
	return claims
}

// IsModerator reports whether the authenticated caller has the moderator role
func IsModerator(r *http.Request) bool {
	return GetJWTClaims(r).IsModerator()
}

// SetTestClaims sets the caller identity in the context for testing purposes
// This function should ONLY be used in tests to mock authenticated users
func SetTestClaims(ctx context.Context, userID, role string) context.Context {
	return withClaims(ctx, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
		Role:             role,
	})
}

// writeAuthError writes a JSON error response for authentication and authorization failures
func writeAuthError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	response := `{"error":"` + errorType + `","message":"` + message + `"}`
	if _, err := w.Write([]byte(response)); err != nil {
		log.Printf("Failed to write auth error response: %v", err)
	}
}
