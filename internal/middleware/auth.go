package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the bearer token claims issued by the identity provider.
// The subject is the user id.
type Claims struct {
	Email      string `json:"email"`
	SuperAdmin bool   `json:"super_admin,omitempty"`
	jwt.RegisteredClaims
}

// MembershipResolver finds the tenant a team member acts in.
type MembershipResolver interface {
	ResolveMembership(ctx context.Context, userID uuid.UUID) (*domain.TeamMember, error)
}

// Authenticator turns a bearer token into a domain.TenantContext.
//
// A user with an active team membership acts inside the inviting tenant
// with the role they were given. Everyone else owns the tenant whose id is
// their own user id.
type Authenticator struct {
	secret  []byte
	issuer  string
	members MembershipResolver
}

func NewAuthenticator(secret, issuer string, members MembershipResolver) *Authenticator {
	return &Authenticator{
		secret:  []byte(secret),
		issuer:  issuer,
		members: members,
	}
}

// Authenticate validates the Authorization header value and resolves the
// caller's tenant. Token problems are EUNAUTHORIZED; a failed membership
// lookup is returned as is.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (domain.TenantContext, error) {
	const op = "auth.authenticate"

	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return domain.TenantContext{}, domain.Unauthorized(op, "Authentication required")
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.TenantContext{}, domain.Unauthorized(op, "Token has expired")
		}
		return domain.TenantContext{}, domain.Unauthorized(op, "Invalid token")
	}
	if !parsed.Valid {
		return domain.TenantContext{}, domain.Unauthorized(op, "Invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.TenantContext{}, domain.Unauthorized(op, "Invalid token")
	}

	tc := domain.TenantContext{
		TenantID:   userID,
		UserID:     userID,
		Email:      strings.ToLower(claims.Email),
		Role:       domain.RoleOwner,
		SuperAdmin: claims.SuperAdmin,
	}

	if a.members != nil {
		member, err := a.members.ResolveMembership(ctx, userID)
		switch {
		case err == nil:
			tc.TenantID = member.TenantID
			tc.Role = member.Role
		case domain.ErrorCode(err) != domain.ENOTFOUND:
			return domain.TenantContext{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	return tc, nil
}

// RequireAuth rejects requests without a valid bearer token and stores the
// caller's TenantContext on the request context.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, err := a.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			respondWithError(w, r, err)
			return
		}

		ctx := domain.NewContextWithTenant(r.Context(), tc)
		ctx = context.WithValue(ctx, LoggerContextKey, GetLogger(r.Context()).With(
			"tenant_id", tc.TenantID.String(),
			"user_id", tc.UserID.String(),
		))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireSuperAdmin allows only super admins through. Apply after RequireAuth.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, ok := domain.TenantFromContext(r.Context())
		if !ok {
			respondUnauthorized(w, r, "Authentication required")
			return
		}
		if !tc.SuperAdmin {
			respondForbidden(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GenerateToken signs an HS256 token for userID. Used by the CLI to mint
// development tokens and by tests.
func GenerateToken(secret, issuer string, userID uuid.UUID, email string, superAdmin bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email:      email,
		SuperAdmin: superAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
