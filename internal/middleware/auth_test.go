package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DodailSolutions/billbook/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret-with-enough-entropy"
	testIssuer = "https://id.billbook.test"
)

type stubResolver struct {
	members map[uuid.UUID]domain.TeamMember
	err     error
}

func (s *stubResolver) ResolveMembership(ctx context.Context, userID uuid.UUID) (*domain.TeamMember, error) {
	if s.err != nil {
		return nil, s.err
	}
	m, ok := s.members[userID]
	if !ok {
		return nil, domain.NotFound("team.resolve", "Membership", userID.String())
	}
	return &m, nil
}

func token(t *testing.T, userID uuid.UUID, superAdmin bool, ttl time.Duration) string {
	t.Helper()
	tok, err := GenerateToken(testSecret, testIssuer, userID, "Asha@Example.com", superAdmin, ttl)
	require.NoError(t, err)
	return tok
}

// serve runs the request through RequireAuth and returns the recorder and
// the TenantContext the inner handler saw.
func serve(auth *Authenticator, header string, inner ...func(http.Handler) http.Handler) (*httptest.ResponseRecorder, *domain.TenantContext) {
	var seen *domain.TenantContext
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tc, ok := domain.TenantFromContext(r.Context()); ok {
			seen = &tc
		}
		w.WriteHeader(http.StatusOK)
	})
	for _, m := range inner {
		h = m(h)
	}
	h = auth.RequireAuth(h)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, seen
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Error.Code, body.Error.Message
}

func TestRequireAuth_OwnerToken(t *testing.T) {
	auth := NewAuthenticator(testSecret, testIssuer, &stubResolver{})
	userID := uuid.New()

	rec, tc := serve(auth, "Bearer "+token(t, userID, false, time.Hour))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, tc)
	assert.Equal(t, userID, tc.TenantID)
	assert.Equal(t, userID, tc.UserID)
	assert.Equal(t, domain.RoleOwner, tc.Role)
	assert.Equal(t, "asha@example.com", tc.Email)
	assert.False(t, tc.SuperAdmin)
}

func TestRequireAuth_TeamMemberActsInInvitingTenant(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	auth := NewAuthenticator(testSecret, testIssuer, &stubResolver{
		members: map[uuid.UUID]domain.TeamMember{
			userID: {TenantID: tenantID, Role: domain.RoleViewer, Status: domain.TeamMemberActive},
		},
	})

	rec, tc := serve(auth, "bearer "+token(t, userID, false, time.Hour))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, tc)
	assert.Equal(t, tenantID, tc.TenantID)
	assert.Equal(t, userID, tc.UserID)
	assert.Equal(t, domain.RoleViewer, tc.Role)
}

func TestRequireAuth_Rejections(t *testing.T) {
	auth := NewAuthenticator(testSecret, testIssuer, nil)
	userID := uuid.New()

	otherSecret, err := GenerateToken("another-secret", testIssuer, userID, "a@example.com", false, time.Hour)
	require.NoError(t, err)
	otherIssuer, err := GenerateToken(testSecret, "https://evil.test", userID, "a@example.com", false, time.Hour)
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID.String(), Issuer: testIssuer},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-uuid", Issuer: testIssuer},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name    string
		header  string
		message string
	}{
		{"missing header", "", "Authentication required"},
		{"wrong scheme", "Basic abc", "Authentication required"},
		{"empty token", "Bearer ", "Authentication required"},
		{"garbage", "Bearer not.a.jwt", "Invalid token"},
		{"wrong secret", "Bearer " + otherSecret, "Invalid token"},
		{"wrong issuer", "Bearer " + otherIssuer, "Invalid token"},
		{"unexpected algorithm", "Bearer " + hs512, "Invalid token"},
		{"subject not a user id", "Bearer " + badSubject, "Invalid token"},
		{"expired", "Bearer " + token(t, userID, false, -time.Minute), "Token has expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, tc := serve(auth, tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, tc)

			code, message := errorBody(t, rec)
			assert.Equal(t, domain.EUNAUTHORIZED, code)
			assert.Equal(t, tt.message, message)
		})
	}
}

func TestRequireAuth_MembershipLookupFailure(t *testing.T) {
	auth := NewAuthenticator(testSecret, testIssuer, &stubResolver{err: errors.New("connection refused")})

	rec, tc := serve(auth, "Bearer "+token(t, uuid.New(), false, time.Hour))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Nil(t, tc)

	code, message := errorBody(t, rec)
	assert.Equal(t, domain.EINTERNAL, code)
	assert.NotContains(t, message, "connection refused")
}

func TestRequireSuperAdmin(t *testing.T) {
	auth := NewAuthenticator(testSecret, testIssuer, nil)

	rec, _ := serve(auth, "Bearer "+token(t, uuid.New(), false, time.Hour), RequireSuperAdmin)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, tc := serve(auth, "Bearer "+token(t, uuid.New(), true, time.Hour), RequireSuperAdmin)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, tc)
	assert.True(t, tc.SuperAdmin)
}

func TestRequireSuperAdmin_WithoutAuth(t *testing.T) {
	h := RequireSuperAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/tenants", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
