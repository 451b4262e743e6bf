package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sipro/internal/directory"
	"sipro/pkg/domain"
	dErrors "sipro/pkg/domain-errors"
	"sipro/pkg/testutil"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	users := directory.NewInMemoryUserStore()
	hash, err := HashCredential("s3cret")
	require.NoError(t, err)
	user, err := directory.NewUser(
		domain.UserID(uuid.New()), "Ana", "ana@example.com", hash,
		domain.RoleUser, domain.SectorID(uuid.New()), time.Now(),
	)
	require.NoError(t, err)
	require.NoError(t, users.Create(context.Background(), user))

	svc := NewService(users, NewJWTService("test-signing-key", "sipro-test"))
	router := chi.NewRouter()
	NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(router)
	return router
}

func postLogin(t *testing.T, router chi.Router, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginEndpoint(t *testing.T) {
	testutil.Given(t, "a registered active user", func(t *testing.T) {
		router := newTestRouter(t)

		testutil.When(t, "logging in with the right password", func(t *testing.T) {
			rec := postLogin(t, router, map[string]string{
				"email":    "ana@example.com",
				"password": "s3cret",
			})

			testutil.Then(t, "a token and the user are returned", func(t *testing.T) {
				require.Equal(t, http.StatusOK, rec.Code)
				var resp struct {
					Token string `json:"token"`
					User  struct {
						Email string `json:"email"`
					} `json:"user"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
				assert.Equal(t, "ana@example.com", resp.User.Email)
				assert.NotContains(t, rec.Body.String(), "credential_hash")
			})
		})

		testutil.When(t, "logging in with the wrong password", func(t *testing.T) {
			rec := postLogin(t, router, map[string]string{
				"email":    "ana@example.com",
				"password": "wrong",
			})

			testutil.Then(t, "the request is rejected without leaking why", func(t *testing.T) {
				require.Equal(t, http.StatusUnauthorized, rec.Code)
				var resp struct {
					Code string `json:"code"`
				}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, string(dErrors.CodeUnauthorized), resp.Code)
			})
		})

		testutil.When(t, "sending a malformed body", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte("{not json")))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			testutil.Then(t, "it is a bad request", func(t *testing.T) {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			})
		})
	})
}
