package handler_test

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

	"sipro/internal/auth"
	"sipro/internal/directory"
	"sipro/internal/protocol/handler"
	"sipro/internal/protocol/service"
	"sipro/internal/protocol/store"
	"sipro/pkg/domain"
	dErrors "sipro/pkg/domain-errors"
)

const password = "s3cret"

type fixture struct {
	router   http.Handler
	jwt      *auth.JWTService
	docType  *directory.DocumentType
	sectorX  *directory.Sector
	sectorY  *directory.Sector
	creator  *directory.User
	receiver *directory.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	protocols := store.NewInMemoryStore()
	sectors := directory.NewInMemorySectorStore()
	users := directory.NewInMemoryUserStore()
	docTypes := directory.NewInMemoryDocumentTypeStore()

	f := &fixture{jwt: auth.NewJWTService("test-key", "sipro-test")}

	var err error
	f.sectorX, err = directory.NewSector(domain.SectorID(uuid.New()), "Expedition", "EXP", "", time.Now())
	require.NoError(t, err)
	require.NoError(t, sectors.Create(ctx, f.sectorX))
	f.sectorY, err = directory.NewSector(domain.SectorID(uuid.New()), "Legal", "LEG", "", time.Now())
	require.NoError(t, err)
	require.NoError(t, sectors.Create(ctx, f.sectorY))

	hash, err := auth.HashCredential(password)
	require.NoError(t, err)
	f.creator, err = directory.NewUser(domain.UserID(uuid.New()), "Creator", "creator@example.com", hash, domain.RoleUser, f.sectorX.ID, time.Now())
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, f.creator))
	f.receiver, err = directory.NewUser(domain.UserID(uuid.New()), "Receiver", "receiver@example.com", hash, domain.RoleUser, f.sectorY.ID, time.Now())
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, f.receiver))

	f.docType, err = directory.NewDocumentType(domain.DocumentTypeID(uuid.New()), "Memo", "", 30)
	require.NoError(t, err)
	require.NoError(t, docTypes.Create(ctx, f.docType))

	svc := service.New(
		protocols, protocols, users, sectors, docTypes, auth.CredentialVerifier{},
		service.WithLogger(logger),
	)

	r := chi.NewRouter()
	handler.New(svc, f.jwt, logger).Register(r)
	f.router = r
	return f
}

func (f *fixture) token(t *testing.T, user *directory.User) string {
	t.Helper()
	token, err := f.jwt.GenerateAccessToken(user.ID, user.Role, user.SectorID, time.Hour)
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createProtocol(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/protocols", f.token(t, f.creator), map[string]string{
		"document_type_id":      f.docType.ID.String(),
		"subject":               "Quarterly report",
		"destination_sector_id": f.sectorY.ID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.ID
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/protocols", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateAndFetchProtocol(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/protocols", f.token(t, f.creator), map[string]string{
		"document_type_id":      f.docType.ID.String(),
		"subject":               "Quarterly report",
		"destination_sector_id": f.sectorY.ID.String(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID     string `json:"id"`
		Number string `json:"number"`
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Regexp(t, `^\d{5}/\d{4}$`, created.Number)
	assert.Equal(t, "in_transit", created.Status)

	getRec := f.do(t, http.MethodGet, "/protocols/"+created.ID, f.token(t, f.creator), nil)
	require.Equal(t, http.StatusOK, getRec.Code)
	var detail struct {
		Number  string `json:"number"`
		Entries []any  `json:"routing_entries"`
	}
	require.NoError(t, json.NewDecoder(getRec.Body).Decode(&detail))
	assert.Equal(t, created.Number, detail.Number)
	assert.Len(t, detail.Entries, 1)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/protocols", f.token(t, f.creator), map[string]string{
		"document_type_id":      f.docType.ID.String(),
		"destination_sector_id": f.sectorY.ID.String(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReceiveWrongPasswordIsBadRequestNotUnauthorized(t *testing.T) {
	f := newFixture(t)
	id := f.createProtocol(t)

	rec := f.do(t, http.MethodPost, "/protocols/"+id+"/receive", f.token(t, f.receiver), map[string]string{
		"password": "wrong",
	})
	// 401 would make clients drop the session; a failed signature is the
	// caller's mistake, not an expired login.
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Code dErrors.Code `json:"code"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, dErrors.CodeAuthentication, resp.Code)
}

func TestRouteBeforeReceiptRejected(t *testing.T) {
	f := newFixture(t)
	id := f.createProtocol(t)

	rec := f.do(t, http.MethodPost, "/protocols/"+id+"/route", f.token(t, f.receiver), map[string]string{
		"destination_sector_id": f.sectorX.ID.String(),
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp struct {
		Code dErrors.Code `json:"code"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, dErrors.CodeInvalidState, resp.Code)
}

func TestFullLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	id := f.createProtocol(t)

	rec := f.do(t, http.MethodPost, "/protocols/"+id+"/receive", f.token(t, f.receiver), map[string]string{
		"password": password,
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/protocols/"+id+"/route", f.token(t, f.receiver), map[string]string{
		"destination_sector_id": f.sectorX.ID.String(),
		"note":                  "returning with signature",
	})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	getRec := f.do(t, http.MethodGet, "/protocols/"+id, f.token(t, f.creator), nil)
	require.Equal(t, http.StatusOK, getRec.Code)
	var detail struct {
		Status  string `json:"status"`
		Entries []struct {
			Note string `json:"note"`
		} `json:"routing_entries"`
	}
	require.NoError(t, json.NewDecoder(getRec.Body).Decode(&detail))
	assert.Equal(t, "in_transit", detail.Status)
	require.Len(t, detail.Entries, 3)
	assert.Equal(t, "returning with signature", detail.Entries[0].Note, "trail is newest first")
}

func TestDeleteForbiddenForBystander(t *testing.T) {
	f := newFixture(t)
	id := f.createProtocol(t)

	rec := f.do(t, http.MethodDelete, "/protocols/"+id, f.token(t, f.receiver), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListFiltersByTerm(t *testing.T) {
	f := newFixture(t)
	f.createProtocol(t)

	rec := f.do(t, http.MethodGet, "/protocols?term=Quarterly", f.token(t, f.creator), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []struct {
		Subject string `json:"subject"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list, 1)

	rec = f.do(t, http.MethodGet, "/protocols?term=nomatch", f.token(t, f.creator), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var empty []any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&empty))
	assert.Empty(t, empty)
}
