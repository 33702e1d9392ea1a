package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"civitas/pkg/requestcontext"
)

func TestActor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var gotID, gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := requestcontext.ActorID(r.Context())
		if !uid.IsNil() {
			gotID = uid.String()
		}
		gotRole = requestcontext.ActorRole(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Actor(logger)(RequireActor(logger)(next))
	open := Actor(logger)(next)

	t.Run("valid headers", func(t *testing.T) {
		gotID, gotRole = "", ""
		uid := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderActorID, uid)
		req.Header.Set(HeaderActorRole, " Clerk ")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, uid, gotID)
		assert.Equal(t, "clerk", gotRole)
	})

	t.Run("no headers pass through Actor but not RequireActor", func(t *testing.T) {
		rec := httptest.NewRecorder()
		open.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("role without id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderActorRole, "clerk")
		rec := httptest.NewRecorder()
		open.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
