package admin

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civitas/internal/catalog"
	"civitas/internal/module"
	"civitas/internal/module/security"
	id "civitas/pkg/domain"
	"civitas/pkg/testutil"
)

type fixedDrops int64

func (d fixedDrops) Dropped() int64 { return int64(d) }

func newRouter(t *testing.T, drops DropCounter) http.Handler {
	t.Helper()
	registry := module.NewRegistry()
	require.NoError(t, security.Register(registry))

	cat, err := catalog.New(catalog.Service{
		ID:     id.ServiceID(uuid.New()),
		Name:   "Boletim de ocorrência",
		Module: module.NewKey(security.ModuleType, security.PoliceReportEntity),
		Prefix: "BO",
		Documents: []catalog.DocumentRequirement{
			{Type: "rg"},
			{Type: "photo", Optional: true},
		},
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	New(registry, cat, drops, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
	return r
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	return testutil.DoRequest(h, testutil.NewJSONRequest(t, http.MethodGet, path, nil))
}

func TestModules(t *testing.T) {
	rec := get(t, newRouter(t, nil), "/modules")
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := testutil.UnmarshalResponse[ModulesResponse](t, rec)
	assert.Equal(t, len(security.Handlers()), resp.Total)
	assert.Contains(t, resp.Modules, module.NewKey(security.ModuleType, security.PoliceReportEntity))
}

func TestServices(t *testing.T) {
	rec := get(t, newRouter(t, nil), "/services")
	assert.Equal(t, http.StatusOK, rec.Code)
	resp := testutil.UnmarshalResponse[ServicesResponse](t, rec)
	require.Len(t, resp.Services, 1)
	assert.Equal(t, "BO", resp.Services[0].Prefix)
	assert.Equal(t, "normal", resp.Services[0].Priority)
	assert.Equal(t, []string{"rg"}, resp.Services[0].RequiredDocuments)
}

func TestAuditStatus(t *testing.T) {
	resp := testutil.UnmarshalResponse[AuditStatusResponse](t, get(t, newRouter(t, fixedDrops(3)), "/audit"))
	assert.EqualValues(t, 3, resp.SecurityEventsDropped)

	resp = testutil.UnmarshalResponse[AuditStatusResponse](t, get(t, newRouter(t, nil), "/audit"))
	assert.Zero(t, resp.SecurityEventsDropped)
}
