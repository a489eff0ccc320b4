package builder_client_test

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loopfz/gadgeto/tonic"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	builder_client "github.com/fhir-builder/fhir-builder/pkg/builder_client"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/database"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/handler"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/httpclient"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/problem"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/helpers/scaffold"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/models"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/repositories"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/services"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/storage"
	"github.com/fhir-builder/fhir-builder/pkg/builder_client/testutil"
)

const capabilityStatement = `{
	"resourceType": "CapabilityStatement",
	"status": "active",
	"fhirVersion": "4.0.1",
	"rest": [{
		"mode": "server",
		"resource": [
			{"type": "Patient", "interaction": [{"code": "read"}, {"code": "search-type"}], "searchParam": [{"name": "name", "type": "string"}]},
			{"type": "Observation", "interaction": [{"code": "read"}, {"code": "search-type"}]}
		]
	}]
}`

var hookOnce sync.Once

func setupHooks() {
	hookOnce.Do(func() {
		tonic.SetErrorHook(builder_client.ErrorHook)
		tonic.SetBindHook(builder_client.BindJSON)
	})
}

type integrationEnv struct {
	router http.Handler
	fhir   string
}

func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)
	setupHooks()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	root := t.TempDir()
	store, err := storage.NewFileStore(filepath.Join(root, "artifacts"))
	require.NoError(t, err)

	svc := services.NewBuilderService(
		repositories.NewBuildRepository(db),
		store,
		httpclient.NewClient(2*time.Second),
		scaffold.NewGenerator(zerolog.Nop()),
		services.Options{ScratchDir: filepath.Join(root, "scratch"), PublicBaseURL: "http://builder.test"},
		zerolog.Nop(),
	)
	router := builder_client.NewRouter(builder_client.RouterOptions{
		Version: "1.0.0",
		Logger:  zerolog.Nop(),
	}, handler.NewBuilderController(svc))

	fhir := testutil.NewFHIRServer(t, capabilityStatement)
	return &integrationEnv{router: router, fhir: fhir.URL}
}

func (e *integrationEnv) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) problem.APIError {
	t.Helper()
	var p problem.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p), w.Body.String())
	return p
}

func TestIntegration_GenerateAndDownload(t *testing.T) {
	env := newIntegrationEnv(t)

	w := env.do(t, http.MethodPost, "/api/builder/generate", map[string]any{
		"capabilityStatementUrl": env.fhir + "/metadata",
		"resources":              []string{"Patient", "Observation"},
		"stack":                  "go-gin",
		"appName":                "Mijn FHIR App",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "1.0.0", w.Header().Get("API-Version"))

	var res models.BuildResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.NotEmpty(t, res.BuildID)
	assert.Equal(t, "http://builder.test/api/builder/download/"+res.BuildID, res.DownloadUrl)
	assert.Equal(t, models.StackGoGin, res.Metadata.Stack)
	assert.ElementsMatch(t, []string{"Patient", "Observation"}, res.Metadata.Resources)

	w = env.do(t, http.MethodGet, "/api/builder/builds/"+res.BuildID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var build models.Build
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &build))
	assert.Equal(t, models.BuildReady, build.Status)

	w = env.do(t, http.MethodGet, "/api/builder/download/"+res.BuildID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment;")

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.True(t, names["README.md"], "archive has README.md")
	assert.True(t, names["go.mod"], "archive has go.mod")
}

func TestIntegration_GenerateInvalidBody(t *testing.T) {
	env := newIntegrationEnv(t)

	w := env.do(t, http.MethodPost, "/api/builder/generate", map[string]any{"stack": "cobol"})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	p := decodeProblem(t, w)
	names := make([]string, 0, len(p.InvalidParams))
	for _, ip := range p.InvalidParams {
		names = append(names, ip.Name)
	}
	assert.Contains(t, names, "capabilityStatementUrl")
	assert.Contains(t, names, "resources")
	assert.Contains(t, names, "stack")
}

func TestIntegration_NonHTTPCapabilityURL(t *testing.T) {
	env := newIntegrationEnv(t)

	for _, u := range []string{"ftp://example.org/fhir/metadata", "mailto:ops@example.org"} {
		for _, path := range []string{"/api/builder/generate", "/api/builder/validate-resources"} {
			w := env.do(t, http.MethodPost, path, map[string]any{
				"capabilityStatementUrl": u,
				"resources":              []string{"Patient"},
			})
			require.Equal(t, http.StatusBadRequest, w.Code, "%s %s: %s", path, u, w.Body.String())

			p := decodeProblem(t, w)
			require.Len(t, p.InvalidParams, 1, w.Body.String())
			assert.Equal(t, "capabilityStatementUrl", p.InvalidParams[0].Name)
		}
	}
}

func TestIntegration_GenerateUnsupportedResource(t *testing.T) {
	env := newIntegrationEnv(t)

	w := env.do(t, http.MethodPost, "/api/builder/generate", map[string]any{
		"capabilityStatementUrl": env.fhir + "/metadata",
		"resources":              []string{"Patient", "Encounter"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	p := decodeProblem(t, w)
	assert.Equal(t, problem.CodeUnsupportedResources, p.Code)
	assert.Contains(t, p.Detail, "Encounter")
	require.Len(t, p.InvalidParams, 1)
	assert.Equal(t, "resources", p.InvalidParams[0].Name)
}

func TestIntegration_GenerateMissingStatement(t *testing.T) {
	env := newIntegrationEnv(t)

	w := env.do(t, http.MethodPost, "/api/builder/generate", map[string]any{
		"capabilityStatementUrl": env.fhir + "/nope",
		"resources":              []string{"Patient"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, problem.CodeUpstreamNotFound, decodeProblem(t, w).Code)
}

func TestIntegration_UnknownBuild(t *testing.T) {
	env := newIntegrationEnv(t)

	w := env.do(t, http.MethodGet, "/api/builder/download/00000000-0000-0000-0000-000000000000", nil)
	require.Equal(t, http.StatusNotFound, w.Code, w.Body.String())
	assert.Equal(t, problem.CodeNotFound, decodeProblem(t, w).Code)

	w = env.do(t, http.MethodGet, "/api/builder/download/short", nil)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestIntegration_CapabilityPreview(t *testing.T) {
	env := newIntegrationEnv(t)

	w := env.do(t, http.MethodGet, "/api/builder/capability-statement?url="+env.fhir+"/metadata", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res models.CapabilityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "4.0.1", res.Analysis.Version)
	assert.Equal(t, []string{"Patient", "Observation"}, res.Analysis.SupportedResources)

	w = env.do(t, http.MethodGet, "/api/builder/capability-statement", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/builder/capability-statement?url="+env.fhir+"/nope", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestIntegration_StacksAndOpenAPI(t *testing.T) {
	env := newIntegrationEnv(t)

	w := env.do(t, http.MethodGet, "/api/builder/stacks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stacks []models.StackInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stacks))
	assert.Len(t, stacks, 4)

	w = env.do(t, http.MethodGet, "/api/builder/openapi.json", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "/api/builder/generate"))
}

func TestIntegration_CORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	setupHooks()
	router := builder_client.NewRouter(builder_client.RouterOptions{
		Version:        "1.0.0",
		Logger:         zerolog.Nop(),
		AllowedOrigins: []string{"https://app.example"},
	}, handler.NewBuilderController(nil))

	req := httptest.NewRequest(http.MethodOptions, "/api/builder/generate", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}
