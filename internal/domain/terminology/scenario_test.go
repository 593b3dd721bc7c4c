package terminology

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hacknrollers/FHIR-fly/internal/domain/auditlog"
	"github.com/hacknrollers/FHIR-fly/internal/domain/codesystem"
	"github.com/hacknrollers/FHIR-fly/internal/domain/concept"
	"github.com/hacknrollers/FHIR-fly/internal/domain/conceptmap"
	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
	"github.com/hacknrollers/FHIR-fly/internal/platform/audit"
	"github.com/hacknrollers/FHIR-fly/internal/platform/db"
)

type stack struct {
	e        *echo.Echo
	cs       *codesystem.Service
	concepts *concept.Service
	maps     *conceptmap.Service
	audit    auditlog.Repository
}

func newStack(t *testing.T) *stack {
	t.Helper()
	sqlDB, err := db.OpenSQLite(context.Background(), "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	auditRepo := auditlog.NewRepoSQLite(sqlDB)
	rec := audit.NewRecorder(auditRepo, zerolog.Nop(), time.Second, nil)

	csSvc := codesystem.NewService(codesystem.NewRepoSQLite(sqlDB), rec)
	mapRepo := conceptmap.NewRepoSQLite(sqlDB)
	mapSvc := conceptmap.NewService(mapRepo, rec)
	conceptSvc := concept.NewService(concept.NewRepoSQLite(sqlDB), rec)
	conceptSvc.SetEnricher(NewEnricher(mapRepo, DefaultLabels(), nil))

	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(zerolog.Nop())
	api, fhirGroup := e.Group("/api/v1"), e.Group("/fhir")
	codesystem.NewHandler(csSvc).RegisterRoutes(api, fhirGroup)
	concept.NewHandler(conceptSvc).RegisterRoutes(api)
	conceptmap.NewHandler(mapSvc).RegisterRoutes(api)
	NewHandler(NewTranslator(csSvc, mapRepo, nil)).RegisterRoutes(api, fhirGroup)

	return &stack{e: e, cs: csSvc, concepts: conceptSvc, maps: mapSvc, audit: auditRepo}
}

func (s *stack) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

type seeded struct {
	a, b   *codesystem.CodeSystem
	c1, c2 *concept.Concept
	m      *conceptmap.ConceptMap
}

func (s *stack) seed(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	url, name, eq := "http://x/namaste", "icd11", "equivalent"

	d := seeded{
		a: &codesystem.CodeSystem{URL: &url},
		b: &codesystem.CodeSystem{Name: &name},
	}
	require.NoError(t, s.cs.Create(ctx, d.a))
	require.NoError(t, s.cs.Create(ctx, d.b))

	d.c1 = &concept.Concept{CodeSystemID: d.a.ID, Code: "SR11"}
	d.c2 = &concept.Concept{CodeSystemID: d.b.ID, Code: "1A00"}
	require.NoError(t, s.concepts.Create(ctx, d.c1))
	require.NoError(t, s.concepts.Create(ctx, d.c2))

	d.m = &conceptmap.ConceptMap{
		SourceCodeSystemID: d.a.ID, TargetCodeSystemID: d.b.ID,
		SourceCode: d.c1.ID, TargetCode: d.c2.ID, Equivalence: &eq,
	}
	require.NoError(t, s.maps.Create(ctx, d.m))
	return d
}

func TestScenario_EnrichAndTranslate(t *testing.T) {
	s := newStack(t)
	d := s.seed(t)

	rec := s.do(http.MethodGet, "/api/v1/concepts/codesystem/"+d.a.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var inA []concept.Concept
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inA))
	require.Len(t, inA, 1)
	require.Len(t, inA[0].Properties, 1)
	assert.Equal(t, concept.Property{"code": "icd11Mapping", "value": d.c2.ID.String(), "equivalence": "equivalent"}, inA[0].Properties[0])

	rec = s.do(http.MethodGet, "/api/v1/concepts/"+d.c2.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var c2 concept.Concept
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c2))
	require.Len(t, c2.Properties, 1)
	assert.Equal(t, "namasteMapping", c2.Properties[0]["code"])
	assert.Equal(t, d.c1.ID.String(), c2.Properties[0]["value"])

	rec = s.do(http.MethodPost, "/api/v1/conceptmaps/translate",
		`{"source_codesystem":"http://x/namaste","target_codesystem":"icd11","source_code":"`+d.c1.ID.String()+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"target_code":"`+d.c2.ID.String()+`","equivalence":"equivalent","found":true}`, rec.Body.String())
}

func TestScenario_RepeatedReadsDoNotAccumulate(t *testing.T) {
	s := newStack(t)
	d := s.seed(t)

	rec := s.do(http.MethodGet, "/api/v1/concepts?codesystem_id="+d.a.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = s.do(http.MethodGet, "/api/v1/concepts/by-code/"+d.a.ID.String()+"/SR11", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var once concept.Concept
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &once))
	assert.Len(t, once.Properties, 1, "repeated reads must not accumulate mapping properties")
}

func TestScenario_TranslateEdgeCases(t *testing.T) {
	s := newStack(t)
	d := s.seed(t)

	rec := s.do(http.MethodPost, "/api/v1/conceptmaps/translate",
		`{"source_codesystem":"http://x/namaste","target_codesystem":"icd11","source_code":"SR11"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"target_code":null,"equivalence":null,"found":false}`, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/v1/conceptmaps/translate",
		`{"source_codesystem":"unknown","target_codesystem":"icd11","source_code":"`+d.c1.ID.String()+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/conceptmaps/translate", `{"source_codesystem":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScenario_FHIRTranslate(t *testing.T) {
	s := newStack(t)
	d := s.seed(t)

	rec := s.do(http.MethodGet, "/fhir/ConceptMap/$translate?system=http://x/namaste&targetsystem=icd11&code="+d.c1.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var params struct {
		ResourceType string `json:"resourceType"`
		Parameter    []struct {
			Name         string `json:"name"`
			ValueBoolean *bool  `json:"valueBoolean"`
			Part         []struct {
				Name        string `json:"name"`
				ValueCode   string `json:"valueCode"`
				ValueCoding *struct {
					Code string `json:"code"`
				} `json:"valueCoding"`
			} `json:"part"`
		} `json:"parameter"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &params))
	assert.Equal(t, "Parameters", params.ResourceType)
	require.Len(t, params.Parameter, 2)
	assert.True(t, *params.Parameter[0].ValueBoolean)
	match := params.Parameter[1]
	assert.Equal(t, "match", match.Name)
	assert.Equal(t, "equivalent", match.Part[0].ValueCode)
	assert.Equal(t, d.c2.ID.String(), match.Part[1].ValueCoding.Code)

	body := `{"resourceType":"Parameters","parameter":[
		{"name":"system","valueUri":"icd11"},
		{"name":"targetsystem","valueUri":"http://x/namaste"},
		{"name":"code","valueCode":"` + d.c2.ID.String() + `"}]}`
	rec = s.do(http.MethodPost, "/fhir/ConceptMap/$translate", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"valueBoolean":false`)

	rec = s.do(http.MethodGet, "/fhir/ConceptMap/$translate?system=icd11&code=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "targetsystem")

	rec = s.do(http.MethodGet, "/fhir/ConceptMap/$translate?system=nope&targetsystem=icd11&code=x", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "OperationOutcome")
}

func TestScenario_MutationsAreAudited(t *testing.T) {
	s := newStack(t)
	d := s.seed(t)

	rec := s.do(http.MethodDelete, "/api/v1/conceptmaps/"+d.m.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	entries, total, err := s.audit.List(context.Background(), auditlog.Filter{TableName: conceptmap.TableName, RecordID: &d.m.ID}, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	ops := []audit.Operation{entries[0].Operation, entries[1].Operation}
	assert.ElementsMatch(t, []audit.Operation{audit.OpInsert, audit.OpDelete}, ops)

	_, total, err = s.audit.List(context.Background(), auditlog.Filter{Operation: audit.OpInsert}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total, "two codesystems, two concepts and one map")

	rec = s.do(http.MethodPost, "/api/v1/conceptmaps/translate",
		`{"source_codesystem":"http://x/namaste","target_codesystem":"icd11","source_code":"`+d.c1.ID.String()+`"}`)
	assert.JSONEq(t, `{"target_code":null,"equivalence":null,"found":false}`, rec.Body.String())
}
