package concept

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hacknrollers/FHIR-fly/internal/platform/apperr"
)

func newTestHandler() (*Handler, *echo.Echo, *mockRepo) {
	svc, repo, _, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(zerolog.Nop())
	h.RegisterRoutes(e.Group("/api/v1"))
	return h, e, repo
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreateConcept(t *testing.T) {
	_, e, _ := newTestHandler()
	csID := uuid.New()
	body := `{"codesystem_id":"` + csID.String() + `","code":"SR11","display":"Vataja Jvara","properties":[{"code":"dosha","value":"vata"}]}`

	rec := do(e, http.MethodPost, "/api/v1/concepts", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var c Concept
	if err := json.Unmarshal(rec.Body.Bytes(), &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.CodeSystemID != csID || len(c.Properties) != 1 {
		t.Errorf("unexpected concept %+v", c)
	}
}

func TestHandler_CreateConcept_PropertiesMustBeObjects(t *testing.T) {
	_, e, _ := newTestHandler()
	body := `{"codesystem_id":"` + uuid.NewString() + `","code":"A","properties":["nope"]}`
	rec := do(e, http.MethodPost, "/api/v1/concepts", body)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_GetConcept_Enriched(t *testing.T) {
	_, e, _ := newTestHandler()
	rec := do(e, http.MethodPost, "/api/v1/concepts", `{"codesystem_id":"`+uuid.NewString()+`","code":"A"}`)
	var c Concept
	_ = json.Unmarshal(rec.Body.Bytes(), &c)

	rec = do(e, http.MethodGet, "/api/v1/concepts/"+c.ID.String(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got Concept
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if len(got.Properties) != 1 || got.Properties[0]["code"] != "tag" {
		t.Errorf("expected enriched properties, got %v", got.Properties)
	}
}

func TestHandler_GetConceptByCode(t *testing.T) {
	_, e, _ := newTestHandler()
	csID := uuid.NewString()
	do(e, http.MethodPost, "/api/v1/concepts", `{"codesystem_id":"`+csID+`","code":"SR11"}`)

	if rec := do(e, http.MethodGet, "/api/v1/concepts/by-code/"+csID+"/SR11", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/v1/concepts/by-code/"+csID+"/NOPE", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/v1/concepts/by-code/bad/SR11", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_GetConceptByCode_EscapedCode(t *testing.T) {
	_, e, _ := newTestHandler()
	csID := uuid.NewString()
	for _, code := range []string{"EA-4.1/2", "50%", "AAA-1 (a)"} {
		body, _ := json.Marshal(map[string]string{"codesystem_id": csID, "code": code})
		if rec := do(e, http.MethodPost, "/api/v1/concepts", string(body)); rec.Code != http.StatusCreated {
			t.Fatalf("create %q: %d", code, rec.Code)
		}
		rec := do(e, http.MethodGet, "/api/v1/concepts/by-code/"+csID+"/"+url.PathEscape(code), "")
		if rec.Code != http.StatusOK {
			t.Fatalf("lookup %q: expected 200, got %d: %s", code, rec.Code, rec.Body.String())
		}
		var got Concept
		_ = json.Unmarshal(rec.Body.Bytes(), &got)
		if got.Code != code {
			t.Errorf("expected code %q, got %q", code, got.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/concepts/by-code/"+csID+"/x", nil)
	req.URL.RawPath = "/api/v1/concepts/by-code/" + csID + "/%zz"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed escape, got %d", rec.Code)
	}
}

func TestHandler_ListConcepts(t *testing.T) {
	_, e, _ := newTestHandler()
	csA, csB := uuid.NewString(), uuid.NewString()
	do(e, http.MethodPost, "/api/v1/concepts", `{"codesystem_id":"`+csA+`","code":"A1"}`)
	do(e, http.MethodPost, "/api/v1/concepts", `{"codesystem_id":"`+csA+`","code":"A2"}`)
	do(e, http.MethodPost, "/api/v1/concepts", `{"codesystem_id":"`+csB+`","code":"B1"}`)

	rec := do(e, http.MethodGet, "/api/v1/concepts?codesystem_id="+csA, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Items []Concept `json:"items"`
		Total int       `json:"total"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Items) != 2 {
		t.Errorf("expected 2 concepts, got %d/%d", len(resp.Items), resp.Total)
	}

	rec = do(e, http.MethodGet, "/api/v1/concepts/codesystem/"+csB, "")
	var byCS []Concept
	_ = json.Unmarshal(rec.Body.Bytes(), &byCS)
	if len(byCS) != 1 || byCS[0].Code != "B1" {
		t.Errorf("unexpected by-codesystem result %v", byCS)
	}

	if rec := do(e, http.MethodGet, "/api/v1/concepts?codesystem_id=zzz", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad filter, got %d", rec.Code)
	}
}

func TestHandler_UpdateAndDeleteConcept(t *testing.T) {
	_, e, repo := newTestHandler()
	rec := do(e, http.MethodPost, "/api/v1/concepts", `{"codesystem_id":"`+uuid.NewString()+`","code":"A","display":"x"}`)
	var c Concept
	_ = json.Unmarshal(rec.Body.Bytes(), &c)

	rec = do(e, http.MethodPut, "/api/v1/concepts/"+c.ID.String(), `{"display":"Alpha"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", rec.Code)
	}
	if d := repo.store[c.ID].Display; d == nil || *d != "Alpha" {
		t.Errorf("display not updated: %v", d)
	}

	if rec := do(e, http.MethodDelete, "/api/v1/concepts/"+c.ID.String(), ""); rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/v1/concepts/"+c.ID.String(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}
