package fhir

import (
	"encoding/json"
	"testing"
)

func TestObject_Identity(t *testing.T) {
	o := Object{"resourceType": "CodeSystem", "id": "abc"}
	if o.ResourceType() != "CodeSystem" || o.ResourceID() != "abc" {
		t.Errorf("unexpected identity %s/%s", o.ResourceType(), o.ResourceID())
	}
	if (Object{}).ResourceID() != "" {
		t.Error("expected empty id for an empty object")
	}
}

func TestNewSearchBundle(t *testing.T) {
	resources := []Resource{
		Object{"resourceType": "CodeSystem", "id": "a"},
		Object{"resourceType": "CodeSystem", "id": "b"},
	}
	links := []BundleLink{{Relation: "self", URL: "/fhir/CodeSystem?_count=2"}}
	b := NewSearchBundle(resources, 7, links)

	if b.ResourceType != "Bundle" || b.Type != "searchset" {
		t.Errorf("unexpected bundle header %s/%s", b.ResourceType, b.Type)
	}
	if b.Total == nil || *b.Total != 7 {
		t.Errorf("expected total 7")
	}
	if len(b.Entry) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(b.Entry))
	}
	if b.Entry[1].FullURL != "CodeSystem/b" {
		t.Errorf("unexpected fullUrl %q", b.Entry[1].FullURL)
	}
	if b.Entry[0].Search == nil || b.Entry[0].Search.Mode != "match" {
		t.Error("expected search mode match")
	}
	if len(b.Link) != 1 || b.Link[0].Relation != "self" {
		t.Errorf("unexpected links %+v", b.Link)
	}
}

func TestNewSearchBundle_Empty(t *testing.T) {
	b := NewSearchBundle(nil, 0, nil)
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var parsed map[string]interface{}
	_ = json.Unmarshal(data, &parsed)
	if parsed["total"] != float64(0) {
		t.Errorf("expected total 0 to be rendered, got %v", parsed["total"])
	}
	if _, ok := parsed["entry"]; ok {
		t.Error("expected no entry key for an empty bundle")
	}
}

func TestOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		outcome *OperationOutcome
		code    string
		diag    string
	}{
		{"error", ErrorOutcome("boom"), "processing", "boom"},
		{"required", RequiredOutcome("system"), "required", "Parameter 'system' is required"},
		{"not found", NotFoundOutcome("CodeSystem", "x"), "not-found", "CodeSystem/x not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.outcome.ResourceType != "OperationOutcome" {
				t.Errorf("unexpected resourceType %q", tt.outcome.ResourceType)
			}
			issue := tt.outcome.Issue[0]
			if issue.Severity != "error" || issue.Code != tt.code || issue.Diagnostics != tt.diag {
				t.Errorf("unexpected issue %+v", issue)
			}
		})
	}
}

func TestParameters_Value(t *testing.T) {
	var p Parameters
	body := `{"resourceType":"Parameters","parameter":[
		{"name":"system","valueUri":"http://x/namaste"},
		{"name":"targetsystem","valueString":"icd11"},
		{"name":"code","valueCoding":{"system":"http://x/namaste","code":"SR11"}},
		{"name":"empty","valueString":""}]}`
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for name, want := range map[string]string{
		"system":       "http://x/namaste",
		"targetsystem": "icd11",
		"code":         "SR11",
		"empty":        "",
		"missing":      "",
	} {
		if got := p.Value(name); got != want {
			t.Errorf("Value(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestParameters_Builders(t *testing.T) {
	p := NewParameters(BoolParam("result", false), StringParam("message", "none"))
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"resourceType":"Parameters","parameter":[{"name":"result","valueBoolean":false},{"name":"message","valueString":"none"}]}`
	if string(data) != want {
		t.Errorf("got %s\nwant %s", data, want)
	}
}
