// Package client is a Go SDK for the FHIR-fly terminology API.
package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const apiPrefix = "/api/v1"

// APIError is returned for any non-2xx response.
type APIError struct {
	Status int
	Detail string `json:"detail"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fhirfly: %d %s", e.Status, e.Detail)
}

// Page is one page of a list endpoint.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	Size    int  `json:"size"`
	Pages   int  `json:"pages"`
	HasMore bool `json:"has_more"`
}

// ListOptions selects a page and narrows the result. Zero values are omitted.
type ListOptions struct {
	Page         int
	Size         int
	Search       string
	CodeSystemID *uuid.UUID
}

func (o ListOptions) params() map[string]string {
	p := map[string]string{}
	if o.Page > 0 {
		p["page"] = strconv.Itoa(o.Page)
	}
	if o.Size > 0 {
		p["size"] = strconv.Itoa(o.Size)
	}
	if o.Search != "" {
		p["search"] = o.Search
	}
	if o.CodeSystemID != nil {
		p["codesystem_id"] = o.CodeSystemID.String()
	}
	return p
}

type Client struct {
	http *resty.Client
}

type Option func(*resty.Client)

func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithRetries retries failed requests and 5xx responses.
func WithRetries(n int) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(n).
			SetRetryWaitTime(200 * time.Millisecond).
			SetRetryMaxWaitTime(2 * time.Second).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				return err != nil || r.StatusCode() >= 500
			})
	}
}

// WithUser sends X-User-ID, recorded as the actor of audited writes.
func WithUser(id string) Option {
	return func(c *resty.Client) { c.SetHeader("X-User-ID", id) }
}

func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")+apiPrefix).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json").
		SetError(&APIError{})
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

func (c *Client) do(ctx context.Context, method, path string, body, result interface{}, query map[string]string) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr, _ := resp.Error().(*APIError)
		if apiErr == nil || apiErr.Detail == "" {
			apiErr = &APIError{Detail: strings.TrimSpace(string(resp.Body()))}
		}
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return nil
}

// Translate runs a translation lookup. A missing mapping is not an error:
// the response carries Found=false.
func (c *Client) Translate(ctx context.Context, req TranslationRequest) (*TranslationResponse, error) {
	var out TranslationResponse
	if err := c.do(ctx, resty.MethodPost, "/conceptmaps/translate", req, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateCodeSystem(ctx context.Context, cs *CodeSystem) (*CodeSystem, error) {
	var out CodeSystem
	if err := c.do(ctx, resty.MethodPost, "/codesystems", cs, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCodeSystem(ctx context.Context, id uuid.UUID) (*CodeSystem, error) {
	var out CodeSystem
	if err := c.do(ctx, resty.MethodGet, "/codesystems/"+id.String(), nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCodeSystemByName(ctx context.Context, name string) (*CodeSystem, error) {
	var out CodeSystem
	if err := c.do(ctx, resty.MethodGet, "/codesystems/by-name/"+url.PathEscape(name), nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetCodeSystemByURL(ctx context.Context, csURL string) (*CodeSystem, error) {
	var out CodeSystem
	if err := c.do(ctx, resty.MethodGet, "/codesystems/by-url/"+url.PathEscape(csURL), nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListCodeSystems(ctx context.Context, opts ListOptions) (*Page[CodeSystem], error) {
	var out Page[CodeSystem]
	if err := c.do(ctx, resty.MethodGet, "/codesystems", nil, &out, opts.params()); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateConcept(ctx context.Context, in *Concept) (*Concept, error) {
	var out Concept
	if err := c.do(ctx, resty.MethodPost, "/concepts", in, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetConcept returns the concept with its mapping properties.
func (c *Client) GetConcept(ctx context.Context, id uuid.UUID) (*Concept, error) {
	var out Concept
	if err := c.do(ctx, resty.MethodGet, "/concepts/"+id.String(), nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetConceptByCode(ctx context.Context, codeSystemID uuid.UUID, code string) (*Concept, error) {
	var out Concept
	path := "/concepts/by-code/" + codeSystemID.String() + "/" + url.PathEscape(code)
	if err := c.do(ctx, resty.MethodGet, path, nil, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListConcepts(ctx context.Context, opts ListOptions) (*Page[Concept], error) {
	var out Page[Concept]
	if err := c.do(ctx, resty.MethodGet, "/concepts", nil, &out, opts.params()); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConceptsInCodeSystem returns every concept of a code system, unpaged.
func (c *Client) ConceptsInCodeSystem(ctx context.Context, codeSystemID uuid.UUID) ([]Concept, error) {
	var out []Concept
	if err := c.do(ctx, resty.MethodGet, "/concepts/codesystem/"+codeSystemID.String(), nil, &out, nil); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateConceptMap(ctx context.Context, m *ConceptMap) (*ConceptMap, error) {
	var out ConceptMap
	if err := c.do(ctx, resty.MethodPost, "/conceptmaps", m, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteConceptMap(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, resty.MethodDelete, "/conceptmaps/"+id.String(), nil, nil, nil)
}
