package pagination

import (
	"fmt"
	"math"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultSize = 10
	MaxSize     = 100
)

// Params holds pagination parameters extracted from a request. Clients page
// with page/size; limit/offset (and the FHIR _count/_offset) are accepted as
// well and take precedence when present.
type Params struct {
	Page   int
	Size   int
	Limit  int
	Offset int
}

// FromContext extracts pagination parameters from the echo context. Values
// out of range are clamped rather than rejected.
func FromContext(c echo.Context) Params {
	size := firstInt(c, "size", "_count", "limit")
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	page := firstInt(c, "page")
	if page < 1 {
		page = 1
	}
	if maxPage := math.MaxInt32 / size; page > maxPage {
		page = maxPage
	}
	offset := (page - 1) * size

	if o := firstInt(c, "offset", "_offset"); o > 0 {
		offset = o
		page = offset/size + 1
	}

	return Params{Page: page, Size: size, Limit: size, Offset: offset}
}

func firstInt(c echo.Context, names ...string) int {
	for _, n := range names {
		if v, err := strconv.Atoi(c.QueryParam(n)); err == nil && v != 0 {
			return v
		}
	}
	return 0
}

// Response wraps a paginated API response.
type Response struct {
	Items   interface{} `json:"items"`
	Total   int         `json:"total"`
	Page    int         `json:"page"`
	Size    int         `json:"size"`
	Pages   int         `json:"pages"`
	HasMore bool        `json:"has_more"`
}

func NewResponse(items interface{}, total int, p Params) *Response {
	return &Response{
		Items:   items,
		Total:   total,
		Page:    p.Page,
		Size:    p.Size,
		Pages:   Pages(total, p.Size),
		HasMore: p.HasNext(total),
	}
}

// Pages is the number of pages of the given size needed for total items.
func Pages(total, size int) int {
	if size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

func (p Params) HasNext(total int) bool {
	return p.Offset+p.Limit < total
}

func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// FHIRLinks generates FHIR Bundle pagination links for a search result.
func (p Params) FHIRLinks(basePath string, total int) []FHIRLink {
	links := []FHIRLink{
		{Relation: "self", URL: fmt.Sprintf("%s?_offset=%d&_count=%d", basePath, p.Offset, p.Limit)},
	}
	if p.HasNext(total) {
		links = append(links, FHIRLink{
			Relation: "next",
			URL:      fmt.Sprintf("%s?_offset=%d&_count=%d", basePath, p.NextOffset(), p.Limit),
		})
	}
	if p.HasPrevious() {
		links = append(links, FHIRLink{
			Relation: "previous",
			URL:      fmt.Sprintf("%s?_offset=%d&_count=%d", basePath, p.PreviousOffset(), p.Limit),
		})
	}
	return links
}

type FHIRLink struct {
	Relation string `json:"relation"`
	URL      string `json:"url"`
}
