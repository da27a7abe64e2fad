package pagination

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

const (
	// DefaultSize is the page size applied when none is given.
	DefaultSize = 20
	// MaxSize caps the page size a caller may request.
	MaxSize = 100
)

// SortOrder is a single sort key with its direction.
type SortOrder struct {
	Field     string
	Ascending bool
}

// Params holds pagination parameters extracted from query strings.
// Page is 1-based.
type Params struct {
	Page int         `json:"page"`
	Size int         `json:"size"`
	Sort []SortOrder `json:"-"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return Params{
		Page: 1,
		Size: DefaultSize,
	}
}

// Offset returns the row offset for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Size
}

// FromRequest extracts pagination parameters from an HTTP request.
// Sort keys are given as repeated "sort=field,asc|desc" query parameters;
// a bare "sort=field" sorts ascending.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if page := r.URL.Query().Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if size := r.URL.Query().Get("size"); size != "" {
		if v, err := strconv.Atoi(size); err == nil && v > 0 && v <= MaxSize {
			p.Size = v
		}
	}

	for _, raw := range r.URL.Query()["sort"] {
		parts := strings.SplitN(raw, ",", 2)
		field := strings.TrimSpace(parts[0])
		if field == "" {
			continue
		}
		asc := true
		if len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[1]), "desc") {
			asc = false
		}
		p.Sort = append(p.Sort, SortOrder{Field: field, Ascending: asc})
	}

	return p
}

// OrderBy composes an ORDER BY clause from the sort keys, accepting only
// columns present in the allowed set. When no valid key remains the default
// "id DESC" ordering is used.
func (p Params) OrderBy(allowed map[string]string) string {
	var clauses []string
	for _, s := range p.Sort {
		col, ok := allowed[s.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if !s.Ascending {
			dir = "DESC"
		}
		clauses = append(clauses, fmt.Sprintf("%s %s", col, dir))
	}
	if len(clauses) == 0 {
		return "id DESC"
	}
	return strings.Join(clauses, ", ")
}

// Result wraps a paginated response.
type Result[T any] struct {
	Content       []T  `json:"content"`
	Page          int  `json:"page"`
	Size          int  `json:"size"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	First         bool `json:"first"`
	Last          bool `json:"last"`
}

// NewResult creates a paginated result.
func NewResult[T any](content []T, totalElements int, params Params) Result[T] {
	if content == nil {
		content = []T{}
	}

	totalPages := totalElements / params.Size
	if totalElements%params.Size > 0 {
		totalPages++
	}

	return Result[T]{
		Content:       content,
		Page:          params.Page,
		Size:          params.Size,
		TotalElements: totalElements,
		TotalPages:    totalPages,
		First:         params.Page == 1,
		Last:          params.Page >= totalPages,
	}
}
