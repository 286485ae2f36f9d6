package service

import "jeevandhara/internal/repository"

// Page size bounds for list endpoints.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageRequest is a 1-based page request as sent by clients.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize clamps the request into a valid range.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.Limit < 1:
		p.Limit = DefaultPageLimit
	case p.Limit > MaxPageLimit:
		p.Limit = MaxPageLimit
	}
	return p
}

// Bounds converts the request into a repository page.
func (p PageRequest) Bounds() repository.Page {
	p = p.Normalize()
	return repository.Page{Limit: p.Limit, Offset: (p.Page - 1) * p.Limit}
}

// first reports whether p is the default first page, the only page the
// listing cache holds.
func (p PageRequest) first() bool {
	p = p.Normalize()
	return p.Page == 1 && p.Limit == DefaultPageLimit
}

// Pagination describes where a page sits in a result set.
type Pagination struct {
	Page    int   `json:"page"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	Pages   int   `json:"pages"`
	HasNext bool  `json:"hasNext"`
	HasPrev bool  `json:"hasPrev"`
}

// Paginate builds the pagination block for total rows.
func Paginate(p PageRequest, total int64) Pagination {
	p = p.Normalize()
	pages := int((total + int64(p.Limit) - 1) / int64(p.Limit))
	return Pagination{
		Page:    p.Page,
		Limit:   p.Limit,
		Total:   total,
		Pages:   pages,
		HasNext: p.Page < pages,
		HasPrev: p.Page > 1,
	}
}

// Listing is one page of a collection.
type Listing[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

func newListing[T any](items []T, total int64, p PageRequest) Listing[T] {
	if items == nil {
		items = []T{}
	}
	return Listing[T]{Items: items, Pagination: Paginate(p, total)}
}
