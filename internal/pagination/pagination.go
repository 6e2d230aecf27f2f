// Package pagination pages list endpoints (portfolios, transactions, users)
// over GORM queries.
package pagination

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest holds the ?page and ?page_size query parameters. Zero values
// select the first page and DefaultPageSize.
type PageRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// Bind reads the page parameters from the request query.
func Bind(c *gin.Context) (PageRequest, error) {
	var req PageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		return PageRequest{}, err
	}
	return req, nil
}

// Normalize returns req with defaults applied and the size capped.
func (req PageRequest) Normalize() PageRequest {
	if req.Page < 1 {
		req.Page = 1
	}
	switch {
	case req.PageSize < 1:
		req.PageSize = DefaultPageSize
	case req.PageSize > MaxPageSize:
		req.PageSize = MaxPageSize
	}
	return req
}

// Offset returns the SQL OFFSET of a normalized request.
func (req PageRequest) Offset() int {
	return (req.Page - 1) * req.PageSize
}

// PageResponse is one page of a list endpoint.
type PageResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPageResponse builds a page. Data is never nil so it renders as [].
func NewPageResponse[T any](data []T, req PageRequest, totalItems int64) *PageResponse[T] {
	req = req.Normalize()
	if data == nil {
		data = []T{}
	}
	size := int64(req.PageSize)
	return &PageResponse[T]{
		Data:       data,
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalItems: totalItems,
		TotalPages: int((totalItems + size - 1) / size),
	}
}

// WithData returns a page carrying data under the metadata of p. data must
// be a one-to-one conversion of p.Data.
func WithData[T, U any](p *PageResponse[T], data []U) *PageResponse[U] {
	if data == nil {
		data = []U{}
	}
	return &PageResponse[U]{
		Data:       data,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalItems: p.TotalItems,
		TotalPages: p.TotalPages,
	}
}

// Find counts the rows matched by query, then loads the requested page in
// the given order. query carries the filters only.
func Find[T any](query *gorm.DB, req PageRequest, order string) (*PageResponse[T], error) {
	req = req.Normalize()
	base := query.Model(new(T)).Session(&gorm.Session{})

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []T
	if err := base.Order(order).Offset(req.Offset()).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}
	return NewPageResponse(items, req, total), nil
}
