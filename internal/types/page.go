package types

import "math"

// PageRequest selects one page of a listing. Number is zero-based.
type PageRequest struct {
	Number int
	Size   int
}

// Offset is the number of rows to skip to reach this page. It saturates
// at math.MaxInt, so a page too far out to address lands past the end of
// any result set instead of wrapping around to the first rows.
func (p PageRequest) Offset() int {
	if p.Number <= 0 || p.Size <= 0 {
		return 0
	}
	if p.Number > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return p.Number * p.Size
}

// Page is one slice of a larger, sorted result set.
//
// The JSON shape mirrors the page envelope the API has always returned,
// so existing clients keep reading "content" and "totalElements".
type Page[T any] struct {
	Content          []T   `json:"content"`
	Number           int   `json:"number"`
	Size             int   `json:"size"`
	NumberOfElements int   `json:"numberOfElements"`
	TotalElements    int64 `json:"totalElements"`
	TotalPages       int   `json:"totalPages"`
	First            bool  `json:"first"`
	Last             bool  `json:"last"`
	Empty            bool  `json:"empty"`
}

// NewPage assembles a Page from the rows of one page and the total row
// count of the whole result set. A nil content slice becomes an empty
// one so it encodes as [] rather than null.
func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = make([]T, 0)
	}

	totalPages := 0
	if req.Size > 0 {
		totalPages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}

	return Page[T]{
		Content:          content,
		Number:           req.Number,
		Size:             req.Size,
		NumberOfElements: len(content),
		TotalElements:    total,
		TotalPages:       totalPages,
		First:            req.Number == 0,
		Last:             req.Number >= totalPages-1,
		Empty:            len(content) == 0,
	}
}
