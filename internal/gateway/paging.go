package gateway

import (
	"context"
	"net/http"
)

// Page is one slice of a paginated collection. Next holds the absolute URL of
// the following page, or nil on the last one.
type Page[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
	Next   *string `json:"next"`
}

// FetchAll walks a paginated collection from its first page URL and returns
// every item. Each page is a separate gateway call, so other callers
// interleave between pages.
func FetchAll[T any](ctx context.Context, g *Gateway, url string) ([]T, error) {
	var items []T
	next := &url
	for next != nil {
		resp, err := g.Do(ctx, http.MethodGet, *next, nil)
		if err != nil {
			return nil, err
		}
		var page Page[T]
		if err := resp.Decode(&page); err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		next = page.Next
	}
	return items, nil
}
