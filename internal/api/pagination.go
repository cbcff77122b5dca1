package api

import (
	"context"
	"net/url"
	"strconv"
)

const DefaultPageSize = 100

// Pager fetches a single page of a collection. *Client implements it.
type Pager interface {
	ListPage(ctx context.Context, path string, query url.Values, out any) (next string, requestID string, err error)
}

// ListAll follows offset cursors until the listing is exhausted and returns
// every item across all pages.
func ListAll[T any](ctx context.Context, pager Pager, path string, query url.Values) ([]T, error) {
	q := CloneQuery(query)
	if q.Get("limit") == "" {
		q.Set("limit", strconv.Itoa(DefaultPageSize))
	}
	var items []T
	seen := map[string]struct{}{}
	for {
		var page []T
		next, _, err := pager.ListPage(ctx, path, q, &page)
		if err != nil {
			return nil, err
		}
		items = append(items, page...)
		if next == "" {
			break
		}
		// a cursor that repeats would loop forever
		if _, ok := seen[next]; ok {
			break
		}
		seen[next] = struct{}{}
		q.Set("offset", next)
	}
	return items, nil
}

func CloneQuery(in url.Values) url.Values {
	if in == nil {
		return url.Values{}
	}
	out := make(url.Values, len(in))
	for k, vs := range in {
		cp := make([]string, len(vs))
		copy(cp, vs)
		out[k] = cp
	}
	return out
}
