package provider

import (
	"context"
	"strings"
)

// DefaultPageSize is the page size ListAll requests when the caller passes
// zero.
const DefaultPageSize = 1000

// ListAll drains every page under prefix and returns the concatenated
// objects in backend order.
//
// Paging stops when the backend reports no truncation. A short page is not
// the end: stores may return fewer keys than asked for and still have more.
// When a truncated page carries no continuation token, the last key of the
// page is used as a start-after marker; a truncated page with neither keys
// nor a token ends the listing, since there is nothing to resume from.
func ListAll(ctx context.Context, p Provider, prefix string, pageSize int) ([]ObjectSummary, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var (
		all        []ObjectSummary
		token      string
		startAfter string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := p.List(ctx, ListOptions{
			Prefix:            prefix,
			ContinuationToken: token,
			StartAfter:        startAfter,
			MaxKeys:           pageSize,
		})
		if err != nil {
			return nil, err
		}
		all = append(all, res.Objects...)

		if !res.IsTruncated {
			return all, nil
		}

		token = res.ContinuationToken
		startAfter = ""
		if token == "" {
			if len(res.Objects) == 0 {
				return all, nil
			}
			startAfter = res.Objects[len(res.Objects)-1].Key
		}
	}
}

// UnderRoot reports whether key sits at root itself or below root when root
// is read as a directory. "data" covers "data" and "data/x", not "database".
func UnderRoot(key, root string) bool {
	root = strings.TrimSuffix(root, "/")
	if root == "" {
		return true
	}
	return key == root || strings.HasPrefix(key, root+"/")
}
