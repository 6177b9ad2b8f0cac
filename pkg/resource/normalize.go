// Package resource turns concrete request paths into templated resource paths.
//
// Numeric identifiers are replaced by a placeholder derived from the collection
// segment that precedes them:
//
//	/products/123            -> /products/productId
//	/posts/42/comments/7     -> /posts/postId/comments/commentId
//
// Only segments made entirely of ASCII digits are treated as identifiers. A
// numeric segment is replaced only when the segment before it names a
// collection: it must be non-empty, not numeric and not already a placeholder.
// The first segment of a path is therefore never replaced, and in
// /files/1/2 only the 1 is.
package resource

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// IDSuffix is appended to the singular collection name to build a placeholder.
const IDSuffix = "Id"

// Normalize returns the templated form of path. It is deterministic and
// idempotent: normalizing an already normalized path returns it unchanged.
func Normalize(path string) string {
	if !hasDigit(path) {
		return path
	}

	segments := strings.Split(path, "/")
	changed := false
	prev := segments[0]
	for i := 1; i < len(segments); i++ {
		seg := segments[i]
		if isNumeric(seg) && isCollection(prev) {
			segments[i] = Placeholder(prev)
			changed = true
		}
		prev = seg
	}

	if !changed {
		return path
	}
	return strings.Join(segments, "/")
}

// Placeholder returns the identifier placeholder for a collection segment,
// e.g. "categories" -> "categoryId".
func Placeholder(collection string) string {
	return inflection.Singular(collection) + IDSuffix
}

func isCollection(s string) bool {
	return s != "" && !isNumeric(s) && !strings.HasSuffix(s, IDSuffix)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func hasDigit(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return true
		}
	}
	return false
}
