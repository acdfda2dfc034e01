// Package storage holds the catalog stores and the raw input archive.
package storage

import "errors"

// ErrRowNotFound is returned by Update when the row id does not exist.
var ErrRowNotFound = errors.New("catalog row not found")

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
