package store

import (
	"strings"
)

// Bucket name constants for bbolt storage.
var (
	bucketMeta       = []byte("meta")
	bucketStates     = []byte("states")
	bucketSelections = []byte("selections")
	bucketVars       = []byte("vars")
)

// Meta key constants.
var (
	keyVersion = []byte("version")
)

const schemaVersion = 1

// Kind names the bucket a saved item lives in.
type Kind int

const (
	KindState Kind = iota
	KindSelection
	KindVars
)

func (k Kind) String() string {
	switch k {
	case KindState:
		return "state"
	case KindSelection:
		return "selection"
	case KindVars:
		return "vars"
	}
	return "unknown"
}

func (k Kind) bucket() []byte {
	switch k {
	case KindSelection:
		return bucketSelections
	case KindVars:
		return bucketVars
	}
	return bucketStates
}

// nameKey folds a saved name to its key; names are case-insensitive.
func nameKey(name string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(name)))
}
