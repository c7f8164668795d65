package metadata

import (
	"fmt"
	"time"

	"howett.net/plist"
)

// Attributes is the decoded attribute tree of a manifest metadata blob.
// Blobs are NSKeyedArchiver-style binary plists: a flat "$objects" table
// with the entry's attribute dictionary at index 1. Malformed backups ship
// blobs with a missing or truncated table, so every accessor tolerates an
// arbitrary shape and reports absence instead of failing.
type Attributes struct {
	objects []interface{}
}

// Decode parses a metadata blob into its attribute tree. On failure it
// returns an empty tree alongside the error: callers streaming thousands of
// rows treat a corrupt blob as an entry without attributes rather than
// aborting the whole query.
func Decode(blob []byte) (*Attributes, error) {
	var root map[string]interface{}
	if _, err := plist.Unmarshal(blob, &root); err != nil {
		return &Attributes{}, fmt.Errorf("decoding metadata plist: %w", err)
	}
	objects, _ := root["$objects"].([]interface{})
	return &Attributes{objects: objects}, nil
}

// attrs returns the entry's attribute dictionary, or nil if the object table
// does not hold one at index 1.
func (a *Attributes) attrs() map[string]interface{} {
	if a == nil || len(a.objects) < 2 {
		return nil
	}
	m, _ := a.objects[1].(map[string]interface{})
	return m
}

// Size returns the recorded byte size of the entry.
func (a *Attributes) Size() (int64, bool) {
	return a.intAttr("Size")
}

// LastModified returns the recorded modification time.
func (a *Attributes) LastModified() (time.Time, bool) {
	ts, ok := a.intAttr("LastModified")
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(ts, 0), true
}

// Created reports the same instant as LastModified. The manifest stores no
// separate creation time; the browser has always surfaced LastModified in
// both columns and changing that silently would break comparisons against
// older exports.
func (a *Attributes) Created() (time.Time, bool) {
	return a.LastModified()
}

// SymlinkTarget resolves the "Target" back-reference into the object table.
// The reference is a plist UID indexing a string elsewhere in the table;
// a missing, mistyped or out-of-range reference yields no target.
func (a *Attributes) SymlinkTarget() (string, bool) {
	m := a.attrs()
	if m == nil {
		return "", false
	}
	uid, ok := m["Target"].(plist.UID)
	if !ok {
		return "", false
	}
	if uint64(uid) >= uint64(len(a.objects)) {
		return "", false
	}
	s, ok := a.objects[uid].(string)
	return s, ok
}

func (a *Attributes) intAttr(key string) (int64, bool) {
	m := a.attrs()
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case int64:
		return v, true
	case uint64:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}
