package corpus

import (
	"fmt"
	"strings"
)

// KeyFunc extracts the identity key of an item. ok is false when the item
// carries no identity at all.
type KeyFunc[T any] func(item T) (key string, ok bool)

// Dedupe returns the stable-order unique subsequence of items: the first
// occurrence of each key is kept and later ones are dropped. Items without
// an identity are never treated as duplicates of one another.
func Dedupe[T any](items []T, key KeyFunc[T]) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k, ok := key(it)
		if ok {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
		}
		out = append(out, it)
	}
	return out
}

// joinKey builds a tuple key. ok is false only when every part is empty.
func joinKey(parts ...string) (string, bool) {
	ok := false
	for _, p := range parts {
		if p != "" {
			ok = true
			break
		}
	}
	return strings.Join(parts, "\x1f"), ok
}

// StoryKey identifies a story by its object id.
func StoryKey(s Story) (string, bool) {
	return s.ObjectID, s.ObjectID != ""
}

// HeadlineKey identifies a headline by (title, link).
func HeadlineKey(h Headline) (string, bool) {
	return joinKey(h.Title, h.Link)
}

// EntryKey lifts an item key rule to tagged entries. A failure is identified
// by its source, so each source keeps at most one failure per category.
func EntryKey[T any](item KeyFunc[T]) KeyFunc[Entry[T]] {
	return func(e Entry[T]) (string, bool) {
		if e.IsError() {
			return "error\x1f" + e.Err.Source, true
		}
		k, ok := item(e.Item)
		if !ok {
			return "", false
		}
		return "item\x1f" + k, true
	}
}

// FieldsKey builds a key rule over raw document records from the named
// fields. Absent and nil fields count as empty.
func FieldsKey(fields ...string) KeyFunc[map[string]any] {
	return func(rec map[string]any) (string, bool) {
		parts := make([]string, len(fields))
		for i, f := range fields {
			if v, ok := rec[f]; ok && v != nil {
				parts[i] = fmt.Sprint(v)
			}
		}
		return joinKey(parts...)
	}
}
