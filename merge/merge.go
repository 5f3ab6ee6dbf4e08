// Package merge implements deep merging of translated trees into
// localization files.
package merge

import "github.com/minios-linux/jsonfill/jsontree"

// Merge overlays translated onto target and returns the result as a new
// tree. Neither input is modified.
//
//   - Keys present in only one tree are kept.
//   - When both trees hold an object at the same key, the objects are merged
//     recursively.
//   - Otherwise the translated value replaces the target value.
//
// Target key order is kept; keys only in translated are appended in their
// own order.
func Merge(target, translated *jsontree.Node) *jsontree.Node {
	if !translated.IsObject() {
		return target.Clone()
	}
	if !target.IsObject() {
		return translated.Clone()
	}

	result := jsontree.NewObject()

	for _, key := range target.Keys() {
		existing, _ := target.Get(key)
		update, ok := translated.Get(key)
		switch {
		case !ok:
			result.Set(key, existing.Clone())
		case existing.IsObject() && update.IsObject():
			result.Set(key, Merge(existing, update))
		default:
			result.Set(key, update.Clone())
		}
	}

	// Keys the target never had.
	for _, key := range translated.Keys() {
		if _, ok := target.Get(key); ok {
			continue
		}
		update, _ := translated.Get(key)
		result.Set(key, update.Clone())
	}

	return result
}
