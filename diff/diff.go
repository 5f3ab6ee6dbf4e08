// Package diff extracts the strings that still need translation from a
// target localization tree.
package diff

import "github.com/minios-linux/jsonfill/jsontree"

// Diff walks target and returns the subset of source that has to be
// translated, in target key order.
//
//   - A target value of "" takes the source value at the same key. A source
//     string becomes a leaf, a source object is copied whole. A missing
//     source key, or a source value of any other kind, is left out.
//   - A target object is compared recursively against the source value at
//     the same key and kept only when the nested diff is not empty.
//   - Everything else is already translated or not translatable.
//
// The result is never nil; an empty object means nothing is pending.
func Diff(source, target *jsontree.Node) *jsontree.Node {
	out := jsontree.NewObject()

	for _, key := range target.Keys() {
		value, _ := target.Get(key)
		srcValue, _ := source.Get(key)

		switch {
		case value.IsString() && value.Text() == "":
			switch {
			case srcValue.IsString():
				out.Set(key, jsontree.NewString(srcValue.Text()))
			case srcValue.IsObject() && srcValue.Len() > 0:
				out.Set(key, srcValue.Clone())
			}
		case value.IsObject():
			// A missing or non-object source reads as an empty object.
			nested := Diff(srcValue, value)
			if nested.Len() > 0 {
				out.Set(key, nested)
			}
		}
	}

	return out
}

// Count returns the number of non-empty string leaves in a diff tree, which
// is the number of requests a translation run will make.
func Count(tree *jsontree.Node) int {
	n := 0
	tree.Walk(func(_ []string, text string) {
		if text != "" {
			n++
		}
	})
	return n
}
