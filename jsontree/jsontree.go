// Package jsontree implements reading and writing of nested JSON
// localization files.
//
// A file is a tree of objects whose leaves are strings:
//
//	{
//	  "greeting": "Hello",
//	  "nav": {
//	    "home": "Home",
//	    "about": ""
//	  }
//	}
//
// Empty string leaves mean untranslated. Numbers, booleans, null and arrays
// are kept as they are and never translated. Key order from the input file
// is preserved on round-trip.
package jsontree

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

// ErrParse is returned (wrapped) when a file is missing, unreadable or not
// a valid JSON object.
var ErrParse = errors.New("cannot load localization file")

// json writes with a two-space indent and no HTML escaping.
var json = jsoniter.Config{
	IndentionStep:                 2,
	EscapeHTML:                    false,
	SortMapKeys:                   false,
	ValidateJsonRawMessage:        true,
	ObjectFieldMustBeSimpleString: false,
	CaseSensitive:                 true,
}.Froze()

// ---------------------------------------------------------------------------
// Node model
// ---------------------------------------------------------------------------

// Kind identifies the type of a Node.
type Kind int

const (
	KindObject Kind = iota
	KindString
	KindArray
	// KindRaw holds a number, boolean or null in its source form.
	KindRaw
)

// Node is one value of a localization tree.
type Node struct {
	kind Kind

	str   string
	raw   []byte
	elems []*Node

	// keys preserves the original key order of an object.
	keys  []string
	items map[string]*Node
}

// NewObject returns an empty object node.
func NewObject() *Node {
	return &Node{kind: KindObject, items: make(map[string]*Node)}
}

// NewString returns a string leaf.
func NewString(s string) *Node {
	return &Node{kind: KindString, str: s}
}

// NewRaw returns a leaf holding raw JSON text (number, boolean or null).
func NewRaw(raw []byte) *Node {
	return &Node{kind: KindRaw, raw: append([]byte(nil), raw...)}
}

// NewArray returns an array node.
func NewArray(elems ...*Node) *Node {
	return &Node{kind: KindArray, elems: elems}
}

// Kind returns the node kind.
func (n *Node) Kind() Kind { return n.kind }

// IsObject reports whether n is a non-nil object node.
func (n *Node) IsObject() bool { return n != nil && n.kind == KindObject }

// IsString reports whether n is a non-nil string leaf.
func (n *Node) IsString() bool { return n != nil && n.kind == KindString }

// Text returns the value of a string leaf, or "" for any other node.
func (n *Node) Text() string {
	if !n.IsString() {
		return ""
	}
	return n.str
}

// Keys returns the object keys in their original order.
func (n *Node) Keys() []string {
	if !n.IsObject() {
		return nil
	}
	return n.keys
}

// Len returns the number of keys of an object node.
func (n *Node) Len() int {
	if !n.IsObject() {
		return 0
	}
	return len(n.keys)
}

// Get returns the child stored at key.
func (n *Node) Get(key string) (*Node, bool) {
	if !n.IsObject() {
		return nil, false
	}
	child, ok := n.items[key]
	return child, ok
}

// Set stores child at key. A new key is appended after the existing ones;
// an existing key keeps its position.
func (n *Node) Set(key string, child *Node) {
	if n.kind != KindObject {
		panic("jsontree: Set on non-object node")
	}
	if _, ok := n.items[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.items[key] = child
}

// Lookup follows path from n and returns the node found there.
func (n *Node) Lookup(path ...string) (*Node, bool) {
	cur := n
	for _, key := range path {
		next, ok := cur.Get(key)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	switch n.kind {
	case KindObject:
		c := NewObject()
		for _, k := range n.keys {
			c.Set(k, n.items[k].Clone())
		}
		return c
	case KindArray:
		elems := make([]*Node, len(n.elems))
		for i, e := range n.elems {
			elems[i] = e.Clone()
		}
		return NewArray(elems...)
	case KindString:
		return NewString(n.str)
	default:
		return NewRaw(n.raw)
	}
}

// Walk calls fn for every string leaf reachable through objects, in
// document order. Strings inside arrays are not visited.
func (n *Node) Walk(fn func(path []string, text string)) {
	walk(n, nil, fn)
}

func walk(n *Node, prefix []string, fn func([]string, string)) {
	switch {
	case n.IsString():
		fn(append([]string(nil), prefix...), n.str)
	case n.IsObject():
		for _, k := range n.keys {
			walk(n.items[k], append(prefix, k), fn)
		}
	}
}

// Stats returns the number of string leaves and how many of them are empty.
func (n *Node) Stats() (total, empty int) {
	n.Walk(func(_ []string, text string) {
		total++
		if text == "" {
			empty++
		}
	})
	return total, empty
}

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a JSON localization file.
func ParseFile(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrParse, path, err)
	}
	root, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root, nil
}

// Parse parses JSON data. The document root must be an object.
func Parse(data []byte) (*Node, error) {
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrParse)
	}

	iter := jsoniter.ParseBytes(json, data)
	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return nil, fmt.Errorf("%w: document root must be an object", ErrParse)
	}

	root := readNode(iter)
	if iter.Error != nil && iter.Error != io.EOF {
		return nil, fmt.Errorf("%w: %w", ErrParse, iter.Error)
	}

	// Anything but whitespace after the root object is an error.
	iter.WhatIsNext()
	if iter.Error != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after document root", ErrParse)
	}
	return root, nil
}

func readNode(iter *jsoniter.Iterator) *Node {
	switch iter.WhatIsNext() {
	case jsoniter.ObjectValue:
		n := NewObject()
		iter.ReadObjectCB(func(it *jsoniter.Iterator, key string) bool {
			n.Set(key, readNode(it))
			return it.Error == nil
		})
		return n
	case jsoniter.ArrayValue:
		n := NewArray()
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			n.elems = append(n.elems, readNode(it))
			return it.Error == nil
		})
		return n
	case jsoniter.StringValue:
		return NewString(iter.ReadString())
	default:
		return &Node{kind: KindRaw, raw: iter.SkipAndReturnBytes()}
	}
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// Marshal serialises the tree with two-space indentation and a trailing
// newline.
func (n *Node) Marshal() ([]byte, error) {
	stream := json.BorrowStream(nil)
	defer json.ReturnStream(stream)

	writeNode(stream, n)
	stream.WriteRaw("\n")
	if stream.Error != nil {
		return nil, fmt.Errorf("encoding JSON: %w", stream.Error)
	}
	return append([]byte(nil), stream.Buffer()...), nil
}

func writeNode(stream *jsoniter.Stream, n *Node) {
	if n == nil {
		stream.WriteNil()
		return
	}
	switch n.kind {
	case KindObject:
		if len(n.keys) == 0 {
			stream.WriteEmptyObject()
			return
		}
		stream.WriteObjectStart()
		for i, k := range n.keys {
			if i > 0 {
				stream.WriteMore()
			}
			stream.WriteObjectField(k)
			writeNode(stream, n.items[k])
		}
		stream.WriteObjectEnd()
	case KindArray:
		if len(n.elems) == 0 {
			stream.WriteEmptyArray()
			return
		}
		stream.WriteArrayStart()
		for i, e := range n.elems {
			if i > 0 {
				stream.WriteMore()
			}
			writeNode(stream, e)
		}
		stream.WriteArrayEnd()
	case KindString:
		stream.WriteString(n.str)
	default:
		stream.WriteRaw(string(n.raw))
	}
}

// WriteFile serialises the tree and writes it to path, creating the parent
// directory if needed.
func (n *Node) WriteFile(path string) error {
	data, err := n.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
