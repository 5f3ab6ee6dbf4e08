package jsontree

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func mustParse(t *testing.T, s string) *Node {
	t.Helper()
	n, err := Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	return n
}

func TestParse_PreservesKeyOrder(t *testing.T) {
	n := mustParse(t, `{"zeta": "z", "alpha": {"b": "1", "a": ""}, "mid": "m"}`)

	if got, want := n.Keys(), []string{"zeta", "alpha", "mid"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	alpha, ok := n.Get("alpha")
	if !ok || !alpha.IsObject() {
		t.Fatalf("alpha should be an object, got %#v", alpha)
	}
	if got, want := alpha.Keys(), []string{"b", "a"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("alpha.Keys() = %v, want %v", got, want)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"broken", `{"broken":`},
		{"trailing garbage", `{"a": "b"} x`},
		{"array root", `["a", "b"]`},
		{"string root", `"hello"`},
		{"empty", ``},
	}
	for _, tc := range tests {
		_, err := Parse([]byte(tc.data))
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !errors.Is(err, ErrParse) {
			t.Fatalf("%s: error %v should wrap ErrParse", tc.name, err)
		}
	}
}

func TestParseFile_Missing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(err, ErrParse) {
		t.Fatalf("ParseFile(missing) error = %v, want ErrParse", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("ParseFile(missing) error = %v, want os.ErrNotExist in chain", err)
	}
}

func TestMarshal_Format(t *testing.T) {
	n := mustParse(t, `{"a":"Hello <b>&</b>","b":{"c":"Monde","n":1.50,"t":true,"z":null},"e":{},"l":[1,"x"],"u":"日本"}`)

	out, err := n.Marshal()
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	want := `{
  "a": "Hello <b>&</b>",
  "b": {
    "c": "Monde",
    "n": 1.50,
    "t": true,
    "z": null
  },
  "e": {},
  "l": [
    1,
    "x"
  ],
  "u": "日本"
}
`
	if string(out) != want {
		t.Fatalf("Marshal() =\n%s\nwant\n%s", out, want)
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	src := `{
  "title": "Quote \" and \\ backslash",
  "nested": {
    "deep": {
      "x": ""
    }
  }
}
`
	n := mustParse(t, src)
	out, err := n.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != src {
		t.Fatalf("round trip changed document:\n%s", out)
	}
}

func TestSetKeepsPositionAndDuplicateKeys(t *testing.T) {
	n := mustParse(t, `{"a": "1", "b": "2", "a": "3"}`)
	if got, want := n.Keys(), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	if v, _ := n.Get("a"); v.Text() != "3" {
		t.Fatalf("duplicate key should keep last value, got %q", v.Text())
	}

	n.Set("b", NewString("two"))
	n.Set("c", NewString("3"))
	if got, want := n.Keys(), []string{"a", "b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() after Set = %v, want %v", got, want)
	}
}

func TestLookupAndClone(t *testing.T) {
	n := mustParse(t, `{"a": {"b": {"c": "deep"}}}`)

	leaf, ok := n.Lookup("a", "b", "c")
	if !ok || leaf.Text() != "deep" {
		t.Fatalf("Lookup(a,b,c) = %#v, %v", leaf, ok)
	}
	if _, ok := n.Lookup("a", "missing"); ok {
		t.Fatal("Lookup of missing key should fail")
	}
	if _, ok := n.Lookup("a", "b", "c", "d"); ok {
		t.Fatal("Lookup through a string leaf should fail")
	}

	c := n.Clone()
	b, _ := c.Lookup("a", "b")
	b.Set("c", NewString("changed"))
	if leaf, _ := n.Lookup("a", "b", "c"); leaf.Text() != "deep" {
		t.Fatalf("Clone shares state with original: %q", leaf.Text())
	}
}

func TestWalkAndStats(t *testing.T) {
	n := mustParse(t, `{"a": "", "b": {"c": "x", "d": ""}, "n": 3, "l": ["skip"]}`)

	var paths []string
	n.Walk(func(path []string, text string) {
		paths = append(paths, strings.Join(path, "."))
	})
	if want := []string{"a", "b.c", "b.d"}; !reflect.DeepEqual(paths, want) {
		t.Fatalf("Walk paths = %v, want %v", paths, want)
	}

	total, empty := n.Stats()
	if total != 3 || empty != 2 {
		t.Fatalf("Stats() = (%d, %d), want (3, 2)", total, empty)
	}
}

func TestWriteFile_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locales", "fr.json")
	n := NewObject()
	n.Set("hello", NewString("Bonjour"))

	if err := n.WriteFile(path); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "{\n  \"hello\": \"Bonjour\"\n}\n" {
		t.Fatalf("unexpected file content: %q", data)
	}
}
