// Package translate fills diff trees with machine translations.
//
// Every string leaf of a diff tree is sent to a Translator as one request.
// Siblings are translated concurrently; a weighted semaphore caps the
// number of requests in flight. A failed request never aborts the run: the
// leaf becomes "" and the failure is reported in Result.Failures.
package translate

import (
	"context"
	"strings"
	"sync/atomic"

	logging "github.com/ipfs/go-log/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/minios-linux/jsonfill/jsontree"
)

var log = logging.Logger("jsonfill/translate")

const (
	// DefaultMaxConcurrent is the default number of requests in flight.
	DefaultMaxConcurrent = 8
	// DefaultMaxDepth is the nesting depth past which subtrees are left
	// untranslated.
	DefaultMaxDepth = 10
)

// Translator translates a single string between two ISO 639-1 languages.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// TranslatorFunc adapts a function to the Translator interface.
type TranslatorFunc func(ctx context.Context, text, sourceLang, targetLang string) (string, error)

// Translate calls f.
func (f TranslatorFunc) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return f(ctx, text, sourceLang, targetLang)
}

// ---------------------------------------------------------------------------
// Options
// ---------------------------------------------------------------------------

// Options controls a tree translation.
type Options struct {
	// SourceLang is the language of the diff tree strings ("en", or "auto").
	SourceLang string
	// TargetLang is the language to translate to.
	TargetLang string
	// MaxConcurrent is the maximum number of requests in flight.
	MaxConcurrent int
	// MaxDepth is the deepest object level that is still translated; the
	// root is level 0.
	MaxDepth int
	// OnProgress is called after each leaf. It may be called from several
	// goroutines at once.
	OnProgress func(done, total int)
}

func (o *Options) effectiveMaxConcurrent() int {
	if o.MaxConcurrent > 0 {
		return o.MaxConcurrent
	}
	return DefaultMaxConcurrent
}

func (o *Options) effectiveMaxDepth() int {
	if o.MaxDepth > 0 {
		return o.MaxDepth
	}
	return DefaultMaxDepth
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

// Failure records one leaf whose translation failed.
type Failure struct {
	Path []string
	Text string
	Err  error
}

func (f Failure) Error() string {
	return strings.Join(f.Path, ".") + ": " + f.Err.Error()
}

func (f Failure) Unwrap() error { return f.Err }

// Result is the outcome of translating a diff tree.
type Result struct {
	// Tree has the shape of the diff tree with translated leaves. Failed
	// leaves hold "".
	Tree *jsontree.Node
	// Failures lists failed leaves in tree order.
	Failures []Failure
	// Truncated counts subtrees returned unchanged because they were nested
	// deeper than MaxDepth.
	Truncated int
}

// ---------------------------------------------------------------------------
// Single string
// ---------------------------------------------------------------------------

// Text translates one string. Empty input returns "" without calling t.
// Errors are logged and returned together with "".
func Text(ctx context.Context, t Translator, text, sourceLang, targetLang string) (string, error) {
	if text == "" {
		return "", nil
	}
	translated, err := t.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		log.Warnw("translation failed", "text", truncate(text, 60), "from", sourceLang, "to", targetLang, "err", err)
		return "", err
	}
	return translated, nil
}

// ---------------------------------------------------------------------------
// Tree
// ---------------------------------------------------------------------------

// Tree translates every string leaf of diff and returns a tree of the same
// shape. Subtrees nested deeper than MaxDepth are copied unchanged.
// Non-string leaves are copied as they are.
func Tree(ctx context.Context, t Translator, diff *jsontree.Node, opts Options) *Result {
	w := &walker{
		t:        t,
		opts:     opts,
		maxDepth: opts.effectiveMaxDepth(),
		sem:      semaphore.NewWeighted(int64(opts.effectiveMaxConcurrent())),
	}
	w.total = countLeaves(diff, 0, w.maxDepth)

	if !diff.IsObject() {
		return &Result{Tree: jsontree.NewObject()}
	}

	out := w.object(ctx, diff, nil, 0)
	return &Result{
		Tree:      out.node,
		Failures:  out.failures,
		Truncated: out.truncated,
	}
}

type walker struct {
	t        Translator
	opts     Options
	maxDepth int
	sem      *semaphore.Weighted

	total int
	done  atomic.Int64
}

// outcome is the translated form of one subtree. Each call builds and
// returns its own outcome; parents assemble them in key order.
type outcome struct {
	node      *jsontree.Node
	failures  []Failure
	truncated int
}

func (w *walker) object(ctx context.Context, n *jsontree.Node, path []string, depth int) outcome {
	if depth > w.maxDepth {
		log.Debugw("depth limit reached, subtree left as is", "path", strings.Join(path, "."), "depth", depth)
		return outcome{node: n.Clone(), truncated: 1}
	}

	keys := n.Keys()
	results := make([]outcome, len(keys))

	var g errgroup.Group
	for i, key := range keys {
		child, _ := n.Get(key)
		childPath := append(append([]string(nil), path...), key)

		g.Go(func() error {
			switch {
			case child.IsString():
				results[i] = w.leaf(ctx, child.Text(), childPath)
			case child.IsObject():
				results[i] = w.object(ctx, child, childPath, depth+1)
			default:
				results[i] = outcome{node: child.Clone()}
			}
			return nil
		})
	}
	_ = g.Wait()

	out := outcome{node: jsontree.NewObject()}
	for i, key := range keys {
		out.node.Set(key, results[i].node)
		out.failures = append(out.failures, results[i].failures...)
		out.truncated += results[i].truncated
	}
	return out
}

func (w *walker) leaf(ctx context.Context, text string, path []string) outcome {
	defer w.progress()

	if text == "" {
		return outcome{node: jsontree.NewString("")}
	}

	if err := w.sem.Acquire(ctx, 1); err != nil {
		return failed(path, text, err)
	}
	translated, err := Text(ctx, w.t, text, w.opts.SourceLang, w.opts.TargetLang)
	w.sem.Release(1)

	if err != nil {
		return failed(path, text, err)
	}
	return outcome{node: jsontree.NewString(translated)}
}

func failed(path []string, text string, err error) outcome {
	return outcome{
		node:     jsontree.NewString(""),
		failures: []Failure{{Path: path, Text: text, Err: err}},
	}
}

func (w *walker) progress() {
	done := w.done.Add(1)
	if w.opts.OnProgress != nil {
		w.opts.OnProgress(int(done), w.total)
	}
}

// countLeaves counts the string leaves that Tree will visit.
func countLeaves(n *jsontree.Node, depth, maxDepth int) int {
	if !n.IsObject() || depth > maxDepth {
		return 0
	}
	count := 0
	for _, k := range n.Keys() {
		child, _ := n.Get(k)
		switch {
		case child.IsString():
			count++
		case child.IsObject():
			count += countLeaves(child, depth+1, maxDepth)
		}
	}
	return count
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
