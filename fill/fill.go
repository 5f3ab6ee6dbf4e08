// Package fill runs the load, diff, translate, merge and write pipeline for
// one or more target localization files.
package fill

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	logging "github.com/ipfs/go-log/v2"

	"github.com/minios-linux/jsonfill/diff"
	"github.com/minios-linux/jsonfill/jsontree"
	"github.com/minios-linux/jsonfill/merge"
	"github.com/minios-linux/jsonfill/translate"
)

var log = logging.Logger("jsonfill/fill")

// Request describes one source/target pair.
type Request struct {
	// Source is the fully populated reference file.
	Source string
	// Target is the partially translated file whose "" leaves are filled.
	Target string

	SourceLang string
	TargetLang string

	// OutputDir replaces the directory of the output path.
	OutputDir string
	// InPlace writes the result to Target itself.
	InPlace bool
	// Backup copies an existing output file to <output>.bak before writing.
	Backup bool
	// DryRun loads and diffs only.
	DryRun bool
}

// Options are shared by every request of a run.
type Options struct {
	Translator    translate.Translator
	MaxConcurrent int
	MaxDepth      int
	// OnProgress is called after each leaf of the current request.
	OnProgress func(req Request, done, total int)
}

// Report summarises one processed request.
type Report struct {
	Request Request
	// Output is the path the result was (or would be) written to.
	Output string

	// Total and Empty are the string leaf counts of the target file.
	Total int
	Empty int
	// Pending is the number of strings sent for translation.
	Pending int

	Failures  []translate.Failure
	Truncated int
	Written   bool
}

// Translated returns the number of strings translated successfully.
func (r *Report) Translated() int {
	return r.Pending - len(r.Failures)
}

// OutputPath returns where the result of req is written. By default the
// target's base name is placed next to the source file.
func OutputPath(req Request) string {
	switch {
	case req.InPlace:
		return req.Target
	case req.OutputDir != "":
		return filepath.Join(req.OutputDir, filepath.Base(req.Target))
	default:
		return filepath.Join(filepath.Dir(req.Source), filepath.Base(req.Target))
	}
}

// Run processes one request. Load errors are returned wrapped in
// jsontree.ErrParse. Translation failures are not errors; they are listed
// in the report and the affected keys stay "".
func Run(ctx context.Context, req Request, opts Options) (*Report, error) {
	source, err := jsontree.ParseFile(req.Source)
	if err != nil {
		return nil, fmt.Errorf("loading source: %w", err)
	}
	target, err := jsontree.ParseFile(req.Target)
	if err != nil {
		return nil, fmt.Errorf("loading target: %w", err)
	}

	rep := &Report{Request: req, Output: OutputPath(req)}
	rep.Total, rep.Empty = target.Stats()

	pending := diff.Diff(source, target)
	rep.Pending = diff.Count(pending)

	if req.DryRun {
		return rep, nil
	}
	if pending.Len() == 0 {
		log.Debugw("nothing to translate", "target", req.Target)
		return rep, nil
	}
	if opts.Translator == nil {
		return nil, errors.New("fill: no translator configured")
	}
	if rep.Output != filepath.Clean(req.Target) && req.OutputDir == "" {
		log.Warnw("output path differs from target", "target", req.Target, "output", rep.Output)
	}

	tOpts := translate.Options{
		SourceLang:    req.SourceLang,
		TargetLang:    req.TargetLang,
		MaxConcurrent: opts.MaxConcurrent,
		MaxDepth:      opts.MaxDepth,
	}
	if opts.OnProgress != nil {
		tOpts.OnProgress = func(done, total int) { opts.OnProgress(req, done, total) }
	}

	res := translate.Tree(ctx, opts.Translator, pending, tOpts)
	rep.Failures = res.Failures
	rep.Truncated = res.Truncated

	merged := merge.Merge(target, res.Tree)

	if req.Backup {
		if err := backup(rep.Output); err != nil {
			return rep, err
		}
	}
	if err := merged.WriteFile(rep.Output); err != nil {
		return rep, err
	}
	rep.Written = true

	log.Debugw("wrote translations", "output", rep.Output, "pending", rep.Pending, "failed", len(rep.Failures))
	return rep, nil
}

// RunAll processes requests one after another. A failing request does not
// stop the others; all errors are joined.
func RunAll(ctx context.Context, reqs []Request, opts Options) ([]*Report, error) {
	var (
		reports []*Report
		errs    []error
	)
	for _, req := range reqs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		rep, err := Run(ctx, req, opts)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", req.Target, err))
		}
		if rep != nil {
			reports = append(reports, rep)
		}
	}
	return reports, errors.Join(errs...)
}

// backup copies path to path+".bak". A missing file is not an error.
func backup(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s for backup: %w", path, err)
	}
	if err := os.WriteFile(path+".bak", data, 0644); err != nil {
		return fmt.Errorf("writing backup: %w", err)
	}
	return nil
}
