// jsonfill fills untranslated strings in JSON localization files using
// Google Translate.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"

	"github.com/minios-linux/jsonfill/config"
	"github.com/minios-linux/jsonfill/fill"
	"github.com/minios-linux/jsonfill/i18n"
	"github.com/minios-linux/jsonfill/langmeta"
	"github.com/minios-linux/jsonfill/translate"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	blue   = color.New(color.FgBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow, color.Bold).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
)

func logInfo(format string, args ...any) {
	fmt.Fprintln(color.Error, blue("[INFO]"), i18n.Tf(format, args...))
}

func logSuccess(format string, args ...any) {
	fmt.Fprintln(color.Error, green("[OK]"), i18n.Tf(format, args...))
}

func logWarning(format string, args ...any) {
	fmt.Fprintln(color.Error, yellow("[WARN]"), i18n.Tf(format, args...))
}

func logError(format string, args ...any) {
	fmt.Fprintln(color.Error, red("[ERROR]"), i18n.Tf(format, args...))
}

// ---------------------------------------------------------------------------
// Global flags
// ---------------------------------------------------------------------------

var (
	configPath string
	verbose    bool
)

// envFile is the optional dotenv file read from the working directory.
const envFile = ".env"

// ---------------------------------------------------------------------------
// Root command
// ---------------------------------------------------------------------------

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jsonfill",
		Short: "Fill untranslated strings in JSON localization files",
		Long: `jsonfill fills the empty strings of JSON localization files.

Keys whose value is "" in a target file are looked up in a fully populated
source file, translated with Google Translate and merged back. Existing
translations are never touched.

Commands:
  translate   Translate the empty strings of one or more target files
  status      Show how many strings each target file is missing
  version     Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: "+config.FileName+" if present)")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable detailed logging")

	root.AddCommand(
		newTranslateCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

func main() {
	i18n.Init("")
	if err := newRootCmd().Execute(); err != nil {
		logError("%v", err)
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	level := "warn"
	if debug {
		level = "debug"
	}
	_ = logging.SetLogLevelRegex("jsonfill/.*", level)
}

// ---------------------------------------------------------------------------
// version
// ---------------------------------------------------------------------------

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display version, commit hash, and build date.`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "jsonfill version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}

// ---------------------------------------------------------------------------
// translate
// ---------------------------------------------------------------------------

type translateArgs struct {
	from, to      string
	maxConcurrent int
	timeout       time.Duration
	proxy         string
	maxRetries    int
	endpoint      string
	outputDir     string
	inPlace       bool
	backup        bool
	dryRun        bool
}

func newTranslateCmd() *cobra.Command {
	var a translateArgs

	cmd := &cobra.Command{
		Use:   "translate <source.json> <target.json>...",
		Short: "Translate the empty strings of target files",
		Long: `Translate every key whose value is "" in the target files, using the
text of the same key in the source file.

By default the result is written next to the source file under the target's
file name. Use --in-place to overwrite the target file itself, or
--output-dir to choose a directory.

The target language is taken from --to, or else inferred from the target
file name (fr.json, pt-BR.json, locales/de/common.json).

Examples:
  # Fill locales/fr.json from locales/en.json
  jsonfill translate locales/en.json locales/fr.json

  # Several targets, explicit source language
  jsonfill translate --from en locales/en.json locales/de.json locales/es.json

  # Show what would be translated
  jsonfill translate --dry-run locales/en.json locales/fr.json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranslate(cmd, args, a)
		},
	}

	// Languages
	cmd.Flags().StringVar(&a.from, "from", "", "Source language code, or auto (default: en)")
	cmd.Flags().StringVar(&a.to, "to", "", "Target language code (default: inferred from file name)")

	// Output
	cmd.Flags().StringVar(&a.outputDir, "output-dir", "", "Directory to write results to")
	cmd.Flags().BoolVar(&a.inPlace, "in-place", false, "Overwrite the target files")
	cmd.Flags().BoolVar(&a.backup, "backup", false, "Keep the previous output file as <file>.bak")
	cmd.Flags().BoolVar(&a.dryRun, "dry-run", false, "Show what would be translated without calling the service")

	// Network
	cmd.Flags().IntVar(&a.maxConcurrent, "max-concurrent", translate.DefaultMaxConcurrent, "Maximum concurrent requests")
	cmd.Flags().DurationVar(&a.timeout, "timeout", translate.DefaultTimeout, "Request timeout")
	cmd.Flags().StringVar(&a.proxy, "proxy", "", "HTTP/HTTPS proxy URL")
	cmd.Flags().IntVar(&a.maxRetries, "max-retries", 0, "Retries on network errors, 429 and 5xx")
	cmd.Flags().StringVar(&a.endpoint, "endpoint", "", "Translation endpoint URL")
	_ = cmd.Flags().MarkHidden("endpoint")

	return cmd
}

// loadConfig layers command-line flags over config.Load and validates.
func loadConfig(cmd *cobra.Command, a translateArgs) (*config.Config, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("from") {
		cfg.SourceLang = a.from
	}
	if flags.Changed("to") {
		cfg.TargetLang = a.to
	}
	if flags.Changed("max-concurrent") {
		cfg.MaxConcurrent = a.maxConcurrent
	}
	if flags.Changed("timeout") {
		cfg.Timeout = a.timeout
	}
	if flags.Changed("proxy") {
		cfg.Proxy = a.proxy
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries = a.maxRetries
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = a.endpoint
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = a.outputDir
	}
	if flags.Changed("in-place") {
		cfg.InPlace = a.inPlace
	}
	if flags.Changed("backup") {
		cfg.Backup = a.backup
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// targetLang picks the language of one target file: an explicit --to wins,
// then the file name, then the configured default.
func targetLang(target string, cfg *config.Config, explicit bool) (string, error) {
	if explicit && cfg.TargetLang != "" {
		return cfg.TargetLang, nil
	}
	if lang, ok := langmeta.FromPath(target); ok {
		return lang, nil
	}
	if cfg.TargetLang != "" {
		return cfg.TargetLang, nil
	}
	return "", fmt.Errorf("cannot infer the target language of %s; use --to", target)
}

func buildRequests(cfg *config.Config, source string, targets []string, explicitTo, dryRun bool) ([]fill.Request, error) {
	reqs := make([]fill.Request, 0, len(targets))
	for _, target := range targets {
		lang, err := targetLang(target, cfg, explicitTo)
		if err != nil {
			return nil, err
		}
		if cfg.SourceLang != langmeta.Auto && lang == cfg.SourceLang {
			return nil, fmt.Errorf("%s: target language %s is the source language", target, lang)
		}
		reqs = append(reqs, fill.Request{
			Source:     source,
			Target:     target,
			SourceLang: cfg.SourceLang,
			TargetLang: lang,
			OutputDir:  cfg.OutputDir,
			InPlace:    cfg.InPlace,
			Backup:     cfg.Backup,
			DryRun:     dryRun,
		})
	}
	return reqs, nil
}

func newClient(cfg *config.Config) *translate.GoogleClient {
	return translate.NewGoogleClient(translate.ClientOptions{
		Endpoint:   cfg.Endpoint,
		ClientID:   cfg.Client,
		Proxy:      cfg.Proxy,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		UserAgent:  "jsonfill/" + version,
		Verbose:    verbose,
	})
}

func runTranslate(cmd *cobra.Command, args []string, a translateArgs) error {
	cfg, err := loadConfig(cmd, a)
	if err != nil {
		return err
	}
	reqs, err := buildRequests(cfg, args[0], args[1:], cmd.Flags().Changed("to"), a.dryRun)
	if err != nil {
		return err
	}

	logInfo("Source: %s (%s)", args[0], langLabel(cfg.SourceLang))
	if !a.dryRun {
		logInfo("Concurrency: %d, timeout: %s, retries: %d", cfg.MaxConcurrent, cfg.Timeout, cfg.MaxRetries)
	}

	// Setup signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logWarning("Interrupted, stopping...")
			cancel()
		case <-ctx.Done():
		}
	}()

	reports, runErr := fill.RunAll(ctx, reqs, fill.Options{
		Translator:    newClient(cfg),
		MaxConcurrent: cfg.MaxConcurrent,
		OnProgress:    newProgressLogger(),
	})

	for _, rep := range reports {
		printReport(rep)
	}
	return runErr
}

// newProgressLogger returns an OnProgress callback that logs roughly every
// tenth of the work. It is called from several goroutines.
func newProgressLogger() func(req fill.Request, done, total int) {
	var mu sync.Mutex
	return func(req fill.Request, done, total int) {
		step := total / 10
		if step < 1 {
			step = 1
		}
		if done%step != 0 && done != total {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		logInfo("  %s: %d/%d", req.TargetLang, done, total)
	}
}

func printReport(rep *fill.Report) {
	target := rep.Request.Target

	switch {
	case rep.Request.DryRun:
		logInfo("%s (%s): %d strings to translate", target, langLabel(rep.Request.TargetLang), rep.Pending)
		return
	case rep.Pending == 0:
		logSuccess("%s: all strings are translated", target)
		return
	}

	if n := len(rep.Failures); n > 0 {
		logWarning("%s: %d of %d strings failed and were left empty", target, n, rep.Pending)
		if verbose {
			for _, f := range rep.Failures {
				logWarning("  %s: %v", strings.Join(f.Path, "."), f.Err)
			}
		}
	}
	if rep.Truncated > 0 {
		logWarning("%s: %d subtrees nested deeper than %d levels were copied without translation", target, rep.Truncated, translate.DefaultMaxDepth)
	}
	if rep.Written {
		logSuccess("%s: translated %d strings, wrote %s", target, rep.Translated(), rep.Output)
	}
}

// langLabel formats a language code with its English name, e.g.
// "pt-BR, Brazilian Portuguese".
func langLabel(code string) string {
	if code == langmeta.Auto {
		return code
	}
	meta := langmeta.Resolve(code)
	if meta.English == "" || meta.English == meta.Code {
		return meta.Code
	}
	return meta.Code + ", " + meta.English
}

// ---------------------------------------------------------------------------
// status (read-only: per-target statistics)
// ---------------------------------------------------------------------------

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <source.json> <target.json>...",
		Short: "Show translation statistics for target files",
		Long: `Show, for each target file, how many strings are translated, how many
are empty and how many of those can be filled from the source file. Does not
modify any files or contact the translation service.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(args[0], args[1:])
		},
	}
}

func runStatus(source string, targets []string) error {
	var reports []*fill.Report
	var errs []error
	for _, target := range targets {
		rep, err := fill.Run(context.Background(), fill.Request{Source: source, Target: target, DryRun: true}, fill.Options{})
		if err != nil {
			errs = append(errs, err)
			logError("%s: %v", target, err)
			continue
		}
		reports = append(reports, rep)
	}

	if len(reports) > 0 {
		showStatsTable(reports)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d of %d files could not be read", len(errs), len(targets))
	}
	return nil
}

func showStatsTable(reports []*fill.Report) {
	w := color.Error
	nameWidth := len("File")
	for _, rep := range reports {
		if n := len(filepath.Base(rep.Request.Target)); n > nameWidth {
			nameWidth = n
		}
	}

	fmt.Fprintln(w, blue(i18n.T("Translation Statistics")))
	fmt.Fprintln(w, strings.Repeat("─", nameWidth+52))
	fmt.Fprintf(w, "%-*s  %-12s %-10s %-8s %-8s %s\n", nameWidth, "File", "Lang", "Translated", "Empty", "Pending", "Progress")

	for _, rep := range reports {
		translated := rep.Total - rep.Empty
		percent := 100
		if rep.Total > 0 {
			percent = translated * 100 / rep.Total
		}
		fmt.Fprintf(w, "%-*s  %s %-10d %-8d %-8d %s\n",
			nameWidth, filepath.Base(rep.Request.Target),
			langCell(rep.Request.Target, 12),
			translated, rep.Empty, rep.Pending,
			progressBar(percent, 20))
	}
	fmt.Fprintln(w, strings.Repeat("─", nameWidth+52))
}

// langCell renders the inferred language of a target with its flag, padded
// to width display columns.
func langCell(target string, width int) string {
	code, ok := langmeta.FromPath(target)
	if !ok {
		return fmt.Sprintf("%-*s", width, "-")
	}
	cell := code
	cols := len(code)
	if flag := langmeta.Resolve(code).Flag; flag != "" {
		cell = flag + " " + code
		cols += 3
	}
	if cols < width {
		cell += strings.Repeat(" ", width-cols)
	}
	return cell
}

func progressBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)

	paint := red
	switch {
	case percent == 100:
		paint = green
	case percent >= 50:
		paint = yellow
	}
	return paint(bar) + fmt.Sprintf(" %3d%%", percent)
}
