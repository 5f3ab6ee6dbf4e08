package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/fatih/color"

	"github.com/minios-linux/jsonfill/config"
)

func init() {
	color.NoColor = true
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"SOURCE_LANG", "TARGET_LANG", "ENDPOINT", "PROXY", "MAX_CONCURRENT", "MAX_RETRIES", "TIMEOUT"} {
		t.Setenv(config.EnvPrefix+name, "")
		os.Unsetenv(config.EnvPrefix + name)
	}
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// gtxServer answers every request with "<tl>:<q>" and counts requests.
func gtxServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	calls := new(atomic.Int32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		fmt.Fprintf(w, `[[[%q,%q,null,null,10]],null,%q]`, q.Get("tl")+":"+q.Get("q"), q.Get("q"), q.Get("sl"))
	}))
	t.Cleanup(srv.Close)
	return srv, calls
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cfgPath := writeFile(t, filepath.Join(t.TempDir(), config.FileName), "")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestProgressBar(t *testing.T) {
	tests := []struct {
		name    string
		percent int
		width   int
		want    string
	}{
		{"clamps below zero", -10, 4, "░░░░   0%"},
		{"mid range", 50, 4, "██░░  50%"},
		{"clamps above hundred", 120, 4, "████ 100%"},
	}

	for _, tc := range tests {
		if got := progressBar(tc.percent, tc.width); got != tc.want {
			t.Fatalf("%s: progressBar() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestLangCell(t *testing.T) {
	cell := langCell("locales/pt-BR.json", 12)
	if !strings.Contains(cell, "🇧🇷") || !strings.Contains(cell, "pt-BR") {
		t.Fatalf("langCell() = %q, want flag and language code", cell)
	}
	if got := langCell("messages.json", 4); got != "-   " {
		t.Fatalf("langCell(unknown) = %q, want padded dash", got)
	}
}

func TestLangLabel(t *testing.T) {
	if got := langLabel("de"); got != "de, German" {
		t.Fatalf("langLabel(de) = %q", got)
	}
	if got := langLabel("auto"); got != "auto" {
		t.Fatalf("langLabel(auto) = %q", got)
	}
}

func TestTargetLang(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		cfgLang  string
		explicit bool
		want     string
		wantErr  bool
	}{
		{"from file name", "locales/fr.json", "", false, "fr", false},
		{"from directory", "locales/de/common.json", "", false, "de", false},
		{"explicit flag wins", "locales/fr.json", "es", true, "es", false},
		{"file name beats config default", "locales/fr.json", "es", false, "fr", false},
		{"config default as fallback", "messages.json", "es", false, "es", false},
		{"nothing to go on", "messages.json", "", false, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.TargetLang = tc.cfgLang
			got, err := targetLang(tc.target, cfg, tc.explicit)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("targetLang(%q) expected error", tc.target)
				}
				return
			}
			if err != nil || got != tc.want {
				t.Fatalf("targetLang(%q) = %q, %v; want %q", tc.target, got, err, tc.want)
			}
		})
	}
}

func TestBuildRequests(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDir = "out"
	cfg.Backup = true

	reqs, err := buildRequests(cfg, "en.json", []string{"fr.json", "de.json"}, false, true)
	if err != nil {
		t.Fatalf("buildRequests error: %v", err)
	}
	if len(reqs) != 2 {
		t.Fatalf("got %d requests, want 2", len(reqs))
	}
	r := reqs[1]
	if r.Source != "en.json" || r.Target != "de.json" || r.SourceLang != "en" || r.TargetLang != "de" ||
		r.OutputDir != "out" || !r.Backup || !r.DryRun {
		t.Fatalf("unexpected request %+v", r)
	}

	if _, err := buildRequests(cfg, "src.json", []string{"en.json"}, false, false); err == nil {
		t.Fatal("translating into the source language should fail")
	}
}

func TestTranslateCommand(t *testing.T) {
	clearEnv(t)
	srv, calls := gtxServer(t)
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "en.json"), `{"a":"Hello","b":{"c":"World"}}`)
	tgt := writeFile(t, filepath.Join(dir, "fr.json"), `{"a":"","b":{"c":"Monde"}}`)

	if _, err := execute(t, "translate", "--endpoint", srv.URL, src, tgt); err != nil {
		t.Fatalf("translate: %v", err)
	}

	want := "{\n  \"a\": \"fr:Hello\",\n  \"b\": {\n    \"c\": \"Monde\"\n  }\n}\n"
	if got := readFile(t, tgt); got != want {
		t.Fatalf("output =\n%s\nwant\n%s", got, want)
	}
	if calls.Load() != 1 {
		t.Fatalf("requests = %d, want 1", calls.Load())
	}
}

func TestTranslateCommand_MultipleTargetsAndFlags(t *testing.T) {
	clearEnv(t)
	srv, _ := gtxServer(t)
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "src", "en.json"), `{"a":"Hello"}`)
	fr := writeFile(t, filepath.Join(dir, "locales", "fr.json"), `{"a":""}`)
	de := writeFile(t, filepath.Join(dir, "locales", "de.json"), `{"a":""}`)
	out := filepath.Join(dir, "out")

	_, err := execute(t, "translate", "--endpoint", srv.URL, "--output-dir", out, "--max-concurrent", "1", src, fr, de)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}

	if got := readFile(t, filepath.Join(out, "fr.json")); !strings.Contains(got, `"fr:Hello"`) {
		t.Fatalf("fr output = %s", got)
	}
	if got := readFile(t, filepath.Join(out, "de.json")); !strings.Contains(got, `"de:Hello"`) {
		t.Fatalf("de output = %s", got)
	}
	if got := readFile(t, fr); got != `{"a":""}` {
		t.Fatalf("target changed without --in-place: %s", got)
	}
}

func TestTranslateCommand_DryRun(t *testing.T) {
	clearEnv(t)
	srv, calls := gtxServer(t)
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "en.json"), `{"a":"Hello"}`)
	tgt := writeFile(t, filepath.Join(dir, "fr.json"), `{"a":""}`)

	if _, err := execute(t, "translate", "--dry-run", "--endpoint", srv.URL, src, tgt); err != nil {
		t.Fatalf("translate --dry-run: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("dry run made %d requests", calls.Load())
	}
	if got := readFile(t, tgt); got != `{"a":""}` {
		t.Fatalf("dry run wrote the target: %s", got)
	}
}

func TestTranslateCommand_Errors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "en.json"), `{"a":"Hello"}`)
	unnamed := writeFile(t, filepath.Join(dir, "messages.json"), `{"a":""}`)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown target language", []string{"translate", src, unnamed}, "--to"},
		{"invalid language", []string{"translate", "--to", "klingon", src, unnamed}, "target language"},
		{"missing arguments", []string{"translate", src}, "arg"},
		{"missing source", []string{"translate", "--to", "fr", filepath.Join(dir, "none.json"), unnamed}, "cannot load"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := execute(t, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}

func TestStatusCommand(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	src := writeFile(t, filepath.Join(dir, "en.json"), `{"a":"Hello","b":"World"}`)
	tgt := writeFile(t, filepath.Join(dir, "fr.json"), `{"a":"","b":"Monde"}`)

	if _, err := execute(t, "status", src, tgt); err != nil {
		t.Fatalf("status: %v", err)
	}
	if got := readFile(t, tgt); got != `{"a":"","b":"Monde"}` {
		t.Fatalf("status modified the target: %s", got)
	}

	if _, err := execute(t, "status", src, filepath.Join(dir, "none.json")); err == nil {
		t.Fatal("status with unreadable target should fail")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "jsonfill version dev") {
		t.Fatalf("version output = %q", out)
	}
}
