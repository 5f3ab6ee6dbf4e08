// Package langmeta normalizes and describes the language codes passed to the
// translation service (ISO 639-1, optionally with a region: "fr", "pt-BR").
package langmeta

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto asks the service to detect the source language.
const Auto = "auto"

// ErrInvalidCode is returned for codes that are not ISO 639-1 based tags.
var ErrInvalidCode = errors.New("invalid language code")

// Meta describes language display metadata.
type Meta struct {
	Code    string // normalized code, e.g. "pt-BR"
	Name    string // native name, e.g. "português (Brasil)"
	English string // English name, e.g. "Brazilian Portuguese"
	Flag    string // emoji flag for the (likely) region
}

func canonicalize(lang string) string {
	return strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
}

// Normalize validates code and returns its canonical form: lower-case
// language, upper-case region ("pt_br" -> "pt-BR"). The language part must
// be a two-letter ISO 639-1 code.
func Normalize(code string) (string, error) {
	c := canonicalize(code)
	if c == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidCode)
	}
	tag, err := language.Parse(c)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidCode, code, err)
	}
	base, _ := tag.Base()
	if len(base.String()) != 2 {
		return "", fmt.Errorf("%w: %q is not an ISO 639-1 code", ErrInvalidCode, code)
	}
	return tag.String(), nil
}

// NormalizeSource is Normalize that also accepts Auto.
func NormalizeSource(code string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(code), Auto) {
		return Auto, nil
	}
	return Normalize(code)
}

// Resolve returns best-effort metadata for code. Unknown codes are passed
// through as their own name.
func Resolve(code string) Meta {
	norm, err := Normalize(code)
	if err != nil {
		return Meta{Code: code, Name: code, English: code}
	}
	tag := language.MustParse(norm)

	m := Meta{
		Code:    norm,
		Name:    display.Self.Name(tag),
		English: display.English.Tags().Name(tag),
	}
	if m.Name == "" {
		m.Name = norm
	}
	if m.English == "" {
		m.English = norm
	}
	if region, conf := tag.Region(); conf != language.No {
		m.Flag = flagFromRegion(region.String())
	}
	return m
}

// flagFromRegion converts a two-letter region code to its emoji flag.
func flagFromRegion(region string) string {
	if len(region) != 2 {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(region) {
		if r < 'A' || r > 'Z' {
			return ""
		}
		b.WriteRune(0x1F1E6 + (r - 'A'))
	}
	return b.String()
}

// FromPath infers a language code from a localization file path. It tries,
// in order, the file name ("fr.json"), the last dotted part of the file name
// ("messages.fr.json") and the parent directory ("locales/fr/common.json").
func FromPath(path string) (string, bool) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	candidates := []string{name}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		candidates = append(candidates, name[i+1:])
	}
	candidates = append(candidates, filepath.Base(filepath.Dir(path)))

	for _, c := range candidates {
		if code, err := Normalize(c); err == nil {
			return code, true
		}
	}
	return "", false
}
