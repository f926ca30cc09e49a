// Package assets resolves file-backed response sources against a
// caller-supplied static-asset root and computes download headers.
package assets

import (
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMIME is used when no extension mapping exists.
const DefaultMIME = "application/octet-stream"

// Resolver locates response source files. Relative paths are searched
// against the configured roots in order; the first hit wins. The search
// order mirrors the host environments the engine runs in: packaged-app
// resource dir, then build output dir, then source dir.
type Resolver struct {
	roots []string
}

// NewResolver creates a resolver with the given root search order.
// With no roots, relative paths resolve against the working directory.
func NewResolver(roots ...string) *Resolver {
	return &Resolver{roots: roots}
}

// Resolve returns the first existing absolute path for source.
// Absolute sources are returned as-is when they exist.
func (r *Resolver) Resolve(source string) (string, error) {
	if source == "" {
		return "", fmt.Errorf("empty source path")
	}
	if filepath.IsAbs(source) {
		if _, err := os.Stat(source); err != nil {
			return "", fmt.Errorf("resolve %q: %w", source, err)
		}
		return source, nil
	}

	searched := r.roots
	if len(searched) == 0 {
		searched = []string{"."}
	}
	for _, root := range searched {
		candidate := filepath.Join(root, source)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("resolve %q: not found under %d asset root(s)", source, len(searched))
}

// Read resolves and reads a source file.
func (r *Resolver) Read(source string) ([]byte, string, error) {
	path, err := r.Resolve(source)
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read %q: %w", path, err)
	}
	return data, path, nil
}

// Sample resolves a bundled sample file for the given extension, used by
// file-mode responses with no explicit source. Samples live under a
// "samples" directory in the asset roots as sample.<ext>.
func (r *Resolver) Sample(extension string) ([]byte, string, error) {
	ext := strings.TrimPrefix(strings.ToLower(extension), ".")
	if ext == "" {
		ext = "txt"
	}
	name := filepath.Join("samples", "sample."+ext)
	return r.Read(name)
}

// extraMIMETypes covers extensions the platform mime database commonly
// misses.
var extraMIMETypes = map[string]string{
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".md":   "text/markdown; charset=utf-8",
	".webp": "image/webp",
	".woff": "font/woff",
	".wasm": "application/wasm",
}

// MIMEByExtension returns the MIME type for a filename's extension,
// defaulting to application/octet-stream.
func MIMEByExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if t, ok := extraMIMETypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return DefaultMIME
}

// ContentDisposition builds an attachment Content-Disposition header for
// the given filename. Non-ASCII names degrade to an ASCII-safe filename=
// while the UTF-8 original is offered via filename*= per RFC 5987.
func ContentDisposition(filename string) string {
	if filename == "" {
		filename = "download"
	}

	ascii := asciiFallback(filename)
	if ascii == filename {
		return fmt.Sprintf(`attachment; filename=%q`, filename)
	}
	return fmt.Sprintf(`attachment; filename=%q; filename*=UTF-8''%s`,
		ascii, url.PathEscape(filename))
}

// asciiFallback strips diacritics and replaces remaining non-ASCII runes
// so the plain filename parameter stays within ISO-8859-1/ASCII.
func asciiFallback(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	var b strings.Builder
	for _, r := range stripped {
		if r < 128 && r != '"' && r != '\\' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
