// Package artifact reads and writes module artifacts. An artifact is a ZIP
// file (extension .zmod by default) containing a manifest.toml entry plus the
// module's Lua sources. The manifest declares the module's name, its
// dependencies, and the entry point to invoke on activation.
package artifact

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	// ManifestName is the manifest entry inside every artifact.
	ManifestName = "manifest.toml"
	// DefaultExtension identifies candidate artifacts during a directory scan.
	DefaultExtension = ".zmod"
)

// Manifest is the embedded metadata of an artifact.
type Manifest struct {
	// Name is the module's unique identifier. Required for registration.
	Name string `toml:"name"`
	// Dependencies is a comma-separated list of module names.
	Dependencies string `toml:"dependencies"`
	// Entry is the dotted identifier of the callable to invoke on
	// activation, resolved against the scope's globals (e.g. "geometry.start").
	// Required for activation, not for registration.
	Entry string `toml:"entry"`
	// Sources optionally fixes the load order of the artifact's Lua
	// entries. Entries not listed here are not loaded. When absent, all
	// *.lua entries load in lexical order.
	Sources []string `toml:"sources"`
}

// DependencyList splits the Dependencies field on commas, trims whitespace,
// and drops empty entries. An absent field yields an empty list.
func (m *Manifest) DependencyList() []string {
	if m.Dependencies == "" {
		return nil
	}
	var deps []string
	for _, part := range strings.Split(m.Dependencies, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		deps = append(deps, part)
	}
	return deps
}

// Source is one Lua source entry read out of an artifact.
type Source struct {
	Name string
	Code string
}

// Artifact is a fully read module artifact. The backing file handle is
// released before Open returns; everything needed later is held in memory.
type Artifact struct {
	Path     string
	Manifest Manifest
	Sources  []Source
}

// ReadError reports an unreadable or malformed artifact. The scan skips the
// artifact and continues; a ReadError never aborts the whole scan.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading artifact %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Open reads an artifact and its manifest. The returned Artifact holds the
// manifest and all Lua sources in load order; the ZIP handle is closed before
// returning. Any failure is reported as a *ReadError.
func Open(artifactPath string) (*Artifact, error) {
	reader, err := zip.OpenReader(artifactPath)
	if err != nil {
		return nil, &ReadError{Path: artifactPath, Err: err}
	}
	defer reader.Close()

	entries := make(map[string]*zip.File, len(reader.File))
	for _, f := range reader.File {
		entries[f.Name] = f
	}

	manifestEntry, ok := entries[ManifestName]
	if !ok {
		return nil, &ReadError{Path: artifactPath, Err: fmt.Errorf("no %s entry", ManifestName)}
	}
	manifestText, err := readEntry(manifestEntry)
	if err != nil {
		return nil, &ReadError{Path: artifactPath, Err: err}
	}

	a := &Artifact{Path: artifactPath}
	if err := toml.Unmarshal([]byte(manifestText), &a.Manifest); err != nil {
		return nil, &ReadError{Path: artifactPath, Err: fmt.Errorf("parsing %s: %w", ManifestName, err)}
	}

	names := a.Manifest.Sources
	if len(names) == 0 {
		for name := range entries {
			if path.Ext(name) == ".lua" {
				names = append(names, name)
			}
		}
		sort.Strings(names)
	}

	for _, name := range names {
		entry, ok := entries[name]
		if !ok {
			return nil, &ReadError{Path: artifactPath, Err: fmt.Errorf("manifest names missing source %s", name)}
		}
		code, err := readEntry(entry)
		if err != nil {
			return nil, &ReadError{Path: artifactPath, Err: err}
		}
		a.Sources = append(a.Sources, Source{Name: name, Code: code})
	}

	return a, nil
}

// readEntry reads one ZIP entry fully into a string.
func readEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("opening entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	buf := new(strings.Builder)
	if _, err := io.Copy(buf, rc); err != nil {
		return "", fmt.Errorf("reading entry %s: %w", f.Name, err)
	}
	return buf.String(), nil
}

// Scan lists candidate artifact paths in dir, matching ext case-insensitively
// and not recursing. The result is sorted for deterministic logging; the
// loader attaches no meaning to the order.
func Scan(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(entry.Name()), strings.ToLower(ext)) {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
