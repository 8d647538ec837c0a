package artifact

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// writeArtifact creates a .zmod file with the given entries and returns its path.
func writeArtifact(t *testing.T, dir, filename string, entries map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, filename)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	w := zip.NewWriter(f)
	for name, content := range entries {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenReadsManifestAndSources(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "geometry.zmod", map[string]string{
		ManifestName: "name = \"geometry\"\ndependencies = \"vector, matrix\"\nentry = \"geometry.start\"\n",
		"b.lua":      "-- second",
		"a.lua":      "-- first",
		"notes.txt":  "not a source",
	})

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if a.Manifest.Name != "geometry" {
		t.Errorf("expected name geometry, got %q", a.Manifest.Name)
	}
	if a.Manifest.Entry != "geometry.start" {
		t.Errorf("expected entry geometry.start, got %q", a.Manifest.Entry)
	}

	deps := a.Manifest.DependencyList()
	if !reflect.DeepEqual(deps, []string{"vector", "matrix"}) {
		t.Errorf("expected [vector matrix], got %v", deps)
	}

	// Without a sources field, *.lua entries load in lexical order and
	// non-Lua entries are ignored.
	if len(a.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(a.Sources))
	}
	if a.Sources[0].Name != "a.lua" || a.Sources[1].Name != "b.lua" {
		t.Errorf("expected lexical order [a.lua b.lua], got [%s %s]",
			a.Sources[0].Name, a.Sources[1].Name)
	}
	if a.Sources[0].Code != "-- first" {
		t.Errorf("unexpected source content: %q", a.Sources[0].Code)
	}
}

func TestOpenHonorsManifestSourceOrder(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "ordered.zmod", map[string]string{
		ManifestName: "name = \"ordered\"\nsources = [\"z.lua\", \"a.lua\"]\n",
		"a.lua":      "-- a",
		"z.lua":      "-- z",
	})

	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if a.Sources[0].Name != "z.lua" || a.Sources[1].Name != "a.lua" {
		t.Errorf("expected manifest order [z.lua a.lua], got [%s %s]",
			a.Sources[0].Name, a.Sources[1].Name)
	}
}

func TestOpenManifestNamesMissingSource(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "broken.zmod", map[string]string{
		ManifestName: "name = \"broken\"\nsources = [\"gone.lua\"]\n",
	})

	_, err := Open(path)
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected *ReadError, got %v", err)
	}
}

func TestOpenCorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corrupt.zmod")
	if err := os.WriteFile(path, []byte("this is not a zip"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Open(path)
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected *ReadError, got %v", err)
	}
	if readErr.Path != path {
		t.Errorf("expected error to name %s, got %s", path, readErr.Path)
	}
}

func TestOpenMissingManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeArtifact(t, dir, "nomanifest.zmod", map[string]string{
		"a.lua": "-- no manifest",
	})

	_, err := Open(path)
	var readErr *ReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("expected *ReadError, got %v", err)
	}
}

func TestDependencyListSplitting(t *testing.T) {
	cases := []struct {
		field string
		want  []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b ", []string{"a", "b"}},
		{",,a,,", []string{"a"}},
		{" , ", nil},
	}
	for _, c := range cases {
		m := &Manifest{Dependencies: c.field}
		got := m.DependencyList()
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("DependencyList(%q) = %v, want %v", c.field, got, c.want)
		}
	}
}

func TestScanFiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "b.zmod", map[string]string{ManifestName: "name = \"b\"\n"})
	writeArtifact(t, dir, "a.ZMOD", map[string]string{ManifestName: "name = \"a\"\n"})
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.zmod"), 0755); err != nil {
		t.Fatal(err)
	}

	paths, err := Scan(dir, DefaultExtension)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 artifacts, got %d: %v", len(paths), paths)
	}
	// Extension match is case-insensitive; directories are skipped.
	if filepath.Base(paths[0]) != "a.ZMOD" || filepath.Base(paths[1]) != "b.zmod" {
		t.Errorf("unexpected scan result: %v", paths)
	}
}

func TestScanEmptyDirectory(t *testing.T) {
	paths, err := Scan(t.TempDir(), DefaultExtension)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("expected no artifacts, got %v", paths)
	}
}

func TestPackRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	manifest := "name = \"packed\"\ndependencies = \"base\"\nentry = \"packed.run\"\n"
	if err := os.WriteFile(filepath.Join(srcDir, ManifestName), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(srcDir, "packed.lua"), []byte("packed = {}"), 0644); err != nil {
		t.Fatal(err)
	}

	outPath := filepath.Join(t.TempDir(), "packed.zmod")
	if err := Pack(srcDir, outPath); err != nil {
		t.Fatalf("Pack failed: %v", err)
	}

	a, err := Open(outPath)
	if err != nil {
		t.Fatalf("Open of packed artifact failed: %v", err)
	}
	if a.Manifest.Name != "packed" {
		t.Errorf("expected name packed, got %q", a.Manifest.Name)
	}
	if len(a.Sources) != 1 || a.Sources[0].Code != "packed = {}" {
		t.Errorf("unexpected sources: %+v", a.Sources)
	}
}

func TestPackRejectsUnnamedManifest(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, ManifestName), []byte("entry = \"x.run\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	err := Pack(srcDir, filepath.Join(t.TempDir(), "out.zmod"))
	if err == nil {
		t.Fatal("expected Pack to reject a manifest without a name")
	}
}
