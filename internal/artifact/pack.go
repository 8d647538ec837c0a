package artifact

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Pack builds an artifact from a source directory containing manifest.toml
// and the module's Lua sources. The manifest is validated before anything is
// written: it must parse and must declare a module name, so a packed artifact
// is always registrable.
func Pack(srcDir, outPath string) error {
	manifestPath := filepath.Join(srcDir, ManifestName)
	manifestData, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", manifestPath, err)
	}

	var manifest Manifest
	if err := toml.Unmarshal(manifestData, &manifest); err != nil {
		return fmt.Errorf("parsing %s: %w", manifestPath, err)
	}
	if manifest.Name == "" {
		return fmt.Errorf("%s declares no module name", manifestPath)
	}
	for _, name := range manifest.Sources {
		if _, err := os.Stat(filepath.Join(srcDir, filepath.FromSlash(name))); err != nil {
			return fmt.Errorf("manifest names missing source %s: %w", name, err)
		}
	}

	outFile, err := os.OpenFile(outPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating %s: %w", outPath, err)
	}
	defer outFile.Close()

	zipWriter := zip.NewWriter(outFile)
	if err := addDirToZip(zipWriter, srcDir); err != nil {
		zipWriter.Close()
		return fmt.Errorf("packing %s: %w", srcDir, err)
	}
	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("finishing %s: %w", outPath, err)
	}
	return nil
}

// addDirToZip adds the directory's regular files to the ZIP, preserving
// relative paths with forward slashes.
func addDirToZip(zipWriter *zip.Writer, sourceDir string) error {
	return filepath.Walk(sourceDir, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}

		relPath, err := filepath.Rel(sourceDir, filePath)
		if err != nil {
			return err
		}
		return addRegularFileToZip(zipWriter, filePath, filepath.ToSlash(relPath), info.Mode())
	})
}

// addRegularFileToZip adds one file to the ZIP archive with mode preservation.
func addRegularFileToZip(zipWriter *zip.Writer, filePath, zipPath string, mode fs.FileMode) error {
	header := &zip.FileHeader{
		Name:   zipPath,
		Method: zip.Deflate,
	}
	header.SetMode(mode)

	writer, err := zipWriter.CreateHeader(header)
	if err != nil {
		return err
	}

	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(writer, file)
	return err
}
