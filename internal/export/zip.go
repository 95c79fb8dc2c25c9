package export

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// DefaultArchiveName is the zip the loose CSVs are bundled into.
const DefaultArchiveName = "vcexport.zip"

// Archive bundles the given files into a zip at zipPath, storing each entry
// at the archive root. When purge is true the loose files are removed after
// a successful write.
func Archive(zipPath string, files []string, purge bool) error {
	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("export: create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, file := range files {
		if err := addFile(zw, file); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("export: finalize archive: %w", err)
	}
	log.Printf("export: bundled %d files into %s", len(files), zipPath)

	if purge {
		log.Print("export: purging CSV files, leaving only the archive")
		for _, file := range files {
			if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("export: purge %s: %w", file, err)
			}
		}
	}
	return nil
}

func addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("export: open %s for archiving: %w", path, err)
	}
	defer f.Close()

	entry, err := zw.Create(filepath.Base(path))
	if err != nil {
		return fmt.Errorf("export: add archive entry %s: %w", path, err)
	}
	if _, err := io.Copy(entry, f); err != nil {
		return fmt.Errorf("export: copy %s into archive: %w", path, err)
	}
	return nil
}
