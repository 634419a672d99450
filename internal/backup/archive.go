package backup

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/klauspost/compress/zip"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// ManifestName is the file added to the root of every archive.
const ManifestName = "BACKUP_MANIFEST.yaml"

// Manifest describes the contents of a backup archive.
type Manifest struct {
	Repository string    `yaml:"repository"`
	FullName   string    `yaml:"full_name"`
	CloneURL   string    `yaml:"clone_url"`
	Commit     string    `yaml:"commit,omitempty"`
	RunID      string    `yaml:"run_id,omitempty"`
	CreatedAt  time.Time `yaml:"created_at"`
	Files      int       `yaml:"files"`
	Bytes      int64     `yaml:"bytes"`
	Tool       string    `yaml:"tool"`
}

// ArchiveName returns "<name>_<YYYYMMDD_HHMMSS>.zip" with the repository name made filesystem safe.
func ArchiveName(repoName string, t time.Time) string {
	return fmt.Sprintf("%s_%s.zip", safeName(repoName), t.UTC().Format("20060102_150405"))
}

func safeName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "repository"
	}
	return out
}

// uniquePath appends _1, _2 ... when path already exists.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// CreateArchive zips srcDir into destPath, skipping .git, and appends the manifest.
// The archive is written to a temporary file and renamed into place. Returns the archive size.
func CreateArchive(srcDir, destPath string, manifest *Manifest) (int64, error) {
	tmpPath := destPath + ".partial"
	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive: %w", err)
	}
	ok := false
	defer func() {
		if !ok {
			f.Close()
			os.Remove(tmpPath)
		}
	}()

	zw := zip.NewWriter(f)
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		written, err := addFile(zw, path, filepath.ToSlash(rel), info)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", rel, err)
		}
		if manifest != nil {
			manifest.Files++
			manifest.Bytes += written
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if manifest != nil {
		data, err := yaml.Marshal(manifest)
		if err != nil {
			return 0, fmt.Errorf("failed to encode manifest: %w", err)
		}
		w, err := zw.CreateHeader(&zip.FileHeader{Name: ManifestName, Method: zip.Deflate, Modified: manifest.CreatedAt})
		if err != nil {
			return 0, err
		}
		if _, err := w.Write(data); err != nil {
			return 0, err
		}
	}

	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return 0, fmt.Errorf("failed to move archive into place: %w", err)
	}
	ok = true

	st, err := os.Stat(destPath)
	if err != nil {
		return 0, err
	}
	return st.Size(), nil
}

func addFile(zw *zip.Writer, path, name string, info fs.FileInfo) (int64, error) {
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return 0, err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return 0, err
	}
	src, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer src.Close()
	return io.Copy(w, src)
}
