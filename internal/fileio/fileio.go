// Package fileio reads briefs and reads and writes tasks.json documents.
package fileio

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zulandar/parsinator/internal/models"
)

// ErrFileIO marks every failure to locate, read or write a file.
var ErrFileIO = errors.New("fileio: file error")

// Handler resolves relative paths against a base directory.
type Handler struct {
	baseDir string
}

// New returns a Handler rooted at baseDir. An empty baseDir means the
// working directory.
func New(baseDir string) (*Handler, error) {
	if baseDir == "" {
		baseDir = "."
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve base directory %s: %v", ErrFileIO, baseDir, err)
	}
	return &Handler{baseDir: abs}, nil
}

// BaseDir is the absolute base directory.
func (h *Handler) BaseDir() string {
	return h.baseDir
}

// ReadBrief returns the content of a .md brief.
func (h *Handler) ReadBrief(path string) (string, error) {
	resolved, err := h.validatePath(path, ".md")
	if err != nil {
		return "", fmt.Errorf("%w: read brief file %s: %v", ErrFileIO, path, err)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("%w: read brief file %s: %v", ErrFileIO, path, err)
	}
	log.Debug().Str("path", resolved).Int("bytes", len(data)).Msg("read brief file")
	return string(data), nil
}

// ReadTasks loads a tasks.json document. A missing file is not an error:
// it returns a nil document so callers start a fresh project.
func (h *Handler) ReadTasks(path string) (*models.TasksDocument, error) {
	resolved, err := h.validatePath(path, ".json")
	if errors.Is(err, fs.ErrNotExist) {
		log.Info().Str("path", path).Msg("tasks file not found, starting a new project")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read tasks file %s: %v", ErrFileIO, path, err)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: read tasks file %s: %v", ErrFileIO, path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	doc, err := models.UnmarshalTasksDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JSON in tasks file %s: %w", ErrFileIO, path, err)
	}
	log.Debug().Str("path", resolved).Int("tasks", len(doc.Master.Tasks)).Msg("read tasks file")
	return doc, nil
}

// ReadJSON returns the raw bytes of a .json file. Unlike ReadTasks, a
// missing file is an error.
func (h *Handler) ReadJSON(path string) ([]byte, error) {
	resolved, err := h.validatePath(path, ".json")
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrFileIO, path, err)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrFileIO, path, err)
	}
	return data, nil
}

// WriteTasks writes doc to path, creating parent directories as needed.
func (h *Handler) WriteTasks(path string, doc *models.TasksDocument) error {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return fmt.Errorf("%w: write tasks file %s: expected a .json extension", ErrFileIO, path)
	}
	data, err := models.MarshalTasksDocument(doc)
	if err != nil {
		return fmt.Errorf("%w: write tasks file %s: %w", ErrFileIO, path, err)
	}
	return h.writeFile(path, append(data, '\n'))
}

// WriteFile writes arbitrary output, such as a generation summary.
func (h *Handler) WriteFile(path string, data []byte) error {
	return h.writeFile(path, data)
}

func (h *Handler) writeFile(path string, data []byte) error {
	resolved := h.resolve(path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("%w: create directory for %s: %v", ErrFileIO, path, err)
	}
	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", ErrFileIO, path, err)
	}
	log.Debug().Str("path", resolved).Int("bytes", len(data)).Msg("wrote file")
	return nil
}

// FindBriefs lists the .md files directly inside dir, sorted by name.
func (h *Handler) FindBriefs(dir string) ([]string, error) {
	resolved := h.resolve(dir)
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: find brief files in %s: %v", ErrFileIO, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: find brief files in %s: not a directory", ErrFileIO, dir)
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return nil, fmt.Errorf("%w: find brief files in %s: %v", ErrFileIO, dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		paths = append(paths, filepath.Join(resolved, e.Name()))
	}
	sort.Strings(paths)
	log.Debug().Str("dir", resolved).Int("count", len(paths)).Msg("found brief files")
	return paths, nil
}

func (h *Handler) resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(h.baseDir, path)
}

// validatePath checks existence, extension and containment. Absolute
// paths are trusted; relative ones may not climb out of the base directory.
func (h *Handler) validatePath(path string, ext string) (string, error) {
	resolved := h.resolve(path)
	info, err := os.Stat(resolved)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if !strings.EqualFold(filepath.Ext(resolved), ext) {
		return "", fmt.Errorf("invalid file extension %q, expected %s", filepath.Ext(resolved), ext)
	}
	if !filepath.IsAbs(path) {
		rel, err := filepath.Rel(h.baseDir, resolved)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("path outside base directory: %s", path)
		}
	}
	return resolved, nil
}
