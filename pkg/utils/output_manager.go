package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// OutputManager handles output file organization under a root directory.
// Every path it returns stays inside BaseOutputDir.
type OutputManager struct {
	BaseOutputDir string
}

func NewOutputManager(baseOutputDir string) *OutputManager {
	return &OutputManager{
		BaseOutputDir: baseOutputDir,
	}
}

// Resolve joins rel onto the base directory without letting it escape.
func (om *OutputManager) Resolve(rel string) (string, error) {
	return securejoin.SecureJoin(om.BaseOutputDir, rel)
}

// CreateDir creates rel under the base directory and returns its path.
func (om *OutputManager) CreateDir(rel string) (string, error) {
	dir, err := om.Resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return dir, nil
}

// GetOutputFilePath resolves rel and creates its parent directories.
func (om *OutputManager) GetOutputFilePath(rel string) (string, error) {
	p, err := om.Resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return p, nil
}

// RunFileName is the default name for a run's artifact.
func (om *OutputManager) RunFileName(pipelineID, runID, ext string) string {
	return filepath.Join(pipelineID, runID+"."+strings.TrimPrefix(ext, "."))
}

// Rel returns p relative to the base directory.
func (om *OutputManager) Rel(p string) string {
	base, err := filepath.Abs(om.BaseOutputDir)
	if err != nil {
		return p
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return p
	}
	return rel
}

// GetFileType determines the file type based on extension
func (om *OutputManager) GetFileType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return "csv"
	case ".json":
		return "json"
	case ".md", ".markdown":
		return "markdown"
	case ".html", ".htm":
		return "html"
	case ".txt":
		return "text"
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "unknown"
	}
}

// ExtensionFor maps a format name to a file extension.
func ExtensionFor(format string) string {
	switch strings.ToLower(format) {
	case "csv":
		return "csv"
	case "markdown", "md":
		return "md"
	case "html":
		return "html"
	case "text", "txt":
		return "txt"
	default:
		return "json"
	}
}

// GetFileSize returns the size of a file in bytes
func (om *OutputManager) GetFileSize(filePath string) (int64, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return 0, err
	}
	return fileInfo.Size(), nil
}

// EnsureOutputDirExists ensures the base output directory exists
func (om *OutputManager) EnsureOutputDirExists() error {
	return os.MkdirAll(om.BaseOutputDir, 0o755)
}
