package model

import (
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ReadLines returns the file split on "\n". A trailing newline yields a final
// empty element so that WriteLines reproduces the file byte for byte.
func ReadLines(filePath string) ([]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	return strings.Split(string(data), "\n"), nil
}

// WriteLines is the inverse of ReadLines.
func WriteLines(filePath string, lines []string) error {
	return os.WriteFile(filePath, []byte(strings.Join(lines, "\n")), 0644)
}

// CopyFile copies src over dst, creating dst's directory when needed.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// FileExists reports whether path names a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
