package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// resourceRelPath is the destination relative to the directory holding the binary.
var resourceRelPath = filepath.Join("..", "Resources", "public_suffix_list.dat")

// executable is swapped in tests.
var executable = os.Executable

// OutputPath resolves the destination file. An explicit Output.Path wins;
// otherwise the file lives in Resources/ next to the binary's parent directory.
// The result is always absolute.
func (c *AppConfig) OutputPath() (string, error) {
	if c.Output.Path != "" {
		p, err := filepath.Abs(c.Output.Path)
		if err != nil {
			return "", fmt.Errorf("resolve output path %q: %w", c.Output.Path, err)
		}
		return p, nil
	}

	exe, err := executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Abs(filepath.Join(filepath.Dir(exe), resourceRelPath))
}
