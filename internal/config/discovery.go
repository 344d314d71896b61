package config

import (
	"os"
	"path/filepath"
	"strings"
)

// candidateNames are probed in order inside the working tree root. The
// package.json fallback reads its "stagehand" key.
var candidateNames = []string{
	".stagehand.toml",
	"stagehand.toml",
	".stagehand.yaml",
	"stagehand.yaml",
	".stagehand.json",
	"stagehand.json",
	"package.json",
}

// NotFoundError reports that no configuration file exists, listing every
// path that was checked so the user can see exactly where to put one.
type NotFoundError struct {
	Checked []string
}

func (e *NotFoundError) Error() string {
	var b strings.Builder
	b.WriteString("no configuration file found, checked:")
	for _, path := range e.Checked {
		b.WriteString("\n  ")
		b.WriteString(path)
	}
	return b.String()
}

// Discover probes the candidate file names in dir and returns the first one
// that exists.
func Discover(dir string) (string, error) {
	checked := make([]string, 0, len(candidateNames))
	for _, name := range candidateNames {
		path := filepath.Join(dir, name)
		checked = append(checked, path)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
	}
	return "", &NotFoundError{Checked: checked}
}

// LoadFromDir discovers and loads the configuration for dir.
func LoadFromDir(dir string) (*Config, error) {
	path, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	return Load(path)
}
