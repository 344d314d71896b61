package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/stagehand/internal/models"
)

func group(name string, patterns ...models.PatternEntry) models.Group {
	return models.Group{
		Name:       name,
		Patterns:   patterns,
		Order:      models.OrderParallel,
		Behavior:   models.BehaviorPerFile,
		PathFormat: models.PathRelative,
	}
}

func entry(pattern string, commands ...string) models.PatternEntry {
	if len(commands) == 0 {
		commands = []string{"true"}
	}
	return models.PatternEntry{Pattern: pattern, Commands: commands}
}

func TestRoute_BasicMatch(t *testing.T) {
	groups := []models.Group{group("fmt", entry("*.txt", "touch ok"))}
	files := []string{"a.txt", "b.md"}

	result := Route(files, groups)

	require.Len(t, result.Groups, 1)
	assert.Equal(t, []string{"a.txt"}, result.Groups[0].Files())
	assert.Equal(t, 2, result.TotalFiles)
	assert.Empty(t, result.EmptyGroups())
}

func TestRoute_FileMayBelongToManyGroups(t *testing.T) {
	groups := []models.Group{
		group("fmt", entry("*.go")),
		group("lint", entry("**/*.go")),
	}
	files := []string{"pkg/main.go"}

	result := Route(files, groups)

	require.Len(t, result.Groups, 2)
	assert.Equal(t, []string{"pkg/main.go"}, result.Groups[0].Files(),
		"first group should claim the file")
	assert.Equal(t, []string{"pkg/main.go"}, result.Groups[1].Files(),
		"second group should claim the same file independently")
}

func TestRoute_Deterministic(t *testing.T) {
	groups := []models.Group{
		group("a", entry("*.go"), entry("*.md")),
		group("b", entry("docs/**")),
	}
	files := []string{"x.go", "docs/y.md", "z.md", "x.go"}

	first := Route(files, groups)
	second := Route(files, groups)

	assert.Equal(t, first, second, "routing must be pure")
}

func TestRoute_DeduplicatesPreservingOrder(t *testing.T) {
	groups := []models.Group{group("all", entry("*"))}
	files := []string{"b.txt", "a.txt", "b.txt", "c.txt", "a.txt"}

	result := Route(files, groups)

	assert.Equal(t, 3, result.TotalFiles)
	assert.Equal(t, []string{"b.txt", "a.txt", "c.txt"}, result.Groups[0].Files())
}

func TestRoute_EmptyGroupReported(t *testing.T) {
	groups := []models.Group{
		group("fmt", entry("*.go")),
		group("styles", entry("*.css")),
	}
	files := []string{"main.go"}

	result := Route(files, groups)

	assert.Equal(t, []string{"styles"}, result.EmptyGroups())
	assert.True(t, result.Groups[1].Empty())
	assert.False(t, result.Groups[0].Empty())
}

func TestRoute_PerPatternEntryFiles(t *testing.T) {
	groups := []models.Group{
		group("web", entry("*.js", "eslint"), entry("*.css", "stylelint")),
	}
	files := []string{"app.js", "site.css", "util.js"}

	result := Route(files, groups)

	matches := result.Groups[0].Matches
	require.Len(t, matches, 2)
	assert.Equal(t, []string{"app.js", "util.js"}, matches[0].Files)
	assert.Equal(t, []string{"site.css"}, matches[1].Files)
	assert.Equal(t, []string{"app.js", "site.css", "util.js"}, result.Groups[0].Files())
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    bool
	}{
		{"simple star", "*.go", "main.go", true},
		{"star does not cross directories", "src/*.go", "src/deep/main.go", false},
		{"doublestar crosses directories", "src/**/*.go", "src/deep/main.go", true},
		{"basename match without slash", "*.go", "internal/pkg/main.go", true},
		{"no basename match with slash", "cmd/*.go", "internal/main.go", false},
		{"alternates", "*.{js,ts}", "app.ts", true},
		{"alternates miss", "*.{js,ts}", "app.go", false},
		{"question mark", "?.txt", "a.txt", true},
		{"windows separators normalized", "docs/*.md", "docs\\readme.md", true},
		{"no match", "*.py", "main.go", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.pattern, tt.path))
		})
	}
}

func TestValidatePattern(t *testing.T) {
	assert.True(t, ValidatePattern("**/*.go"))
	assert.True(t, ValidatePattern("*.{js,ts}"))
	assert.False(t, ValidatePattern("[unclosed"))
}

func TestRoute_NoGroups(t *testing.T) {
	result := Route([]string{"a.txt"}, nil)
	assert.Empty(t, result.Groups)
	assert.Equal(t, 1, result.TotalFiles)
}

func TestRoute_NoFiles(t *testing.T) {
	groups := []models.Group{group("fmt", entry("*.go"))}
	result := Route(nil, groups)
	assert.Equal(t, []string{"fmt"}, result.EmptyGroups())
}
