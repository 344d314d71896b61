// Package router maps changed files onto command groups by glob pattern.
//
// Routing is pure: identical inputs always produce identical output and no
// I/O happens here. A file may land in any number of groups; groups never
// share or steal ownership of a file from each other.
package router

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/harrison/stagehand/internal/models"
)

// PatternMatch pairs one pattern entry with the files it matched, in input
// order.
type PatternMatch struct {
	Entry models.PatternEntry
	Files []string
}

// GroupMatch is the router's output for a single group.
type GroupMatch struct {
	Group   models.Group
	Matches []PatternMatch // One per pattern entry, in declared order
}

// Files returns the deduplicated union of files matched by any of the
// group's patterns, preserving input order.
func (gm *GroupMatch) Files() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, pm := range gm.Matches {
		for _, f := range pm.Files {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// Empty reports whether none of the group's patterns matched any file.
func (gm *GroupMatch) Empty() bool {
	for _, pm := range gm.Matches {
		if len(pm.Files) > 0 {
			return false
		}
	}
	return true
}

// Result is the complete routing outcome across all groups.
type Result struct {
	Groups     []GroupMatch // Config order, empty groups included
	TotalFiles int          // Distinct input files after deduplication
}

// EmptyGroups returns the names of groups whose patterns matched nothing.
func (r *Result) EmptyGroups() []string {
	var out []string
	for i := range r.Groups {
		if r.Groups[i].Empty() {
			out = append(out, r.Groups[i].Group.Name)
		}
	}
	return out
}

// Route matches every changed file against every group's patterns. Input
// files are deduplicated preserving first-seen order; group and pattern
// order follow the configuration. Patterns are assumed to be validated at
// config load, so a malformed pattern simply matches nothing here.
func Route(changedFiles []string, groups []models.Group) Result {
	files := dedupe(changedFiles)

	result := Result{
		Groups:     make([]GroupMatch, 0, len(groups)),
		TotalFiles: len(files),
	}

	for _, g := range groups {
		gm := GroupMatch{Group: g, Matches: make([]PatternMatch, 0, len(g.Patterns))}
		for _, entry := range g.Patterns {
			pm := PatternMatch{Entry: entry}
			for _, f := range files {
				if Matches(entry.Pattern, f) {
					pm.Files = append(pm.Files, f)
				}
			}
			gm.Matches = append(gm.Matches, pm)
		}
		result.Groups = append(result.Groups, gm)
	}

	return result
}

// Matches reports whether a single path satisfies a glob pattern. Patterns
// use doublestar syntax ("**/*.go", "*.{js,ts}") and paths are normalized
// to forward slashes before matching. A pattern without a slash is
// additionally tried against the path's basename, so "*.go" claims Go
// files in any directory, matching how staged-file runners are usually
// configured.
func Matches(pattern, path string) bool {
	p := strings.ReplaceAll(path, `\`, "/")

	if ok, err := doublestar.Match(pattern, p); err == nil && ok {
		return true
	}
	if !strings.Contains(pattern, "/") {
		if ok, err := doublestar.Match(pattern, filepath.Base(p)); err == nil && ok {
			return true
		}
	}
	return false
}

// ValidatePattern reports whether the pattern is well-formed doublestar
// syntax. Config loading rejects groups with malformed patterns up front.
func ValidatePattern(pattern string) bool {
	return doublestar.ValidatePattern(pattern)
}

func dedupe(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}
