package models

import (
	"fmt"
	"strings"
	"time"
)

// ExecutionOrder controls how a group's tasks are sequenced relative to each
// other.
type ExecutionOrder string

const (
	// OrderParallel runs all of the group's tasks concurrently.
	OrderParallel ExecutionOrder = "parallel"
	// OrderSequential runs the group's tasks one at a time, in declared order.
	OrderSequential ExecutionOrder = "sequential"
)

// ExecutionBehavior controls how matched files are attached to tasks.
type ExecutionBehavior string

const (
	// BehaviorPerFile creates one task per matched file per command.
	BehaviorPerFile ExecutionBehavior = "per_file"
	// BehaviorBatch creates one task per command carrying every matched file.
	BehaviorBatch ExecutionBehavior = "batch"
)

// PathFormat controls how target paths are written onto tasks.
type PathFormat string

const (
	// PathRelative leaves targets relative to the repository root.
	PathRelative PathFormat = "relative"
	// PathAbsolute rewrites targets to absolute paths before dispatch.
	PathAbsolute PathFormat = "absolute"
)

// PatternEntry pairs one glob pattern with the ordered list of commands to
// run over its matches.
type PatternEntry struct {
	Pattern  string   // Glob pattern, doublestar syntax
	Commands []string // Commands in declared order, each run via sh -c
}

// Group is a named policy bundle: the patterns that claim files and the rules
// their commands execute under. Groups are loaded once per run and are
// immutable afterwards.
type Group struct {
	Name            string
	Patterns        []PatternEntry // Ordered as declared in configuration
	Order           ExecutionOrder
	Behavior        ExecutionBehavior
	Timeout         time.Duration // 0 means no timeout
	ContinueOnError bool
	PathFormat      PathFormat
	Rollback        bool // Whether this group's targets join the pre-run snapshot
}

// Validate checks the group's invariants: a name, at least one pattern, no
// empty command lists, and recognized policy values.
func (g *Group) Validate() error {
	if g.Name == "" {
		return fmt.Errorf("group name is required")
	}
	if len(g.Patterns) == 0 {
		return fmt.Errorf("group %q has no patterns", g.Name)
	}
	for _, entry := range g.Patterns {
		if entry.Pattern == "" {
			return fmt.Errorf("group %q has an empty pattern", g.Name)
		}
		if len(entry.Commands) == 0 {
			return fmt.Errorf("group %q pattern %q has no commands", g.Name, entry.Pattern)
		}
		for _, command := range entry.Commands {
			if strings.TrimSpace(command) == "" {
				return fmt.Errorf("group %q pattern %q contains an empty command", g.Name, entry.Pattern)
			}
		}
	}
	switch g.Order {
	case OrderParallel, OrderSequential:
	default:
		return fmt.Errorf("group %q: invalid execution_order %q, must be parallel or sequential", g.Name, g.Order)
	}
	switch g.Behavior {
	case BehaviorPerFile, BehaviorBatch:
	default:
		return fmt.Errorf("group %q: invalid execution_behavior %q, must be per_file or batch", g.Name, g.Behavior)
	}
	switch g.PathFormat {
	case PathRelative, PathAbsolute:
	default:
		return fmt.Errorf("group %q: invalid path_format %q, must be relative or absolute", g.Name, g.PathFormat)
	}
	if g.Timeout < 0 {
		return fmt.Errorf("group %q: timeout must be >= 0, got %v", g.Name, g.Timeout)
	}
	return nil
}

// ValidateGroups checks each group and the cross-group invariant that names
// are unique within a run.
func ValidateGroups(groups []Group) error {
	seen := make(map[string]bool, len(groups))
	for i := range groups {
		if err := groups[i].Validate(); err != nil {
			return err
		}
		if seen[groups[i].Name] {
			return fmt.Errorf("duplicate group name %q", groups[i].Name)
		}
		seen[groups[i].Name] = true
	}
	return nil
}
