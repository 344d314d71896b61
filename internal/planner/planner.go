// Package planner turns routed files and group policy into an execution
// plan. Planning is a pure transformation: no process or OS resource is
// touched, so plans can be inspected and tested without side effects.
package planner

import (
	"fmt"
	"path/filepath"

	"github.com/harrison/stagehand/internal/models"
	"github.com/harrison/stagehand/internal/router"
)

// Options adjust how a plan is built.
type Options struct {
	RunID    string // Identifier stamped onto the plan, supplied by the caller
	RepoRoot string // Base directory for rewriting targets to absolute paths
}

// Build constructs the execution plan for a routed file set.
//
// Per-file behavior creates one task per matched file per command; batch
// behavior creates one task per command carrying the pattern entry's full
// file list. Sequential groups emit single-task batches in command-major
// order: command 1 visits every file before command 2 starts, so a formatter
// finishes across the whole set before the next tool reads it. Parallel
// groups emit one batch holding every task.
//
// Groups whose patterns matched nothing contribute no tasks and are recorded
// on the plan's EmptyGroups list for the caller's empty-match policy.
func Build(routed router.Result, opts Options) (*models.ExecutionPlan, error) {
	groups := make([]models.Group, len(routed.Groups))
	for i := range routed.Groups {
		groups[i] = routed.Groups[i].Group
	}
	if err := models.ValidateGroups(groups); err != nil {
		return nil, fmt.Errorf("invalid group configuration: %w", err)
	}

	plan := &models.ExecutionPlan{
		RunID:       opts.RunID,
		TotalFiles:  routed.TotalFiles,
		EmptyGroups: routed.EmptyGroups(),
	}

	for i := range routed.Groups {
		if routed.Groups[i].Empty() {
			continue
		}
		plan.Groups = append(plan.Groups, buildGroupPlan(&routed.Groups[i], opts))
	}

	return plan, nil
}

func buildGroupPlan(gm *router.GroupMatch, opts Options) models.GroupPlan {
	g := gm.Group

	seq := 0
	newTask := func(command string, targets []string) *models.Task {
		seq++
		return &models.Task{
			ID:      fmt.Sprintf("%s-%d", g.Name, seq),
			Group:   g.Name,
			Command: command,
			Targets: formatTargets(targets, g.PathFormat, opts.RepoRoot),
			Status:  models.StatusPending,
		}
	}

	var tasks []*models.Task
	for _, pm := range gm.Matches {
		if len(pm.Files) == 0 {
			continue
		}
		for _, command := range pm.Entry.Commands {
			switch g.Behavior {
			case models.BehaviorBatch:
				tasks = append(tasks, newTask(command, pm.Files))
			default:
				for _, file := range pm.Files {
					tasks = append(tasks, newTask(command, []string{file}))
				}
			}
		}
	}

	gp := models.GroupPlan{Group: g}
	switch g.Order {
	case models.OrderSequential:
		gp.Batches = make([]models.Batch, 0, len(tasks))
		for _, task := range tasks {
			gp.Batches = append(gp.Batches, models.Batch{Tasks: []*models.Task{task}})
		}
	default:
		if len(tasks) > 0 {
			gp.Batches = []models.Batch{{Tasks: tasks}}
		}
	}
	return gp
}

// formatTargets rewrites file paths per the group's path format. Relative
// targets stay exactly as routed; absolute targets are joined onto the
// repository root.
func formatTargets(files []string, format models.PathFormat, root string) []string {
	out := make([]string, len(files))
	for i, file := range files {
		if format == models.PathAbsolute && !filepath.IsAbs(file) {
			out[i] = filepath.Join(root, file)
		} else {
			out[i] = file
		}
	}
	return out
}
