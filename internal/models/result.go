package models

import "time"

// CommandStat aggregates execution timing for one command line across all of
// its tasks.
type CommandStat struct {
	Command string
	Count   int
	Total   time.Duration
}

// RunResult is the aggregate outcome of a run. It always enumerates every
// task's final state; callers derive exit codes from it rather than from
// returned errors.
type RunResult struct {
	RunID         string
	Tasks         []Task   // Final snapshots in plan order
	EmptyGroups   []string // Groups whose patterns matched no files
	TotalFiles    int      // Distinct changed files the run operated on
	Duration      time.Duration
	Cancelled     bool
	RestoreErrors []string // Paths rollback could not restore, with reasons
}

// Succeeded reports whether the run finished without cancellation and every
// task reached StatusDone.
func (r *RunResult) Succeeded() bool {
	if r.Cancelled {
		return false
	}
	for i := range r.Tasks {
		if r.Tasks[i].Status != StatusDone {
			return false
		}
	}
	return true
}

// StatusCounts returns how many tasks ended in each status.
func (r *RunResult) StatusCounts() map[CommandStatus]int {
	counts := make(map[CommandStatus]int)
	for i := range r.Tasks {
		counts[r.Tasks[i].Status]++
	}
	return counts
}

// FailedTasks returns the tasks that ended Failed or TimedOut, in plan order.
func (r *RunResult) FailedTasks() []Task {
	var out []Task
	for _, t := range r.Tasks {
		if t.Failed() {
			out = append(out, t)
		}
	}
	return out
}

// CommandStats aggregates per-command counts and total durations, ordered by
// first appearance in the plan.
func (r *RunResult) CommandStats() []CommandStat {
	index := make(map[string]int)
	var out []CommandStat
	for _, t := range r.Tasks {
		i, ok := index[t.Command]
		if !ok {
			i = len(out)
			index[t.Command] = i
			out = append(out, CommandStat{Command: t.Command})
		}
		out[i].Count++
		out[i].Total += t.Duration()
	}
	return out
}

// ExitCode maps the run outcome to the process exit contract: 0 when every
// task is Done, 130 when the run was cancelled, 1 when any task Failed or
// TimedOut.
func (r *RunResult) ExitCode() int {
	if r.Cancelled {
		return 130
	}
	if r.Succeeded() {
		return 0
	}
	return 1
}
