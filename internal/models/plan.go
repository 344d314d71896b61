package models

// Batch is a set of tasks eligible to run concurrently. Sequential groups
// contribute single-task batches; parallel groups contribute one batch
// holding every task.
type Batch struct {
	Tasks []*Task
}

// GroupPlan is one group's ordered batches together with the policy they run
// under.
type GroupPlan struct {
	Group   Group
	Batches []Batch
}

// ExecutionPlan is the planner's output: every group's batches in config
// order. Groups execute concurrently with each other; batches within a group
// execute strictly in sequence.
type ExecutionPlan struct {
	RunID       string
	Groups      []GroupPlan
	TotalFiles  int      // Distinct changed files fed to the router
	EmptyGroups []string // Groups whose patterns matched no files
}

// Tasks returns every task in deterministic plan order: groups as declared,
// batches in sequence, tasks within a batch as built.
func (p *ExecutionPlan) Tasks() []*Task {
	var out []*Task
	for _, gp := range p.Groups {
		for _, b := range gp.Batches {
			out = append(out, b.Tasks...)
		}
	}
	return out
}

// TaskCount returns the number of tasks across all groups.
func (p *ExecutionPlan) TaskCount() int {
	n := 0
	for _, gp := range p.Groups {
		for _, b := range gp.Batches {
			n += len(b.Tasks)
		}
	}
	return n
}

// RollbackTargets returns the deduplicated union of target paths across all
// tasks whose group has rollback enabled, in first-seen order. This is the
// exact file set the pre-run snapshot must cover.
func (p *ExecutionPlan) RollbackTargets() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, gp := range p.Groups {
		if !gp.Group.Rollback {
			continue
		}
		for _, b := range gp.Batches {
			for _, t := range b.Tasks {
				for _, target := range t.Targets {
					if _, ok := seen[target]; ok {
						continue
					}
					seen[target] = struct{}{}
					out = append(out, target)
				}
			}
		}
	}
	return out
}
