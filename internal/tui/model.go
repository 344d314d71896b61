// Package tui renders a live run view in the terminal.
//
// It follows The Elm Architecture: the Model holds all view state, Update
// folds messages into it, and View renders it to a string. The model is a
// pure subscriber: it consumes the status store's event stream and never
// mutates task state. Quitting before the run settles cancels the run
// through the provided cancel function and keeps the screen up until the
// engine has settled every task; the command layer prints the final summary
// after the program exits.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harrison/stagehand/internal/models"
	"github.com/harrison/stagehand/internal/status"
)

const clockInterval = 250 * time.Millisecond

// RunFinishedMsg tells the TUI the run has settled. The command layer sends
// it through Program.Send once the engine returns.
type RunFinishedMsg struct {
	Result *models.RunResult
}

type eventMsg struct {
	event status.Event
}

type streamClosedMsg struct{}

type clockTickMsg time.Time

// groupSection is one group's ordered task ids, in plan order.
type groupSection struct {
	name    string
	taskIDs []string
}

// Model is the live run view state.
type Model struct {
	store  *status.Store
	cancel context.CancelFunc

	runID     string
	groups    []groupSection
	order     []string
	tasks     map[string]models.Task
	startedAt time.Time

	events      <-chan status.Event
	unsubscribe func()

	spinner         spinner.Model
	width           int
	height          int
	cancelRequested bool
	finished        bool
	result          *models.RunResult
}

// NewModel builds the view for a plan and subscribes to the store. Subscribe
// happens here, before the engine starts, so no transition is missed.
func NewModel(store *status.Store, plan *models.ExecutionPlan, cancel context.CancelFunc) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = styleRunning

	tasks := make(map[string]models.Task)
	var order []string
	var groups []groupSection
	for _, groupPlan := range plan.Groups {
		section := groupSection{name: groupPlan.Group.Name}
		for _, batch := range groupPlan.Batches {
			for _, task := range batch.Tasks {
				tasks[task.ID] = *task.Clone()
				section.taskIDs = append(section.taskIDs, task.ID)
				order = append(order, task.ID)
			}
		}
		groups = append(groups, section)
	}

	events, unsubscribe := store.Subscribe()

	return Model{
		store:       store,
		cancel:      cancel,
		runID:       plan.RunID,
		groups:      groups,
		order:       order,
		tasks:       tasks,
		startedAt:   time.Now(),
		events:      events,
		unsubscribe: unsubscribe,
		spinner:     sp,
	}
}

// Init starts the spinner, the elapsed clock, and the event pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tickClock(), m.waitForEvent())
}

// Update folds one message into the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.cancelRequested {
				// Second press abandons the screen without waiting.
				m.detach()
				return m, tea.Quit
			}
			m.cancelRequested = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, nil

	case eventMsg:
		if task, ok := m.store.Get(msg.event.TaskID); ok {
			m.tasks[task.ID] = task
		}
		return m, m.waitForEvent()

	case streamClosedMsg:
		return m, nil

	case RunFinishedMsg:
		m.finished = true
		m.result = msg.Result
		if msg.Result != nil {
			// Final states straight from the result, in case the event
			// stream dropped transitions under load.
			for _, task := range msg.Result.Tasks {
				m.tasks[task.ID] = task
			}
		}
		m.detach()
		return m, tea.Quit

	case clockTickMsg:
		if m.finished {
			return m, nil
		}
		return m, m.tickClock()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// waitForEvent blocks on the subscription channel and surfaces the next
// transition as a message.
func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg{event: event}
	}
}

// tickClock refreshes the elapsed display.
func (m Model) tickClock() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockTickMsg(t)
	})
}

// detach drops the store subscription.
func (m *Model) detach() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// orderedTasks returns the current task states in plan order.
func (m Model) orderedTasks() []models.Task {
	out := make([]models.Task, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.tasks[id])
	}
	return out
}

// counts tallies current statuses across all tasks.
func (m Model) counts() map[models.CommandStatus]int {
	counts := make(map[models.CommandStatus]int)
	for _, id := range m.order {
		counts[m.tasks[id].Status]++
	}
	return counts
}
