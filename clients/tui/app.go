package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dohr-michael/tasktrack/clients/state"
	"github.com/dohr-michael/tasktrack/clients/tui/molecules"
	wsclient "github.com/dohr-michael/tasktrack/clients/ws"
	"github.com/dohr-michael/tasktrack/internal/tasks"
)

// FeedStatus is the connection state of the task feed.
type FeedStatus int

const (
	FeedOff FeedStatus = iota
	FeedConnecting
	FeedConnected
	FeedDisconnected
)

func (s FeedStatus) String() string {
	switch s {
	case FeedConnecting:
		return "connecting"
	case FeedConnected:
		return "live"
	case FeedDisconnected:
		return "offline"
	default:
		return "off"
	}
}

// feedRetryDelay is the pause before reconnecting a lost feed.
const feedRetryDelay = 2 * time.Second

// Options configures the App.
type Options struct {
	Context context.Context
	Server  string // shown in the header
	FeedURL string // empty disables the feed
}

// App is the task view model.
type App struct {
	ctx   context.Context
	store *state.Store
	snap  state.Snapshot

	server  string
	feedURL string
	feed    *wsclient.Client
	status  FeedStatus

	cursor   int
	adding   bool
	newTask  molecules.TitleInput
	editor   Editor
	width    int
	height   int
	quitting bool
}

// NewApp creates the view over store.
func NewApp(store *state.Store, opts Options) *App {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	a := &App{
		ctx:     ctx,
		store:   store,
		snap:    store.Snapshot(),
		server:  opts.Server,
		feedURL: opts.FeedURL,
		newTask: molecules.NewTitleInput("What needs to be done?"),
		editor:  NewEditor(),
	}
	if a.feedURL != "" {
		a.status = FeedConnecting
	}
	return a
}

// Bridge forwards store snapshots to the running program and returns the
// unsubscribe function. Send runs in its own goroutine so that store calls
// made from Update never block on the program loop.
func Bridge(p *tea.Program, store *state.Store) func() {
	return store.Subscribe(func(snap state.Snapshot) {
		go p.Send(SnapshotMsg{Snapshot: snap})
	})
}

// Init loads the tasks and attaches the feed when enabled.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.loadTasks()}
	if a.feedURL != "" {
		cmds = append(cmds, a.connectFeed())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.newTask.SetWidth(msg.Width - 4)
		return a, nil

	case tea.KeyMsg:
		// Drop unparsed SGR mouse escape sequence fragments.
		if msg.Type == tea.KeyRunes && isMouseEscapeFragment(string(msg.Runes)) {
			return a, nil
		}
		if msg.String() == "ctrl+c" {
			return a.quit()
		}
		switch {
		case a.editor.State() == EditEditing:
			return a.handleEditKey(msg)
		case a.adding:
			return a.handleAddKey(msg)
		default:
			return a.handleKey(msg)
		}

	case SnapshotMsg:
		a.setSnapshot(msg.Snapshot)
		return a, nil

	case opDoneMsg:
		if msg.err != nil {
			slog.Debug("tui operation failed", "op", msg.op, "error", msg.err)
		}
		a.setSnapshot(a.store.Snapshot())
		return a, nil

	case FeedConnectedMsg:
		a.feed = msg.Client
		a.status = FeedConnected
		// Resync: events may have been missed while disconnected.
		return a, tea.Batch(a.loadTasks(), listenFeed(msg.Client))

	case TaskEventMsg:
		a.store.ApplyEvent(msg.Event)
		a.setSnapshot(a.store.Snapshot())
		return a, listenFeed(a.feed)

	case feedIdleMsg:
		return a, listenFeed(a.feed)

	case FeedDisconnectedMsg:
		if a.quitting {
			return a, nil
		}
		slog.Debug("task feed disconnected", "error", msg.Err)
		if a.feed != nil {
			a.feed.Close()
			a.feed = nil
		}
		a.status = FeedDisconnected
		return a, tea.Tick(feedRetryDelay, func(time.Time) tea.Msg { return feedRetryMsg{} })

	case feedRetryMsg:
		a.status = FeedConnecting
		return a, a.connectFeed()
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a.quit()
	case "a":
		a.adding = true
		return a, a.newTask.Focus()
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.snap.Filtered)-1 {
			a.cursor++
		}
	case " ", "x":
		if t, ok := a.selected(); ok {
			return a, a.run("toggle", func(ctx context.Context) error {
				_, err := a.store.UpdateTask(ctx, t.ID, tasks.SetCompleted(!t.Completed))
				return err
			})
		}
	case "e":
		if t, ok := a.selected(); ok {
			return a, a.editor.Begin(t)
		}
	case "d":
		if t, ok := a.selected(); ok {
			return a, a.run("delete", func(ctx context.Context) error {
				return a.store.DeleteTask(ctx, t.ID)
			})
		}
	case "tab":
		a.setFilter(a.snap.Filter.Next())
	case "1":
		a.setFilter(state.FilterAll)
	case "2":
		a.setFilter(state.FilterCompleted)
	case "3":
		a.setFilter(state.FilterPending)
	case "r":
		return a, a.loadTasks()
	}
	return a, nil
}

func (a *App) handleAddKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var action molecules.Action
	var cmd tea.Cmd
	a.newTask, action, cmd = a.newTask.Update(msg)

	switch action {
	case molecules.ActionSubmit:
		title := a.newTask.Value()
		a.newTask.Reset()
		return a, a.run("add", func(ctx context.Context) error {
			_, err := a.store.AddTask(ctx, tasks.Task{Title: title, Completed: false})
			return err
		})
	case molecules.ActionCancel:
		a.adding = false
		a.newTask.Blur()
		return a, nil
	}
	return a, cmd
}

func (a *App) handleEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	save, cmd := a.editor.Update(msg)
	if save == nil {
		return a, cmd
	}
	return a, a.run("rename", func(ctx context.Context) error {
		_, err := a.store.UpdateTask(ctx, save.ID, tasks.SetTitle(save.Title))
		return err
	})
}

func (a *App) quit() (tea.Model, tea.Cmd) {
	a.quitting = true
	if a.feed != nil {
		a.feed.Close()
	}
	return a, tea.Quit
}

func (a *App) setFilter(f state.Filter) {
	if err := a.store.SetFilter(f); err != nil {
		return
	}
	a.setSnapshot(a.store.Snapshot())
}

// setSnapshot adopts snap unless a newer one is already shown.
func (a *App) setSnapshot(snap state.Snapshot) {
	if snap.Version < a.snap.Version {
		return
	}
	a.snap = snap

	if a.cursor >= len(snap.Filtered) {
		a.cursor = len(snap.Filtered) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}

	if id := a.editor.ID(); id != 0 && !containsTask(snap.Tasks, id) {
		a.editor.Cancel()
	}
}

func (a *App) selected() (tasks.Task, bool) {
	if a.cursor < 0 || a.cursor >= len(a.snap.Filtered) {
		return tasks.Task{}, false
	}
	return a.snap.Filtered[a.cursor], true
}

// run executes a store operation off the update loop.
func (a *App) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func (a *App) loadTasks() tea.Cmd {
	return a.run("load", a.store.LoadTasks)
}

func (a *App) connectFeed() tea.Cmd {
	ctx := a.ctx
	url := a.feedURL
	return func() tea.Msg {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		client, err := wsclient.Dial(dialCtx, url)
		if err != nil {
			return FeedDisconnectedMsg{Err: err}
		}
		return FeedConnectedMsg{Client: client}
	}
}

func listenFeed(client *wsclient.Client) tea.Cmd {
	if client == nil {
		return nil
	}
	return func() tea.Msg {
		frame, err := client.ReadFrame()
		if err != nil {
			return FeedDisconnectedMsg{Err: err}
		}
		if msg := Project(frame); msg != nil {
			return msg
		}
		return feedIdleMsg{}
	}
}

// View renders header, filters, input, task list and status bar.
func (a *App) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}

	var b strings.Builder

	header := TitleStyle.Render("tasktrack")
	if a.server != "" {
		header += "  " + MutedStyle.Render(a.server)
	}
	b.WriteString(header + "\n")
	b.WriteString(a.viewFilters() + "\n\n")

	if a.adding {
		b.WriteString(InputBorderStyle.Render(a.newTask.View()) + "\n")
	}

	b.WriteString(a.viewTasks())
	b.WriteString("\n")
	b.WriteString(a.viewStatus() + "\n")
	if a.snap.Error != "" {
		b.WriteString(ErrorStyle.Render(a.snap.Error) + "\n")
	}
	b.WriteString(MutedStyle.Render(a.help()))
	return b.String()
}

func (a *App) viewFilters() string {
	parts := make([]string, len(state.Filters))
	for i, f := range state.Filters {
		label := fmt.Sprintf("%d %s", i+1, f)
		if f == a.snap.Filter {
			parts[i] = ActiveFilterStyle.Render(label)
		} else {
			parts[i] = MutedStyle.Render(label)
		}
	}
	return strings.Join(parts, "  ")
}

func (a *App) viewTasks() string {
	if len(a.snap.Filtered) == 0 {
		if len(a.snap.Tasks) == 0 {
			return MutedStyle.Render("  No tasks yet.") + "\n"
		}
		return MutedStyle.Render(fmt.Sprintf("  No %s tasks.", a.snap.Filter)) + "\n"
	}

	var b strings.Builder
	for i, t := range a.snap.Filtered {
		pointer := "  "
		if i == a.cursor {
			pointer = CursorStyle.Render("> ")
		}
		check := "[ ]"
		if t.Completed {
			check = "[x]"
		}

		var title string
		switch {
		case a.editor.Editing(t.ID):
			title = EditingStyle.Render(a.editor.View())
		case t.Completed:
			title = DoneStyle.Render(t.Title)
		default:
			title = t.Title
		}
		fmt.Fprintf(&b, "%s%s %s\n", pointer, check, title)
	}
	return b.String()
}

func (a *App) viewStatus() string {
	remaining := a.snap.Remaining()
	noun := "items"
	if remaining == 1 {
		noun = "item"
	}
	status := fmt.Sprintf("%d %s left · filter: %s · feed: %s", remaining, noun, a.snap.Filter, a.status)
	style := StatusBarStyle
	if a.width > 0 {
		style = style.Width(a.width)
	}
	return style.Render(status)
}

func (a *App) help() string {
	switch {
	case a.editor.State() == EditEditing:
		return "enter save · esc cancel"
	case a.adding:
		return "enter add · esc done"
	default:
		return "a add · space toggle · e edit · d delete · tab filter · r reload · q quit"
	}
}

func containsTask(list []tasks.Task, id int64) bool {
	for _, t := range list {
		if t.ID == id {
			return true
		}
	}
	return false
}

// isMouseEscapeFragment returns true if s looks like one or more unparsed
// SGR mouse escape sequences (e.g. "[<65;1;1M").
func isMouseEscapeFragment(s string) bool {
	if len(s) < 5 || s[0] != '[' || s[1] != '<' {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '[', r == '<', r == ';', r == 'M', r == 'm':
		default:
			return false
		}
	}
	return true
}

var _ tea.Model = (*App)(nil)
