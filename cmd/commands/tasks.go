package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/dohr-michael/tasktrack/clients/api"
	"github.com/dohr-michael/tasktrack/clients/state"
	"github.com/dohr-michael/tasktrack/internal/tasks"
)

// NewTasksCommand returns the tasks subcommand.
func NewTasksCommand() *cli.Command {
	return &cli.Command{
		Name:  "tasks",
		Usage: "Manage tasks on a running server",
		Flags: []cli.Flag{urlFlag()},
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List tasks",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "filter",
						Usage: "all, completed or pending",
						Value: string(state.FilterAll),
					},
					&cli.StringFlag{
						Name:  "match",
						Usage: `Only titles matching a glob, e.g. "buy *"`,
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "table, json or yaml",
						Value:   "table",
					},
				},
				Action: runTasksList,
			},
			{
				Name:      "show",
				Usage:     "Show one task",
				ArgsUsage: "<task_id>",
				Action:    runTasksShow,
			},
			{
				Name:      "add",
				Usage:     "Create a task",
				ArgsUsage: "<title>",
				Action:    runTasksAdd,
			},
			{
				Name:      "done",
				Usage:     "Mark a task completed",
				ArgsUsage: "<task_id>",
				Action:    runTasksSetCompleted(true),
			},
			{
				Name:      "undone",
				Usage:     "Mark a task pending",
				ArgsUsage: "<task_id>",
				Action:    runTasksSetCompleted(false),
			},
			{
				Name:      "rename",
				Usage:     "Change a task title",
				ArgsUsage: "<task_id> <title>",
				Action:    runTasksRename,
			},
			{
				Name:      "rm",
				Usage:     "Delete a task",
				ArgsUsage: "<task_id>",
				Action:    runTasksRemove,
			},
		},
		DefaultCommand: "list",
	}
}

func newTaskClient(cmd *cli.Command) (*api.Client, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	setupLogging(cmd, cfg, os.Stderr)
	return api.NewClient(serverURL(cmd, cfg), api.WithTimeout(cfg.Client.Timeout.Duration())), nil
}

func newTaskState(cmd *cli.Command) (*state.Store, error) {
	client, err := newTaskClient(cmd)
	if err != nil {
		return nil, err
	}
	return state.New(client), nil
}

// storeErr surfaces the store's error message, which already names the operation.
func storeErr(store *state.Store, err error) error {
	if msg := store.Error(); msg != "" {
		return errors.New(msg)
	}
	return err
}

func parseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

func runTasksList(ctx context.Context, cmd *cli.Command) error {
	filter, err := state.ParseFilter(cmd.String("filter"))
	if err != nil {
		return err
	}
	pattern := cmd.String("match")
	if pattern != "" && !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid --match pattern %q", pattern)
	}

	store, err := newTaskState(cmd)
	if err != nil {
		return err
	}
	if err := store.LoadTasks(ctx); err != nil {
		return storeErr(store, err)
	}
	if err := store.SetFilter(filter); err != nil {
		return err
	}

	list := matchTitles(store.FilteredTasks(), pattern)
	return writeTasks(os.Stdout, list, cmd.String("output"), isTerminal(os.Stdout))
}

// matchTitles keeps the tasks whose title matches the glob pattern.
func matchTitles(list []tasks.Task, pattern string) []tasks.Task {
	if pattern == "" {
		return list
	}
	out := make([]tasks.Task, 0, len(list))
	for _, t := range list {
		if ok, _ := doublestar.Match(pattern, t.Title); ok {
			out = append(out, t)
		}
	}
	return out
}

type taskRow struct {
	ID        int64  `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Completed bool   `json:"completed" yaml:"completed"`
}

func toRows(list []tasks.Task) []taskRow {
	rows := make([]taskRow, len(list))
	for i, t := range list {
		rows[i] = taskRow{ID: t.ID, Title: t.Title, Completed: t.Completed}
	}
	return rows
}

var (
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// writeTasks renders list in the requested format. styled enables colors in the table.
func writeTasks(w io.Writer, list []tasks.Task, format string, styled bool) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toRows(list))
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(toRows(list)); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
	default:
		return fmt.Errorf("unknown output format %q", format)
	}

	if len(list) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTITLE")
	for _, t := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", t.ID, statusLabel(t, styled), t.Title)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	remaining := state.Snapshot{Tasks: list}.Remaining()
	fmt.Fprintf(w, "\n%d of %d pending\n", remaining, len(list))
	return nil
}

func statusLabel(t tasks.Task, styled bool) string {
	label, style := "pending", pendingStyle
	if t.Completed {
		label, style = "done", doneStyle
	}
	if !styled {
		return label
	}
	return style.Render(label)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func runTasksShow(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: tasktrack tasks show <task_id>")
	}
	id, err := parseTaskID(cmd.Args().First())
	if err != nil {
		return err
	}

	client, err := newTaskClient(cmd)
	if err != nil {
		return err
	}
	t, err := client.GetTask(ctx, id)
	if err != nil {
		return fmt.Errorf("get task: %w", err)
	}

	status := "pending"
	if t.Completed {
		status = "done"
	}
	fmt.Printf("ID:          %d\n", t.ID)
	fmt.Printf("Title:       %s\n", t.Title)
	fmt.Printf("Status:      %s\n", status)
	return nil
}

// runTasksAdd sends whatever title it is given; the server rejects blank ones.
func runTasksAdd(ctx context.Context, cmd *cli.Command) error {
	store, err := newTaskState(cmd)
	if err != nil {
		return err
	}

	t, err := store.AddTask(ctx, tasks.Task{Title: strings.Join(cmd.Args().Slice(), " ")})
	if err != nil {
		return storeErr(store, err)
	}
	fmt.Printf("Created task %d: %s\n", t.ID, t.Title)
	return nil
}

func runTasksSetCompleted(completed bool) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if cmd.Args().Len() != 1 {
			return fmt.Errorf("usage: tasktrack tasks %s <task_id>", cmd.Name)
		}
		return updateTask(ctx, cmd, cmd.Args().First(), tasks.SetCompleted(completed))
	}
}

func runTasksRename(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 2 {
		return fmt.Errorf("usage: tasktrack tasks rename <task_id> <title>")
	}
	title := strings.Join(cmd.Args().Slice()[1:], " ")
	return updateTask(ctx, cmd, cmd.Args().First(), tasks.SetTitle(title))
}

func updateTask(ctx context.Context, cmd *cli.Command, rawID string, p tasks.Patch) error {
	id, err := parseTaskID(rawID)
	if err != nil {
		return err
	}
	store, err := newTaskState(cmd)
	if err != nil {
		return err
	}

	t, err := store.UpdateTask(ctx, id, p)
	if err != nil {
		return storeErr(store, err)
	}
	fmt.Printf("Updated task %d: %s\n", t.ID, statusLabel(t, false))
	return nil
}

func runTasksRemove(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: tasktrack tasks rm <task_id>")
	}
	id, err := parseTaskID(cmd.Args().First())
	if err != nil {
		return err
	}
	store, err := newTaskState(cmd)
	if err != nil {
		return err
	}

	if err := store.DeleteTask(ctx, id); err != nil {
		return storeErr(store, err)
	}
	fmt.Printf("Deleted task %d\n", id)
	return nil
}
