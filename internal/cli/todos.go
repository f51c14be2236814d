package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/ui"
	"github.com/idilsaglam/tada/internal/view"
)

func (a *app) lsCmd() *cobra.Command {
	var (
		plain  bool
		group  bool
		filter string
	)
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List todos (interactive unless --plain)",
		Args:  exactArgs(0, "ls [--plain] [--group] [--filter all|active|completed]"),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := model.ParseFilter(filter)
			if err != nil {
				return &usageError{msg: err.Error()}
			}
			if !plain {
				if group || f != model.FilterAll {
					return usageErrorf("--group and --filter need --plain")
				}
				s, err := a.openStore()
				if err != nil {
					return err
				}
				defer s.Close()
				return runTUI(cmd.Context(), s, a.log)
			}

			s, err := a.loadedStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()
			ui.Panel(a.streams.Out, listing(s.Snapshot().Todos, f, group))
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print the list instead of opening the interactive view")
	cmd.Flags().BoolVar(&group, "group", false, "group output by pending/done")
	cmd.Flags().StringVar(&filter, "filter", "all", "show all, active or completed todos")
	return cmd
}

func (a *app) addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a todo (title can be multiple words)",
		Args:  minArgs(1, "add <title...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.Join(args, " ")
			if strings.TrimSpace(title) == "" {
				return usageErrorf("add: %s", model.ErrEmptyTitle.Message())
			}
			s, err := a.openStore()
			if err != nil {
				return err
			}
			defer s.Close()

			todo, err := s.Add(cmd.Context(), title)
			if err != nil {
				return describe(err)
			}
			ui.OK(a.streams.Out, fmt.Sprintf("added #%d %s", todo.ID, todo.Title))
			return nil
		},
	}
}

func (a *app) doneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <index>",
		Short: "Toggle completion of the todo at a 1-based index",
		Args:  exactArgs(1, "done <index>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadedStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			todo, err := todoAt(s.Snapshot().Todos, args[0])
			if err != nil {
				return err
			}
			if err := s.ToggleStatus(cmd.Context(), todo); err != nil {
				return describe(err)
			}
			if todo.Completed {
				ui.OK(a.streams.Out, "reopened "+todo.Title)
			} else {
				ui.OK(a.streams.Out, "completed "+todo.Title)
			}
			return nil
		},
	}
}

func (a *app) renameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <index> <title...>",
		Short: "Rename the todo at a 1-based index (a blank title deletes it)",
		Args:  minArgs(2, "rename <index> <title...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadedStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			todo, err := todoAt(s.Snapshot().Todos, args[0])
			if err != nil {
				return err
			}
			title := strings.Join(args[1:], " ")
			if err := s.RenameOrDelete(cmd.Context(), todo, title); err != nil {
				return describe(err)
			}
			switch strings.TrimSpace(title) {
			case "":
				ui.OK(a.streams.Out, "removed "+todo.Title)
			case todo.Title:
				ui.OK(a.streams.Out, "unchanged")
			default:
				ui.OK(a.streams.Out, "renamed")
			}
			return nil
		},
	}
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <index>",
		Short: "Remove the todo at a 1-based index",
		Args:  exactArgs(1, "rm <index>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadedStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			todo, err := todoAt(s.Snapshot().Todos, args[0])
			if err != nil {
				return err
			}
			if err := s.Delete(cmd.Context(), todo.ID); err != nil {
				return describe(err)
			}
			ui.OK(a.streams.Out, "removed "+todo.Title)
			return nil
		},
	}
}

func (a *app) toggleAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle-all",
		Short: "Complete every todo, or reopen all when all are completed",
		Args:  exactArgs(0, "toggle-all"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadedStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			todos := s.Snapshot().Todos
			if len(todos) == 0 {
				ui.OK(a.streams.Out, "nothing to toggle")
				return nil
			}
			reopen := view.AllCompleted(todos)
			if err := s.ToggleAll(cmd.Context()); err != nil {
				return describe(err)
			}
			if reopen {
				ui.OK(a.streams.Out, "all reopened")
			} else {
				ui.OK(a.streams.Out, "all completed")
			}
			return nil
		},
	}
}

func (a *app) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every completed todo",
		Args:  exactArgs(0, "clear"),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.loadedStore(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			before := len(view.Completed(s.Snapshot().Todos))
			err = s.ClearCompleted(cmd.Context())
			after := len(view.Completed(s.Snapshot().Todos))
			if err != nil {
				return fmt.Errorf("cleared %d of %d: %w", before-after, before, describe(err))
			}
			ui.OK(a.streams.Out, fmt.Sprintf("cleared %d", before))
			return nil
		},
	}
}

// listing renders the plain list. Indexes always refer to the full
// collection so they can be passed to done, rename and rm.
func listing(todos []model.Todo, f model.Filter, group bool) []string {
	t := ui.Current()
	active, completed := view.Counts(todos)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		t.Title.Render("Todos"),
		t.Success.Render(t.SymDone), completed,
		t.Pending.Render(t.SymPending), active,
		t.Accent.Render("Total"), len(todos),
	)

	lines := []string{header, t.Muted.Render(ui.ProgressBar(completed, len(todos), 28)), ""}
	if group {
		lines = append(lines, t.Accent.Render("Pending"))
		lines = append(lines, rowLines(todos, model.FilterActive)...)
		lines = append(lines, "", t.Accent.Render("Done"))
		lines = append(lines, rowLines(todos, model.FilterCompleted)...)
	} else {
		lines = append(lines, rowLines(todos, f)...)
	}
	lines = append(lines, "", fmt.Sprintf("%d items left", active))
	lines = append(lines, t.Muted.Render("Tip: add with `todo add \"Buy milk\"`"))
	return lines
}

func rowLines(todos []model.Todo, f model.Filter) []string {
	t := ui.Current()
	var out []string
	for i, td := range todos {
		if !f.Matches(td) {
			continue
		}
		title := ansi.Truncate(td.Title, 80, "...")
		box := t.Muted.Render(t.BoxUnchecked)
		if td.Completed {
			box, title = t.Success.Render(t.BoxChecked), t.Done.Render(title)
		}
		out = append(out, fmt.Sprintf("%s %s %s", t.Muted.Render(fmt.Sprintf("%2d.", i+1)), box, title))
	}
	if len(out) == 0 {
		return []string{t.Muted.Render("(none)")}
	}
	return out
}
