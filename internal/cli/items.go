package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/todosync/internal/todo"
)

// itemList prints one item per line in text mode and as a JSON array otherwise.
type itemList []todo.Item

func (l itemList) String() string {
	if len(l) == 0 {
		return "No items."
	}
	var b strings.Builder
	for i, it := range l {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(itemView{it}.String())
	}
	return b.String()
}

// itemView prints one item in text mode; JSON uses the item's own encoding.
type itemView struct {
	todo.Item
}

func (v itemView) String() string {
	mark := " "
	if v.Completed {
		mark = "x"
	}
	return fmt.Sprintf("[%s] %s  %s", mark, v.ID, v.Title)
}

// deleted is the payload of rm.
type deleted struct {
	ID string `json:"id"`
}

func (d deleted) String() string {
	return "Deleted " + d.ID
}

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Search string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items",
		Long: `List every item in insertion order, or only the items whose title
contains --search, ignoring case.

Example:
  todosync list
  todosync list --search milk --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "only items whose title contains this text")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	c, err := opts.client(cfg)
	if err != nil {
		return err
	}
	out := opts.formatter(cmd)

	ctx := commandContext(cmd)
	var items []todo.Item
	if text := strings.TrimSpace(opts.Search); text != "" {
		out.VerboseLog("searching %s for %q", cfg.Client.Server, text)
		items, err = c.Search(ctx, text)
	} else {
		out.VerboseLog("listing %s", cfg.Client.Server)
		items, err = c.List(ctx)
	}
	if err != nil {
		return out.Fail("list failed", err)
	}
	return out.Success(itemList(items))
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add an item",
		Long: `Add an item. The words of the title are joined with single spaces.
Every connected client is notified.

Example:
  todosync add Buy milk`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdd(rootOpts, strings.Join(args, " "), cmd)
		},
	}
	return cmd
}

func runAdd(opts *RootOptions, title string, cmd *cobra.Command) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	c, err := opts.client(cfg)
	if err != nil {
		return err
	}
	out := opts.formatter(cmd)

	item, err := c.Create(commandContext(cmd), title)
	if err != nil {
		return out.Fail("add failed", err)
	}
	return out.Success(itemView{item})
}

// UpdateOptions holds flags for the update command.
type UpdateOptions struct {
	*RootOptions
	Completed bool
}

// NewUpdateCommand creates the update command.
func NewUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpdateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an item",
		Long: `Update the mutable fields of an item. Fields whose flag is not given
are left as they are.

Example:
  todosync update 0194d3c5-... --completed
  todosync update 0194d3c5-... --completed=false`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var completed *bool
			if cmd.Flags().Changed("completed") {
				completed = &opts.Completed
			}
			return runUpdate(opts.RootOptions, args[0], completed, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Completed, "completed", false, "mark the item completed or not")

	return cmd
}

func runUpdate(opts *RootOptions, id string, completed *bool, cmd *cobra.Command) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	c, err := opts.client(cfg)
	if err != nil {
		return err
	}
	out := opts.formatter(cmd)

	item, err := c.Update(commandContext(cmd), id, completed)
	if err != nil {
		return out.Fail("update failed", err)
	}
	return out.Success(itemView{item})
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an item",
		Long: `Delete an item by id.

Example:
  todosync rm 0194d3c5-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRemove(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runRemove(opts *RootOptions, id string, cmd *cobra.Command) error {
	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	c, err := opts.client(cfg)
	if err != nil {
		return err
	}
	out := opts.formatter(cmd)

	removed, err := c.Delete(commandContext(cmd), id)
	if err != nil {
		return out.Fail("rm failed", err)
	}
	return out.Success(deleted{ID: removed})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
