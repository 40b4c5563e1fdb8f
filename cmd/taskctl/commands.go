package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/hiroki-koketsu/go-todo/internal/client"
	"github.com/hiroki-koketsu/go-todo/internal/model"
	"github.com/hiroki-koketsu/go-todo/internal/state"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultAPIBase = "http://localhost:4000/api"

var (
	green = color.New(color.FgGreen).SprintFunc()
	amber = color.New(color.FgYellow).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
)

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("taskctl")
	v.AutomaticEnv()
	v.SetDefault("api-base", defaultAPIBase)

	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Manage tasks on a to-do server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("api-base", defaultAPIBase, "API base URL (env TASKCTL_API_BASE)")
	_ = v.BindPFlag("api-base", root.PersistentFlags().Lookup("api-base"))
	_ = v.BindEnv("api-base", "TASKCTL_API_BASE")

	newClient := func() (*client.Client, error) {
		return client.New(v.GetString("api-base"))
	}
	controller := func() (*state.Controller, error) {
		c, err := newClient()
		if err != nil {
			return nil, err
		}
		return state.NewController(c), nil
	}

	root.AddCommand(
		newListCommand(controller),
		newGetCommand(newClient),
		newAddCommand(controller),
		newEditCommand(controller),
		newRemoveCommand(controller),
		newToggleCommand(controller),
	)
	return root
}

type controllerFunc func() (*state.Controller, error)

func newListCommand(newController controllerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newController()
			if err != nil {
				return err
			}
			if err := c.Refresh(cmd.Context()); err != nil {
				return err
			}
			renderTasks(cmd.OutOrStdout(), c.Tasks())
			return nil
		},
	}
}

func newGetCommand(newClient func() (*client.Client, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			task, err := c.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			renderTasks(cmd.OutOrStdout(), []model.Task{*task})
			return nil
		},
	}
}

func newAddCommand(newController controllerFunc) *cobra.Command {
	var description, status string
	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newController()
			if err != nil {
				return err
			}
			req := model.CreateTaskRequest{Title: args[0], Description: description}
			if cmd.Flags().Changed("status") {
				s := model.Status(status)
				req.Status = &s
			}
			task, err := c.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			renderTasks(cmd.OutOrStdout(), []model.Task{*task})
			return nil
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "task description")
	cmd.Flags().StringVarP(&status, "status", "s", "", "pending or completed")
	return cmd
}

func newEditCommand(newController controllerFunc) *cobra.Command {
	var title, description, status string
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Update fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var req model.UpdateTaskRequest
			if cmd.Flags().Changed("title") {
				req.Title = &title
			}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("status") {
				s := model.Status(status)
				req.Status = &s
			}
			c, err := newController()
			if err != nil {
				return err
			}
			task, err := c.Update(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			renderTasks(cmd.OutOrStdout(), []model.Task{*task})
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVarP(&status, "status", "s", "", "pending or completed")
	return cmd
}

func newRemoveCommand(newController controllerFunc) *cobra.Command {
	return &cobra.Command{
		Use:     "rm ID",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := newController()
			if err != nil {
				return err
			}
			if err := c.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted task %d\n", id)
			return nil
		},
	}
}

func newToggleCommand(newController controllerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID",
		Short: "Flip a task between pending and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			c, err := newController()
			if err != nil {
				return err
			}
			if err := c.Refresh(cmd.Context()); err != nil {
				return err
			}
			task, err := c.ToggleStatus(cmd.Context(), id)
			if err != nil {
				return err
			}
			renderTasks(cmd.OutOrStdout(), []model.Task{*task})
			return nil
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func renderTasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, gray("No tasks yet."))
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Status", "Title", "Description", "Updated"})
	table.SetAutoWrapText(false)
	for _, t := range tasks {
		desc := t.Description
		if desc == "" {
			desc = gray("No description")
		}
		table.Append([]string{
			strconv.FormatInt(t.ID, 10),
			badge(t.Status),
			t.Title,
			desc,
			t.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	table.Render()
}

func badge(s model.Status) string {
	if s == model.StatusCompleted {
		return green("Completed")
	}
	return amber("Pending")
}
