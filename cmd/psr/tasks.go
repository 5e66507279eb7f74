package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/zulandar/parsinator/internal/models"
)

// loadCollection reads a tasks.json into a collection.
func loadCollection(path string) (*models.TaskCollection, error) {
	files, err := workingFiles()
	if err != nil {
		return nil, err
	}
	doc, err := files.ReadTasks(path)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("no tasks in %s", path)
	}
	c, _, err := models.FromTasksJSON(doc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return c, nil
}

func newOrderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "order <tasks.json>",
		Short: "Print tasks in dependency order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrder(cmd, args[0])
		},
	}
}

func runOrder(cmd *cobra.Command, path string) error {
	c, err := loadCollection(path)
	if err != nil {
		return err
	}
	printWarnings(cmd.ErrOrStderr(), c.ValidateDependencies())

	order, err := c.TopologicalOrder()
	if err != nil {
		printWarnings(cmd.ErrOrStderr(), []string{fmt.Sprintf("cannot order tasks: %v", err)})
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tID\tPRIORITY\tSTATUS\tDEPENDS ON\tTITLE")
	for i, id := range order {
		t, _ := c.Get(id)
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n", i+1, t.ID, formatPriority(t.Priority), t.Status, formatDeps(t.Dependencies), t.Title)
	}
	return w.Flush()
}

func newUnlockedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlocked <tasks.json>",
		Short: "List to-do tasks whose dependencies are all done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnlocked(cmd, args[0])
		},
	}
}

func runUnlocked(cmd *cobra.Command, path string) error {
	c, err := loadCollection(path)
	if err != nil {
		return err
	}
	unlocked := c.UnlockedTasks()
	out := cmd.OutOrStdout()
	if len(unlocked) == 0 {
		fmt.Fprintln(out, "No unlocked tasks.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRIORITY\tTITLE")
	for _, t := range unlocked {
		fmt.Fprintf(w, "%d\t%s\t%s\n", t.ID, formatPriority(t.Priority), t.Title)
	}
	return w.Flush()
}

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query <tasks.json> <path>",
		Short: "Query a tasks file with a GJSON path",
		Long: `Evaluates a GJSON path against a tasks file, for example:

  psr query tasks.json 'master.tasks.#(priority=="high")#.title'
  psr query tasks.json master.metadata.updated`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args[0], args[1])
		},
	}
}

func runQuery(cmd *cobra.Command, file, path string) error {
	files, err := workingFiles()
	if err != nil {
		return err
	}
	data, err := files.ReadJSON(file)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid JSON in %s", file)
	}
	res := gjson.GetBytes(data, path)
	if !res.Exists() {
		printWarnings(cmd.ErrOrStderr(), []string{fmt.Sprintf("no value at %s", path)})
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.String())
	return nil
}
