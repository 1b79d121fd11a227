package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/shelfgrab/shelfgrab/internal/model"
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Inspect and manage scraped groups",
	Long:  "Commands for listing, viewing, and deleting book groups.",
}

// -- groups list --

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")

		groups, err := st.ListGroups(ctx, page, limit)
		if err != nil {
			return eris.Wrap(err, "groups list")
		}

		if len(groups) == 0 {
			fmt.Fprintln(os.Stderr, "No groups found.")
			return nil
		}

		formatGroupsList(os.Stdout, groups)
		return nil
	},
}

// -- groups show --

var groupsShowCmd = &cobra.Command{
	Use:   "show <group-id>",
	Short: "Show a group and its books as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		group, err := st.GetGroup(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "groups show")
		}
		if group == nil {
			return eris.Errorf("group %s not found", args[0])
		}

		limit, _ := cmd.Flags().GetInt("limit")
		books, err := st.ListBooksByGroup(ctx, group.ID, 1, limit)
		if err != nil {
			return eris.Wrap(err, "groups show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"group": group, "books": books})
	},
}

// -- groups delete --

var groupsDeleteCmd = &cobra.Command{
	Use:   "delete <group-id>",
	Short: "Delete an empty group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		deleted, err := st.DeleteGroup(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "groups delete")
		}
		if !deleted {
			return eris.Errorf("group %s was not deleted (missing, or still has books)", args[0])
		}

		fmt.Fprintf(os.Stdout, "Deleted group %s\n", args[0])
		return nil
	},
}

func init() {
	groupsListCmd.Flags().Int("page", 1, "page number")
	groupsListCmd.Flags().Int("limit", 10, "groups per page")

	groupsShowCmd.Flags().Int("limit", 100, "max books to include")

	groupsCmd.AddCommand(groupsListCmd)
	groupsCmd.AddCommand(groupsShowCmd)
	groupsCmd.AddCommand(groupsDeleteCmd)
	rootCmd.AddCommand(groupsCmd)
}

// formatGroupsList writes a tabular list of groups to w.
func formatGroupsList(out io.Writer, groups []model.Group) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tBOOKS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t-------")

	for _, g := range groups {
		name := g.Name
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			truncateID(g.ID),
			name,
			g.BookCount,
			g.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
