package cli

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/nhle/nailedit/internal/model"
	"github.com/nhle/nailedit/internal/projection"
)

func newListCmd(a *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list [tasks|goals]",
		Short: "Print items grouped by category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds := []model.Kind{model.KindTask, model.KindGoal}
			if len(args) == 1 {
				k, err := model.ParseKind(args[0])
				if err != nil {
					return writeErr(cmd, err)
				}
				kinds = []model.Kind{k}
			}

			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			out := cmd.OutOrStdout()
			all := make(map[string][]model.Item, len(kinds))
			for _, k := range kinds {
				rec := rt.reconciler(k)
				if err := rec.Load(cmd.Context()); err != nil {
					return writeErr(cmd, err)
				}
				if asJSON {
					all[k.Plural()] = rec.Items()
					continue
				}
				printColumns(out, k, rec.Items())
			}
			if asJSON {
				b, err := sonic.ConfigStd.MarshalIndent(all, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(b))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")

	return cmd
}

func printColumns(w io.Writer, kind model.Kind, items []model.Item) {
	for _, col := range projection.Columns(items, kind) {
		fmt.Fprintf(w, "%s (%d)\n", col.Category, len(col.Items))
		for _, it := range col.Items {
			fmt.Fprintf(w, "  - %s [%s]\n", it.Title, it.ID)
		}
	}
	if kind == model.KindTask {
		fmt.Fprintf(w, "%d%% done\n", projection.Share(items, model.CategoryDone))
	}
}

func newAddCmd(a *App) *cobra.Command {
	var category, description string

	cmd := &cobra.Command{
		Use:   "add <task|goal> <title>",
		Short: "Create an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			c := model.DefaultCategory(kind)
			if category != "" {
				if c, err = model.ParseCategory(kind, category); err != nil {
					return writeErr(cmd, err)
				}
			}

			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			item, err := rt.reconciler(kind).Create(cmd.Context(), model.Draft{
				Title:       args[1],
				Description: description,
				Category:    c,
			})
			if err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s in %s\n", kind, item.ID, item.Category)
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Category (defaults to the first column)")
	cmd.Flags().StringVar(&description, "description", "", "Description (tasks only)")

	return cmd
}

func newEditCmd(a *App) *cobra.Command {
	var title, category, description string

	cmd := &cobra.Command{
		Use:   "edit <task|goal> <id>",
		Short: "Change an item's title, category or description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}

			var p model.Patch
			if cmd.Flags().Changed("title") {
				p.Title = &title
			}
			if cmd.Flags().Changed("description") {
				p.Description = &description
			}
			if category != "" {
				c, err := model.ParseCategory(kind, category)
				if err != nil {
					return writeErr(cmd, err)
				}
				p.Category = &c
			}

			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			rec := rt.reconciler(kind)
			if err := rec.Load(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			item, err := rec.Update(cmd.Context(), args[1], p)
			if err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s: %s (%s)\n", kind, item.ID, item.Title, item.Category)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&category, "category", "", "New category")
	cmd.Flags().StringVar(&description, "description", "", "New description (tasks only)")

	return cmd
}

func newRemoveCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task|goal> <id>",
		Aliases: []string{"remove", "delete"},
		Short:   "Delete an item",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}

			rt, err := a.open()
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.reconciler(kind).Remove(cmd.Context(), args[1]); err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", kind, args[1])
			return nil
		},
	}
}
