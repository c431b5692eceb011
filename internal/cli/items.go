package cli

import (
	"errors"
	"fmt"
	"strings"

	"item-console/internal/console"
	"item-console/internal/model"

	"github.com/spf13/cobra"
)

var rowHeader = []string{"Item ID", "Name", "Description", "Price", "Tax"}

type rowsOutput struct {
	Data []model.Row `json:"data"`
}

func (o rowsOutput) TableHeader() []string { return rowHeader }

func (o rowsOutput) TableRows() [][]string {
	out := make([][]string, 0, len(o.Data))
	for _, r := range o.Data {
		out = append(out, r.Cells())
	}
	return out
}

type rowOutput struct {
	Data model.Row `json:"data"`
}

func (o rowOutput) TableHeader() []string { return rowHeader }

func (o rowOutput) TableRows() [][]string { return [][]string{o.Data.Cells()} }

func newItemsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "List, show, submit and delete items",
	}

	cmd.AddCommand(newItemsListCmd(app))
	cmd.AddCommand(newItemsShowCmd(app))
	cmd.AddCommand(newItemsSubmitCmd(app))
	cmd.AddCommand(newItemsDeleteCmd(app))
	return cmd
}

func newConsole(cmd *cobra.Command, app *App, assumeYes bool) (*console.Console, *cliView) {
	v := newCLIView(cmd.ErrOrStderr(), cmd.InOrStdin(), assumeYes, app.logger())
	return console.New(app.client(), v, app.logger()), v
}

func newItemsListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List items in server order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, v := newConsole(cmd, app, false)
			rows, err := c.FetchAndRender(cmd.Context())
			if err != nil {
				return v.result(err)
			}
			return writeOut(cmd, app, rowsOutput{Data: rows})
		},
	}
}

func newItemsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <item-id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			c, v := newConsole(cmd, app, false)
			rows, err := c.FetchAndRender(cmd.Context())
			if err != nil {
				return v.result(err)
			}
			for _, r := range rows {
				if r.ItemID == id {
					return writeOut(cmd, app, rowOutput{Data: r})
				}
			}
			return writeErr(cmd, errNotFound("item", id))
		},
	}
}

func newItemsSubmitCmd(app *App) *cobra.Command {
	var form model.FormValues

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Create an item, or replace the first item with the same name",
		Long: strings.TrimSpace(`
Submit works like the console form: the items are fetched and the first item whose
name matches --name exactly (case-sensitive) is replaced. Otherwise a new item is
created. An unparsable --price is sent as null; an unparsable --tax as 0.

Prints the refreshed item list.
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(form.Name) == "" {
				return writeErr(cmd, errors.New("missing --name"))
			}
			c, v := newConsole(cmd, app, false)
			if err := c.SubmitItem(cmd.Context(), form); err != nil {
				return v.result(err)
			}
			return writeRefreshed(cmd, app, v)
		},
	}

	cmd.Flags().StringVar(&form.Name, "name", "", "Item name (matched exactly against existing items)")
	cmd.Flags().StringVar(&form.Description, "description", "", "Item description")
	cmd.Flags().StringVar(&form.Price, "price", "", "Price")
	cmd.Flags().StringVar(&form.Tax, "tax", "", "Tax (defaults to 0)")
	cmd.Flags().StringVar(&form.ItemID, "item-id", "", "Item id being edited (informational; the name decides the target)")
	return cmd
}

func newItemsDeleteCmd(app *App) *cobra.Command {
	var yes bool
	var all bool

	cmd := &cobra.Command{
		Use:   "delete <item-id>...",
		Short: "Delete items (all requests run concurrently)",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, v := newConsole(cmd, app, yes)

			ids := make([]model.ItemID, 0, len(args))
			for _, a := range args {
				if a = strings.TrimSpace(a); a != "" {
					ids = append(ids, model.ItemID(a))
				}
			}
			if all {
				if len(ids) > 0 {
					return writeErr(cmd, errors.New("--all does not take item ids"))
				}
				rows, err := c.FetchAndRender(cmd.Context())
				if err != nil {
					return v.result(err)
				}
				for _, r := range rows {
					ids = append(ids, model.ItemID(r.ItemID))
				}
			}

			err := c.DeleteSelected(cmd.Context(), ids)
			if errors.Is(err, console.ErrDeleteDeclined) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Delete cancelled.")
				return nil
			}
			if err != nil {
				return v.result(err)
			}
			return writeRefreshed(cmd, app, v)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.Flags().BoolVar(&all, "all", false, "Delete every item")
	return cmd
}

// writeRefreshed prints the rows from the re-fetch that follows a mutation.
// A failed re-fetch was already alerted; the mutation itself succeeded.
func writeRefreshed(cmd *cobra.Command, app *App, v *cliView) error {
	rows, ok := v.lastRows()
	if !ok {
		return nil
	}
	return writeOut(cmd, app, rowsOutput{Data: rows})
}
