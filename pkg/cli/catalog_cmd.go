package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"deltashare-mock/internal/catalog"
)

type catalogView struct {
	Share   string      `json:"share"`
	ShareID string      `json:"shareId"`
	Schema  string      `json:"schema"`
	Version int64       `json:"version"`
	Tables  []tableView `json:"tables"`
}

type tableView struct {
	Name    string       `json:"name"`
	ID      string       `json:"id"`
	Format  string       `json:"format"`
	Path    string       `json:"path"`
	Columns []columnView `json:"columns"`
}

type columnView struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

func newCatalogCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the catalog the server would load",
		Long: `Loads the catalog from --file (or $CATALOG_FILE), or the built-in catalog
when neither is set, validates it, and prints its shares, tables, and columns.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("file") {
				file = os.Getenv("CATALOG_FILE")
			}
			cat, err := catalog.Load(file)
			if err != nil {
				return err
			}
			view, err := buildCatalogView(cat)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if getOutputFormat(cmd) == "json" {
				return printJSON(out, view)
			}

			_, _ = fmt.Fprintf(out, "Share:   %s (%s)\nSchema:  %s\nVersion: %d\n\n",
				view.Share, view.ShareID, view.Schema, view.Version)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "TABLE\tFORMAT\tPATH\tCOLUMNS")
			for _, t := range view.Tables {
				cols := make([]string, 0, len(t.Columns))
				for _, c := range t.Columns {
					cols = append(cols, c.Name+":"+c.Type)
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.Name, t.Format, t.Path, strings.Join(cols, ", "))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file")
	return cmd
}

func buildCatalogView(cat *catalog.Catalog) (catalogView, error) {
	shares := cat.Shares()
	if len(shares) == 0 {
		return catalogView{}, fmt.Errorf("catalog has no shares")
	}
	share := shares[0]
	schemas, err := cat.Schemas(share.Name)
	if err != nil {
		return catalogView{}, err
	}
	tables, err := cat.AllTables(share.Name)
	if err != nil {
		return catalogView{}, err
	}

	view := catalogView{Share: share.Name, ShareID: share.ID, Version: cat.Version()}
	if len(schemas) > 0 {
		view.Schema = schemas[0].Name
	}
	for _, t := range tables {
		tv := tableView{Name: t.Name, ID: t.ID, Format: string(t.Format), Path: t.ObjectPath()}
		for _, c := range t.Columns {
			tv.Columns = append(tv.Columns, columnView{Name: c.Name, Type: c.Type, Nullable: c.Nullable})
		}
		view.Tables = append(view.Tables, tv)
	}
	return view, nil
}
