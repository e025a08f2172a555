package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/echoflaresat/natalglobe/overlay"
)

func newCatalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect overlay catalogs",
	}

	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Export the configured catalog as GeoJSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := a.catalog()
			if err != nil {
				return err
			}
			data, err := overlay.ExportGeoJSON(cat)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			return os.WriteFile(out, data, 0o644)
		},
	}
	export.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout)")

	validate := &cobra.Command{
		Use:   "validate <catalog.yaml>",
		Short: "Check a catalog file for errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := overlay.LoadCatalogFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d points, %d arcs\n", args[0], len(cat.Points), len(cat.Arcs))
			return nil
		},
	}

	cmd.AddCommand(export, validate)
	return cmd
}
