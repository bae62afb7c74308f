package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/grc-cli/internal/export"
)

var checklistCmd = &cobra.Command{
	Use:   "checklist",
	Short: "Inspect and export project checklists",
}

// -- checklist show --

var checklistShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show a project's checklist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		cl, err := env.Service.Checklist(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "checklist show")
		}

		formatChecklist(cmd.OutOrStdout(), *cl)
		return nil
	},
}

// -- checklist export --

var checklistExportCmd = &cobra.Command{
	Use:   "export <project-id>",
	Short: "Export a project's checklist as JSON, CSV, or XLSX",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		formatName, _ := cmd.Flags().GetString("format")
		format, err := export.ParseFormat(formatName)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" && format == export.FormatXLSX {
			return eris.New("--out is required for xlsx exports")
		}

		env, err := initEnv(ctx, "cli")
		if err != nil {
			return err
		}
		defer env.Close()

		doc, err := env.Service.Get(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "checklist export")
		}
		cl, err := env.Service.Checklist(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "checklist export")
		}
		report := export.Report{Project: *doc, Checklist: *cl}

		if out == "" {
			return export.Write(cmd.OutOrStdout(), format, report)
		}

		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "create %s", out)
		}
		defer f.Close() //nolint:errcheck

		if err := export.Write(f, format, report); err != nil {
			return err
		}
		zap.L().Info("checklist exported",
			zap.String("project_id", args[0]),
			zap.String("format", string(format)),
			zap.String("path", out),
		)
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d item(s) to %s\n", len(cl.Items), out)
		return nil
	},
}

func init() {
	checklistExportCmd.Flags().String("format", "csv", "output format (json, csv, xlsx)")
	checklistExportCmd.Flags().String("out", "", "output file (default stdout; required for xlsx)")

	checklistCmd.AddCommand(checklistShowCmd)
	checklistCmd.AddCommand(checklistExportCmd)
	rootCmd.AddCommand(checklistCmd)
}
