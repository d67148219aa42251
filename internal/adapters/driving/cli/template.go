package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/annotate-cli/internal/adapters/driving/watch"
	"github.com/custodia-labs/annotate-cli/internal/core/domain"
	"github.com/custodia-labs/annotate-cli/internal/core/ports/driving"
	"github.com/custodia-labs/annotate-cli/internal/core/services"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Manage local templates",
	Long:  `List, inspect, validate, import, export, and delete locally stored templates.`,
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplateList,
}

var templateShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Print a stored template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateShow,
}

var templateValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a template file",
	Long:  `Parses a JSON or YAML template, reports structural problems and lists the fixes normalisation would apply.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateValidate,
}

var templateImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a template file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateImport,
}

var templateExportCmd = &cobra.Command{
	Use:   "export [name]",
	Short: "Write a stored template to a file or stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateExport,
}

var templateDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a stored template",
	Args:  cobra.ExactArgs(1),
	RunE:  runTemplateDelete,
}

var templateWatchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Import templates dropped into a folder",
	Long: `Imports every template file already in the folder, then keeps importing
files as they are created or rewritten until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runTemplateWatch,
}

// Template command flags.
var (
	templateFormat     string
	templateImportName string
	templateOutput     string
)

func init() {
	templateShowCmd.Flags().StringVarP(&templateFormat, "format", "f", "json", "Output format (json or yaml)")
	templateExportCmd.Flags().StringVarP(&templateFormat, "format", "f", "json", "Output format (json or yaml)")
	templateExportCmd.Flags().StringVarP(&templateOutput, "output", "o", "", "Output file (default stdout)")
	templateImportCmd.Flags().StringVarP(&templateImportName, "name", "n", "", "Store name (default derived from the file name)")

	templateCmd.AddCommand(templateListCmd)
	templateCmd.AddCommand(templateShowCmd)
	templateCmd.AddCommand(templateValidateCmd)
	templateCmd.AddCommand(templateImportCmd)
	templateCmd.AddCommand(templateExportCmd)
	templateCmd.AddCommand(templateDeleteCmd)
	templateCmd.AddCommand(templateWatchCmd)
	rootCmd.AddCommand(templateCmd)
}

func runTemplateList(cmd *cobra.Command, _ []string) error {
	if templateService == nil {
		return errNotConfigured("template")
	}

	names, err := templateService.List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list templates: %w", err)
	}
	if len(names) == 0 {
		cmd.Println("No templates stored. Import one with 'annotate template import <file>'.")
		return nil
	}
	for _, name := range names {
		cmd.Println(name)
	}
	return nil
}

func runTemplateShow(cmd *cobra.Command, args []string) error {
	if templateService == nil {
		return errNotConfigured("template")
	}
	format, err := parseFormat(templateFormat)
	if err != nil {
		return err
	}

	tmpl, err := templateService.Load(context.Background(), args[0])
	if err != nil {
		return err
	}
	data, err := templateService.Encode(tmpl, format)
	if err != nil {
		return err
	}
	cmd.Print(string(data))
	return nil
}

func runTemplateValidate(cmd *cobra.Command, args []string) error {
	if templateService == nil {
		return errNotConfigured("template")
	}

	tmpl, err := readTemplateFile(args[0])
	if err != nil {
		return err
	}
	_, warnings, err := templateService.Prepare(tmpl)
	if err != nil {
		return err
	}

	cmd.Printf("%s: valid (%d fields)\n", args[0], len(tmpl.Fields))
	for _, w := range warnings {
		cmd.Printf("  fixed: %s\n", w)
	}
	return nil
}

func runTemplateImport(cmd *cobra.Command, args []string) error {
	if templateService == nil {
		return errNotConfigured("template")
	}

	name := templateImportName
	if name == "" {
		name = watch.TemplateNameFor(args[0])
	}
	tmpl, err := readTemplateFile(args[0])
	if err != nil {
		return err
	}
	if err := templateService.Save(context.Background(), name, tmpl); err != nil {
		return err
	}
	cmd.Printf("Imported %q as %s\n", tmpl.Name, name)
	return nil
}

func runTemplateExport(cmd *cobra.Command, args []string) error {
	if templateService == nil {
		return errNotConfigured("template")
	}

	format, err := parseFormat(templateFormat)
	if err != nil {
		return err
	}
	if templateOutput != "" && !cmd.Flags().Changed("format") {
		format = services.FormatFromPath(templateOutput)
		if format == driving.FormatAuto {
			format = driving.FormatJSON
		}
	}

	tmpl, err := templateService.Load(context.Background(), args[0])
	if err != nil {
		return err
	}
	data, err := templateService.Encode(tmpl, format)
	if err != nil {
		return err
	}

	if templateOutput == "" {
		cmd.Print(string(data))
		return nil
	}
	if err := os.WriteFile(templateOutput, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", templateOutput, err)
	}
	cmd.Printf("Exported %s to %s\n", args[0], templateOutput)
	return nil
}

func runTemplateDelete(cmd *cobra.Command, args []string) error {
	if templateService == nil {
		return errNotConfigured("template")
	}

	if err := templateService.Delete(context.Background(), args[0]); err != nil {
		return fmt.Errorf("failed to delete template %s: %w", args[0], err)
	}
	cmd.Printf("Deleted %s\n", args[0])
	return nil
}

func runTemplateWatch(cmd *cobra.Command, args []string) error {
	if templateService == nil {
		return errNotConfigured("template")
	}

	dir := filepath.Clean(args[0])
	w := watch.New(dir, templateService, watch.Options{
		Report: func(r watch.Result) {
			if r.Err != nil {
				cmd.PrintErrf("%s: %v\n", filepath.Base(r.Path), r.Err)
				return
			}
			cmd.Printf("Imported %s as %s\n", filepath.Base(r.Path), r.Name)
			for _, warning := range r.Warnings {
				cmd.Printf("  fixed: %s\n", warning)
			}
		},
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.ImportExisting(ctx); err != nil {
		return err
	}
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)
	return w.Run(ctx)
}

func readTemplateFile(path string) (*domain.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return templateService.Parse(data, services.FormatFromPath(path))
}

func parseFormat(s string) (driving.TemplateFormat, error) {
	switch s {
	case "json", "":
		return driving.FormatJSON, nil
	case "yaml", "yml":
		return driving.FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (use json or yaml)", domain.ErrInvalidInput, s)
	}
}
