package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shotscribe/internal/compose"
)

func newTemplatesCommand(ctx *commandContext) *cobra.Command {
	templatesCmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"template"},
		Short:   "List, validate and copy prompt templates",
	}
	templatesCmd.AddCommand(newTemplatesListCommand(ctx))
	templatesCmd.AddCommand(newTemplatesValidateCommand(ctx))
	templatesCmd.AddCommand(newTemplatesCopyCommand(ctx))
	return templatesCmd
}

func (c *commandContext) templateLibrary() (*compose.Library, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return compose.NewLibrary(cfg.Paths.TemplatesDir), nil
}

func newTemplatesListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list [breakdown|rewrite]",
		Short: "List available templates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			library, err := ctx.templateLibrary()
			if err != nil {
				return err
			}
			categories := compose.Categories
			if len(args) == 1 {
				category, err := compose.ParseCategory(args[0])
				if err != nil {
					return err
				}
				categories = []compose.Category{category}
			}

			var all []compose.TemplateInfo
			for _, category := range categories {
				infos, err := library.List(category)
				if err != nil {
					return err
				}
				all = append(all, infos...)
			}
			if jsonOut {
				return writeJSON(cmd, all)
			}
			out := cmd.OutOrStdout()
			if len(all) == 0 {
				fmt.Fprintln(out, "No templates found")
				return nil
			}
			rows := make([][]string, 0, len(all))
			for _, info := range all {
				source := "builtin"
				if !info.Builtin {
					source = "custom"
				}
				rows = append(rows, []string{string(info.Category), info.Name, source, info.Description})
			}
			fmt.Fprintln(out, listing{
				Title: "Templates",
				Columns: []column{
					{Header: "Category"},
					{Header: "Name"},
					{Header: "Source"},
					{Header: "Description", MaxWidth: 60},
				},
				Rows: rows,
			}.render())
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print templates as JSON")
	return cmd
}

func newTemplatesValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <breakdown|rewrite> <name>",
		Short: "Check a template for required placeholders",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			library, err := ctx.templateLibrary()
			if err != nil {
				return err
			}
			category, err := compose.ParseCategory(args[0])
			if err != nil {
				return err
			}
			result := library.Validate(category, strings.TrimSpace(args[1]))
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			label := fmt.Sprintf("%s/%s", result.Category, result.Name)
			if result.Valid() {
				fmt.Fprintln(out, renderStatusLine(label, statusOK, "template valid", colorize))
				return nil
			}
			fmt.Fprintln(out, renderStatusLine(label, statusError, fmt.Sprintf("%d problems", len(result.Errors)), colorize))
			for _, problem := range result.Errors {
				fmt.Fprintf(out, "%s- %s\n", statusIndent, problem)
			}
			return errors.New("template invalid")
		},
	}
}

func newTemplatesCopyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <breakdown|rewrite> <source> <target>",
		Short: "Copy a template into the templates directory under a new name",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			library, err := ctx.templateLibrary()
			if err != nil {
				return err
			}
			category, err := compose.ParseCategory(args[0])
			if err != nil {
				return err
			}
			dest, err := library.Copy(category, strings.TrimSpace(args[1]), args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created template %s\n", dest)
			return nil
		},
	}
}
