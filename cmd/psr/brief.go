package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zulandar/parsinator/internal/config"
	"github.com/zulandar/parsinator/internal/models"
	"github.com/zulandar/parsinator/internal/parser"
)

func newValidateCmd() *cobra.Command {
	var (
		briefType    string
		templateDirs []string
		strict       bool
	)

	cmd := &cobra.Command{
		Use:   "validate <brief>",
		Short: "Check a brief against its template",
		Long:  "Reports the template sections a brief is missing. The type is detected from the content unless --type is given.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], briefType, templateDirs, strict)
		},
	}

	cmd.Flags().StringVarP(&briefType, "type", "t", "", "brief type: setup, feature or deployment")
	cmd.Flags().StringSliceVar(&templateDirs, "template-dir", parser.DefaultTemplateDirs, "directories searched for template files")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when the brief is invalid")
	return cmd
}

func runValidate(cmd *cobra.Command, path, briefType string, templateDirs []string, strict bool) error {
	var bt models.BriefType
	if briefType != "" {
		parsed, err := models.ParseBriefType(briefType)
		if err != nil {
			return err
		}
		bt = parsed
	}

	files, err := workingFiles()
	if err != nil {
		return err
	}
	content, err := files.ReadBrief(path)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), parser.ValidationReport(content, bt, parser.FindTemplateFiles(templateDirs)))

	if ok, errs := parser.ValidateBrief(content, bt); !ok {
		printWarnings(cmd.ErrOrStderr(), errs)
		if strict {
			return fmt.Errorf("%s: %d validation errors", path, len(errs))
		}
	}
	return nil
}

func newTemplatesCmd() *cobra.Command {
	var templateDirs []string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List brief templates and where their files live",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), parser.ListTemplates(parser.FindTemplateFiles(templateDirs)))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&templateDirs, "template-dir", parser.DefaultTemplateDirs, "directories searched for template files")
	return cmd
}

func newParseCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "parse <brief>",
		Short: "Print a parsed brief as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to Parsinator config file")
	return cmd
}

func runParse(cmd *cobra.Command, configPath, path string) error {
	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return err
	}
	files, err := workingFiles()
	if err != nil {
		return err
	}
	brief, err := parser.New(files, &cfg.Heuristics).ParseBriefFile(path)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(brief, "", "  ")
	if err != nil {
		return fmt.Errorf("encode brief: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
