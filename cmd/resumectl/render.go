package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"resumebuilder/internal/app"
	"resumebuilder/internal/export"
	"resumebuilder/internal/render"
	"resumebuilder/internal/resume"
	"resumebuilder/internal/storage"
)

var (
	renderFormat   string
	renderTemplate string
	renderOutput   string
	exportOutput   string
)

var renderCmd = &cobra.Command{
	Use:   "render <id>",
	Short: "Render a resume as HTML or as a JSON document tree",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, args []string, e *env) error {
		doc, err := e.sessions.LoadResume(ctx, args[0])
		if err != nil {
			return fmt.Errorf("load resume: %w", err)
		}
		templateID := doc.Template
		if renderTemplate != "" {
			if templateID, err = resume.ParseTemplateID(renderTemplate); err != nil {
				return err
			}
		}
		tree := render.Render(doc.Content, templateID)

		out, closeOut, err := openOutput(cmd, renderOutput)
		if err != nil {
			return err
		}
		defer closeOut()

		switch renderFormat {
		case "html":
			page, err := render.Page(tree)
			if err != nil {
				return fmt.Errorf("render page: %w", err)
			}
			_, err = io.WriteString(out, page)
			return err
		case "tree":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(tree)
		default:
			return fmt.Errorf("unknown format %q (want html or tree)", renderFormat)
		}
	}),
}

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a resume to PDF with the headless browser",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, args []string, e *env) error {
		if _, err := e.sessions.LoadResume(ctx, args[0]); err != nil {
			return fmt.Errorf("load resume: %w", err)
		}
		doc, err := e.sessions.SaveForExport(ctx)
		if err != nil {
			return err
		}

		sink, err := app.NewSink(ctx, e.cfg)
		if err != nil {
			return fmt.Errorf("init export sink: %w", err)
		}
		// 命令行导出同步执行，不发送通知
		svc := app.NewExportService(e.cfg.Export, sink, nil, e.logger)
		result, err := svc.Export(ctx, doc, "")
		if err != nil {
			return fmt.Errorf("export resume: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "stored %s (%d pages, %d bytes)\n", result.ObjectKey, result.Pages, result.Size)

		if exportOutput == "" {
			return nil
		}
		return copyObject(ctx, sink, result, exportOutput)
	}),
}

func copyObject(ctx context.Context, sink storage.Sink, result *export.Result, target string) error {
	body, err := sink.Get(ctx, result.ObjectKey)
	if err != nil {
		return fmt.Errorf("read exported pdf: %w", err)
	}
	defer body.Close()

	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := io.Copy(f, body); err != nil {
		_ = f.Close()
		return fmt.Errorf("write output file: %w", err)
	}
	return f.Close()
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func init() {
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "html", "Output format: html or tree")
	renderCmd.Flags().StringVarP(&renderTemplate, "template", "t", "", "Override the resume template")
	renderCmd.Flags().StringVarP(&renderOutput, "out", "o", "", "Output path (default stdout)")

	exportCmd.Flags().StringVarP(&exportOutput, "out", "o", "", "Also copy the PDF to this path")

	rootCmd.AddCommand(renderCmd, exportCmd)
}
