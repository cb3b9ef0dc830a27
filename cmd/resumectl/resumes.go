package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"resumebuilder/internal/importer"
	"resumebuilder/internal/resume"
)

var importInput string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List resumes of the signed-in account, newest first",
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, _ []string, e *env) error {
		docs, err := e.sessions.ListResumes(ctx)
		if err != nil {
			return fmt.Errorf("list resumes: %w", err)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tTEMPLATE\tUPDATED")
		for _, doc := range docs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", doc.ID, doc.Name, doc.Template, doc.UpdatedAt.Local().Format(time.DateTime))
		}
		return w.Flush()
	}),
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a resume filled with sample content",
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, _ []string, e *env) error {
		if _, err := e.sessions.CreateResume(ctx, ""); err != nil {
			return fmt.Errorf("create resume: %w", err)
		}
		if _, err := e.sessions.Edit(func(r *resume.Resume) error {
			r.Name = "Sample Resume"
			r.Content = resume.SampleContent()
			return nil
		}); err != nil {
			return err
		}
		doc, err := e.sessions.Save(ctx)
		if err != nil {
			return fmt.Errorf("save resume: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), doc.ID)
		return nil
	}),
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a resume JSON document as a new resume",
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, _ []string, e *env) error {
		data, err := os.ReadFile(importInput)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		parsed, err := importer.Parse(data)
		if err != nil {
			return err
		}
		if _, err := e.sessions.CreateResume(ctx, ""); err != nil {
			return fmt.Errorf("create resume: %w", err)
		}
		if _, err := e.sessions.Edit(func(r *resume.Resume) error {
			parsed.Apply(r)
			return nil
		}); err != nil {
			return err
		}
		doc, err := e.sessions.Save(ctx)
		if err != nil {
			return fmt.Errorf("save resume: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), doc.ID)
		return nil
	}),
}

var duplicateCmd = &cobra.Command{
	Use:   "duplicate <id>",
	Short: "Copy a resume",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(ctx context.Context, cmd *cobra.Command, args []string, e *env) error {
		doc, err := e.sessions.DuplicateResume(ctx, args[0])
		if err != nil {
			return fmt.Errorf("duplicate resume: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), doc.ID)
		return nil
	}),
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a resume",
	Args:  cobra.ExactArgs(1),
	RunE: withEnv(func(ctx context.Context, _ *cobra.Command, args []string, e *env) error {
		return e.sessions.DeleteResume(ctx, args[0])
	}),
}

func init() {
	importCmd.Flags().StringVarP(&importInput, "in", "i", "", "Path to resume JSON file (required)")
	if err := importCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}
	rootCmd.AddCommand(listCmd, seedCmd, importCmd, duplicateCmd, deleteCmd)
}
