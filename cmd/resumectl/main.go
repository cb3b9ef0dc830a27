// Package main provides resumectl, a local command line client for the resume store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"resumebuilder/internal/app"
	"resumebuilder/internal/config"
	"resumebuilder/internal/database"
	"resumebuilder/internal/session"
)

var rootCmd = &cobra.Command{
	Use:           "resumectl",
	Short:         "Manage resumes from the command line",
	Long:          "resumectl works against the same document store as the API: sign up, import, render and export resumes without a browser.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	// 存在 .env 时加载
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env 是单条命令运行期间共用的依赖。
type env struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *database.Store
	sessions *session.Manager
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	store, err := app.OpenStore(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	sessions := app.NewSessionManager(store, cfg.Session, logger)
	if err := sessions.Restore(ctx); err != nil {
		sessions.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return &env{cfg: cfg, logger: logger, store: store, sessions: sessions}, nil
}

// close 保存编辑器中的简历并停止自动保存。
func (e *env) close(ctx context.Context) {
	if err := e.sessions.CloseEditor(ctx); err != nil {
		e.logger.Error("close editor failed", slog.Any("error", err))
	}
	e.sessions.Close()
}

// withEnv 包装 RunE，负责打开与关闭依赖。
func withEnv(run func(ctx context.Context, cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close(ctx)
		return run(ctx, cmd, args, e)
	}
}
