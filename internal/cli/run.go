package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/duskforge/vigil/internal/supervisor"
)

func runDaemon(cmd *cobra.Command, args []string) error {
	repoDir, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	if info, err := os.Stat(repoDir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", repoDir)
	}

	resolvedConfig := configPath
	if !filepath.IsAbs(resolvedConfig) {
		resolvedConfig = filepath.Join(repoDir, resolvedConfig)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nreceived %s, shutting down...\n", sig)
		cancel()
	}()

	fmt.Printf("vigil watching %s (config %s)\n", repoDir, resolvedConfig)

	sup := supervisor.New(supervisor.Options{
		RepoDir:    repoDir,
		ConfigPath: resolvedConfig,
		CommitRef:  commitRef,
	})
	if err := sup.Start(ctx); err != nil {
		return err
	}

	fmt.Println("vigil stopped")
	return nil
}
