package supervisor

import (
	"context"
	"fmt"
	"os"

	"github.com/duskforge/vigil/internal/config"
	"github.com/duskforge/vigil/internal/fileutil"
	"github.com/duskforge/vigil/internal/filter"
	"github.com/duskforge/vigil/internal/gitutil"
	"github.com/duskforge/vigil/internal/gitwatch"
	"github.com/duskforge/vigil/internal/issues"
	"github.com/duskforge/vigil/internal/llm"
	"github.com/duskforge/vigil/internal/report"
	"github.com/duskforge/vigil/internal/scanner"
	"github.com/duskforge/vigil/internal/tools"
)

// Options configures one daemon run.
type Options struct {
	RepoDir    string
	ConfigPath string
	CommitRef  string
}

// Supervisor owns the startup sequence and the two long-running goroutines
// (spec.md §4.I, §5).
type Supervisor struct {
	opts Options
	lock *Lock
}

// New builds a Supervisor for the given options.
func New(opts Options) *Supervisor {
	return &Supervisor{opts: opts, lock: NewLock(opts.RepoDir)}
}

// Start runs the ordered startup validation sequence from spec.md §4.I:
// lock -> rotate report to .bak -> parse config strictly -> verify git
// repo -> connect LLM backend -> validate context limit -> create empty
// report -> start Watcher+Scanner. It blocks until ctx is cancelled.
func (s *Supervisor) Start(ctx context.Context) error {
	if err := s.lock.Acquire(); err != nil {
		return err
	}
	defer s.lock.Release()

	writer := report.New(s.opts.RepoDir)
	if err := writer.Rotate(); err != nil {
		return fmt.Errorf("rotating previous report: %w", err)
	}

	cfg, err := config.Load(s.opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.ApplyDefaults()
	if errs := config.Validate(cfg); len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", errs[0])
	}

	repo := gitutil.NewRepo(s.opts.RepoDir)
	if !repo.IsRepo() {
		return fmt.Errorf("%s is not a git repository", s.opts.RepoDir)
	}

	if cfg.LLM.ContextLimit <= 0 {
		return fmt.Errorf("llm.context_limit must be configured and positive")
	}

	client, err := llm.New(cfg.LLM)
	if err != nil {
		return fmt.Errorf("connecting to LLM backend: %w", err)
	}

	probe, err := client.Probe(ctx)
	if err != nil {
		return fmt.Errorf("LLM backend unreachable: %w", err)
	}
	if probe.Authoritative {
		if cfg.LLM.ContextLimit > probe.ContextLimit {
			return fmt.Errorf("configured llm.context_limit (%d) exceeds the server-reported limit (%d)", cfg.LLM.ContextLimit, probe.ContextLimit)
		}
		if cfg.LLM.ContextLimit < probe.ContextLimit {
			fileutil.LogWarn("llm.context_limit (%d) is lower than the server-reported limit (%d); honoring the configured value", cfg.LLM.ContextLimit, probe.ContextLimit)
		}
	}

	if err := writer.WriteEmpty(); err != nil {
		return fmt.Errorf("creating initial report: %w", err)
	}

	logDir := fileutil.VigilDir(s.opts.RepoDir)
	if err := fileutil.EnsureDir(logDir); err != nil {
		return fmt.Errorf("creating .vigil directory: %w", err)
	}
	logFile, err := os.OpenFile(logDir+string(os.PathSeparator)+report.LogFilename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err == nil {
		fileutil.SetLogFile(logFile)
		defer logFile.Close()
	}

	cell := gitwatch.NewCell()
	store := issues.NewStore()
	executor := tools.New(s.opts.RepoDir)

	watcher, err := gitwatch.New(s.opts.RepoDir, func() *filter.Filter {
		f, ferr := filter.New(cfg, s.opts.RepoDir)
		if ferr != nil {
			fileutil.LogError("filter: rebuild failed, excluding nothing this poll: %s", ferr)
			f, _ = filter.New(&config.Config{}, s.opts.RepoDir)
		}
		return f
	}, s.opts.CommitRef)
	if err != nil {
		return fmt.Errorf("initializing git watcher: %w", err)
	}

	engine := scanner.New(s.opts.RepoDir, cfg, cell, store, writer, client, executor)

	go gitwatch.Run(ctx, watcher, cell, s.opts.RepoDir, gitwatch.DefaultPollInterval)
	engine.Run(ctx) // blocks until ctx is cancelled; the daemon's main loop
	return nil
}
