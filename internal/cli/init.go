// Package cli provides the initialization helpers shared by the payouts
// commands.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"payouts/internal/config"
	"payouts/internal/core"
	"payouts/internal/log"
	"payouts/internal/schema"
)

// SetupLogger builds the process logger for level and makes it the default.
func SetupLogger(level string, out io.Writer) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	cfg.Component = log.ComponentCLI
	if out != nil {
		cfg.Output = out
	}
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads .env files for local development. Missing files are
// ignored.
func LoadEnvFile(paths ...string) {
	if len(paths) == 0 {
		_ = godotenv.Load()
		return
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig(logger *log.Logger) (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", log.FieldError, err)
		return nil, err
	}
	return cfg, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM or when
// the returned cancel func is called.
func GracefulShutdown(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			logger.Info("shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// ParseMonthOverrides turns "file=YYYY-MM" pairs into a month per file name.
func ParseMonthOverrides(pairs []string) (map[string]core.Month, error) {
	out := make(map[string]core.Month, len(pairs))
	for _, p := range pairs {
		name, month, ok := strings.Cut(p, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid month override %q: want file=YYYY-MM", p)
		}
		m, err := core.ParseMonth(strings.TrimSpace(month))
		if err != nil {
			return nil, fmt.Errorf("invalid month override %q: %w", p, err)
		}
		out[name] = m
	}
	return out, nil
}

// Prompter asks on a terminal for the month of files whose month could not
// be inferred. Prompts are serialized since files are parsed concurrently.
type Prompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// ResolveMonth asks until it gets a valid YYYY-MM. An empty answer skips the
// file.
func (p *Prompter) ResolveMonth(ctx context.Context, file string, l schema.Layout) (core.Month, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for ctx.Err() == nil {
		fmt.Fprintf(p.out, "Report month for %s (header on row %d), YYYY-MM or empty to skip: ", file, l.HeaderRow+1)
		line, err := p.in.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			return core.Month{}, false
		}
		if m, perr := core.ParseMonth(line); perr == nil {
			return m, true
		}
		fmt.Fprintf(p.out, "%q is not a valid month\n", line)
		if err != nil {
			return core.Month{}, false
		}
	}
	return core.Month{}, false
}
