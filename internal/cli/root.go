// Package cli implements ledgerctl, the offline inspector for the audit
// ledger. It opens the same backends the server writes to.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"txguard/internal/ledger"
	"txguard/internal/ledger/backend"
	"txguard/internal/platform/config"
	"txguard/internal/platform/logger"
)

// Exit codes returned through ExitError.
const (
	ExitFailure   = 1
	ExitIntegrity = 2
)

// ExitError carries a process exit code out of a command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitFailure
}

type globalFlags struct {
	configPath string
	backend    string
	path       string
	hash       string
	asJSON     bool
}

// NewRootCommand builds the ledgerctl command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Inspect and verify the txguard audit ledger",
		Long:          "Reads the hash-chained audit ledger directly from its backend.\nverify exits 2 when the chain does not verify.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&g.configPath, "config", "", "path to YAML config (defaults to $TXGUARD_CONFIG)")
	pf.StringVar(&g.backend, "backend", "", "override ledger.backend (file, sqlite, postgres)")
	pf.StringVar(&g.path, "path", "", "override ledger.path")
	pf.StringVar(&g.hash, "hash", "", "override ledger.hash_algorithm")
	pf.BoolVar(&g.asJSON, "json", false, "print JSON instead of text")

	root.AddCommand(newVerifyCommand(g), newShowCommand(g), newHeadCommand(g))
	return root
}

// open loads config, applies flag overrides and opens the ledger quietly.
func (g *globalFlags) open(ctx context.Context, errOut io.Writer) (*ledger.Ledger, backend.Closer, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, nil, err
	}
	if g.backend != "" {
		cfg.Ledger.Backend = g.backend
	}
	if g.path != "" {
		cfg.Ledger.Path = g.path
	}
	if g.hash != "" {
		cfg.Ledger.HashAlgorithm = g.hash
	}
	if cfg.Ledger.Backend == "memory" {
		return nil, nil, errors.New("the memory backend has nothing to inspect; pass --backend and --path")
	}
	cfg.Log.Level = "warn"
	log := logger.NewWithWriter(errOut, cfg.Log)
	return backend.Open(ctx, cfg, ledger.WithLogger(log))
}

func (g *globalFlags) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func withLedger(ctx context.Context, g *globalFlags, errOut io.Writer, fn func(l *ledger.Ledger) error) error {
	l, closeFn, err := g.open(ctx, errOut)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() { _ = closeFn() }()
	return fn(l)
}
