// Package cli implements the doccompare command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fmuoria/doc-compare-agent/internal/bootstrap"
	"github.com/fmuoria/doc-compare-agent/internal/comparison"
	"github.com/fmuoria/doc-compare-agent/internal/config"
	"github.com/fmuoria/doc-compare-agent/internal/llm"
	"github.com/fmuoria/doc-compare-agent/internal/logging"
	"github.com/fmuoria/doc-compare-agent/internal/metrics"
)

// exitErr carries a process exit code
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func exitError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// state is shared by all subcommands after the root pre-run
type state struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
}

// NewRootCmd builds the doccompare command tree
func NewRootCmd() *cobra.Command {
	st := &state{}

	root := &cobra.Command{
		Use:           "doccompare",
		Short:         "Compare response documents against a specification and score their coverage",
		Version:       comparison.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.init(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&st.configPath, "config", "", "Config file path (default: $DOCCOMPARE_CONFIG or the user config dir)")
	flags.StringVar(&st.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides config)")

	root.AddCommand(
		newServeCmd(st),
		newCompareCmd(st),
		newBatchCmd(st),
		newGmailCmd(st),
		newDeploymentsCmd(st),
		newGUICmd(st),
	)

	return root
}

func (st *state) init(errOut io.Writer) error {
	cfg, err := config.Load(st.configPath)
	if err != nil {
		return exitError(3, "%v", err)
	}
	if st.logLevel != "" {
		cfg.LogLevel = st.logLevel
	}

	logger, err := logging.New(errOut, cfg.LogLevel)
	if err != nil {
		return exitError(2, "%v", err)
	}

	cfg.ApplyToEnv()
	st.cfg = cfg
	st.logger = logger
	return nil
}

// components validates the config and builds the comparison stack
func (st *state) components(ctx context.Context, ruleBased bool, m *metrics.Manager) (*bootstrap.Components, error) {
	check := *st.cfg
	if ruleBased {
		check.LLM.Provider = llm.ProviderNone
	}
	if err := check.Validate(); err != nil {
		return nil, exitError(3, "invalid configuration: %v", err)
	}

	c, err := bootstrap.Build(ctx, st.cfg, bootstrap.Options{
		Logger:    st.logger,
		Metrics:   m,
		RuleBased: ruleBased,
	})
	if err != nil {
		return nil, exitError(1, "%v", err)
	}
	return c, nil
}

// Execute runs the root command and returns the process exit code
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(stderr, ee.msg)
			return ee.code
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// Main is the entry point used by package main
func Main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
