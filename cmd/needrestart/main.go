// Command needrestart wires the scanner pipeline, its default
// collaborators and the batch-mode report writer into a single cobra
// command, grounded on the teacher's habit of keeping main() a thin
// RunE that delegates to the internal packages (cmd/agentless-scanner/
// command.Commands) rather than a monolithic function.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/phillipberndt/needrestart/internal/attributor"
	"github.com/phillipberndt/needrestart/internal/classify"
	"github.com/phillipberndt/needrestart/internal/config"
	"github.com/phillipberndt/needrestart/internal/hookrun"
	"github.com/phillipberndt/needrestart/internal/interpscan"
	"github.com/phillipberndt/needrestart/internal/kernelscan"
	"github.com/phillipberndt/needrestart/internal/log"
	"github.com/phillipberndt/needrestart/internal/report"
	"github.com/phillipberndt/needrestart/internal/scanner"
	"github.com/phillipberndt/needrestart/internal/sdprobe"
	"github.com/phillipberndt/needrestart/internal/uisink"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "needrestart",
		Short:         "Detect processes and kernels that need a restart",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v)
		},
	}

	if err := config.BindFlags(cmd, v); err != nil {
		// BindFlags only fails on a programming error in its own flag
		// table; there is no recovery path worth offering.
		panic(err)
	}

	return cmd
}

func run(parent context.Context, v *viper.Viper) error {
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	log.Setup(cfg.Verbose)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	blacklist, err := classify.CompileBlacklist(cfg.Blacklist)
	if err != nil {
		return err
	}
	blacklistRC, err := report.CompileBlacklistRC(cfg.BlacklistRC)
	if err != nil {
		return err
	}

	probe := &sdprobe.Probe{}
	defer probe.Close()

	privileged := os.Geteuid() == 0

	opts := scanner.Options{
		Classify: classify.Options{
			Blacklist:    blacklist,
			InterpScan:   cfg.InterpScan,
			Prober:       interpscan.NopProber{},
			Unprivileged: !privileged,
			CallerUID:    uint32(os.Getuid()),
		},
		Attribute: attributor.Options{
			Privileged:           privileged,
			ServiceManagerBinary: "/lib/systemd/systemd",
			LegacyInitBinary:     "/sbin/init",
			Runlevel:             2,
			HookRunner:           hookrun.Runner{Dir: "/usr/share/needrestart/hook.d"},
			Probe:                probe,
			Verbose:              cfg.Verbose,
		},
		KernelHints: cfg.KernelHints,
		Kernel:      kernelscan.Scanner{},
		Progress:    &uisink.Terminal{Out: os.Stderr},
	}

	rpt, err := scanner.Run(ctx, opts)
	if err != nil {
		return fmt.Errorf("needrestart: scan: %w", err)
	}

	report.Apply(rpt, report.Policy{BlacklistRC: blacklistRC, OverrideRC: cfg.OverrideRC})

	return report.WriteBatch(os.Stdout, version, rpt)
}
