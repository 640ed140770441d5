// Package config loads the configuration surface spec.md §6 defines
// (verbose, blacklist, blacklist_rc, override_rc, interpscan, kernelhints,
// restart_mode, defno) the way the teacher's own commands do it: pflag
// flags on a cobra.Command, bound into a spf13/viper instance so the same
// keys can also come from a config file or environment variable, with the
// flag value taking precedence. No fx dependency-injection graph is built
// around it; see DESIGN.md for why.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/phillipberndt/needrestart/internal/model"
)

// Config is the fully resolved configuration surface for one invocation.
type Config struct {
	Verbose bool

	Blacklist   []string
	BlacklistRC []string

	// OverrideRC preserves the ordered map semantics spec.md 6 requires:
	// a list of "pattern=yes|no" flag values, kept in the order given on
	// the command line / config file rather than collapsed into a Go map.
	OverrideRC []model.OverrideRule

	InterpScan  bool
	KernelHints bool

	// RestartMode is opaque to the core; it is parsed only far enough to
	// reject an invalid value early.
	RestartMode string

	DefNo bool

	ConfigFile string
}

const (
	keyVerbose     = "verbose"
	keyBlacklist   = "blacklist"
	keyBlacklistRC = "blacklist_rc"
	keyOverrideRC  = "override_rc"
	keyInterpScan  = "interpscan"
	keyKernelHints = "kernelhints"
	keyRestartMode = "restart_mode"
	keyDefNo       = "defno"
)

// BindFlags registers the configuration surface as persistent flags on cmd
// and binds each one into v, the way the teacher's subcommands bind pflag
// values ahead of the viper-backed config load.
func BindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.PersistentFlags()

	flags.BoolP(keyVerbose, "v", false, "enable per-pid diagnostic trace on stderr")
	flags.StringSlice(keyBlacklist, nil, "regex on exe path; matching pids are not classified (repeatable)")
	flags.StringSlice(keyBlacklistRC, nil, "regex on unit/script name; matching units are dropped from the report (repeatable)")
	flags.StringSlice(keyOverrideRC, nil, "pattern=yes|no override rule, applied in the order given (repeatable)")
	flags.Bool(keyInterpScan, false, "enable the interpreter prober pass")
	flags.Bool(keyKernelHints, false, "enable the kernel scanner")
	flags.String(keyRestartMode, "list", "restart mode: list, interactive or automatic")
	flags.Bool(keyDefNo, false, "default to a negative answer in interactive mode")
	flags.String("config", "", "path to a needrestart config file")

	for _, key := range []string{
		keyVerbose, keyBlacklist, keyBlacklistRC, keyOverrideRC,
		keyInterpScan, keyKernelHints, keyRestartMode, keyDefNo, "config",
	} {
		if err := v.BindPFlag(key, flags.Lookup(key)); err != nil {
			return fmt.Errorf("config: bind %s: %w", key, err)
		}
	}
	return nil
}

// Load reads the config file (if one was named, via flag/env/default
// search path) and environment variables into v, then unmarshals the
// resolved surface into a Config.
func Load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("NEEDRESTART")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("needrestart")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/needrestart")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	rules, err := parseOverrideRC(v.GetStringSlice(keyOverrideRC))
	if err != nil {
		return nil, err
	}

	mode := v.GetString(keyRestartMode)
	switch mode {
	case "list", "interactive", "automatic":
	default:
		return nil, fmt.Errorf("config: invalid restart_mode %q", mode)
	}

	return &Config{
		Verbose:     v.GetBool(keyVerbose),
		Blacklist:   v.GetStringSlice(keyBlacklist),
		BlacklistRC: v.GetStringSlice(keyBlacklistRC),
		OverrideRC:  rules,
		InterpScan:  v.GetBool(keyInterpScan),
		KernelHints: v.GetBool(keyKernelHints),
		RestartMode: mode,
		DefNo:       v.GetBool(keyDefNo),
		ConfigFile:  v.ConfigFileUsed(),
	}, nil
}

// parseOverrideRC turns the "pattern=yes|no" flag values into OverrideRule
// entries, preserving the order they were given in.
func parseOverrideRC(raw []string) ([]model.OverrideRule, error) {
	rules := make([]model.OverrideRule, 0, len(raw))
	for _, entry := range raw {
		idx := strings.LastIndex(entry, "=")
		if idx < 0 {
			return nil, fmt.Errorf("config: invalid override_rc entry %q, want pattern=yes|no", entry)
		}
		pattern, value := entry[:idx], entry[idx+1:]
		var restart bool
		switch strings.ToLower(value) {
		case "yes", "true", "1":
			restart = true
		case "no", "false", "0":
			restart = false
		default:
			return nil, fmt.Errorf("config: invalid override_rc value %q in %q", value, entry)
		}
		rules = append(rules, model.OverrideRule{Pattern: pattern, Restart: restart})
	}
	return rules, nil
}
