package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mouse-blink/culprit/internal/domain"
)

// fileConfig mirrors the tunable knobs of a run. Any field present in the
// file fills in the matching argument unless the flag was set explicitly.
type fileConfig struct {
	Baseline     *string `yaml:"baseline"`
	Target       *string `yaml:"target"`
	Predicate    *string `yaml:"predicate"`
	ArgFormat    *string `yaml:"arg_format"`
	ArgSeparator *string `yaml:"arg_separator"`
	Timeout      *int    `yaml:"timeout_seconds"`
	MaxRetries   *int    `yaml:"max_retries"`
	MaxTrials    *int    `yaml:"max_trials"`
	MaxWorkers   *int    `yaml:"max_workers"`
	ProjectDir   *string `yaml:"project_dir"`
	Reports      *string `yaml:"reports"`
	Compiler     *string `yaml:"compiler"`
	Confirm      *bool   `yaml:"confirm"`
	Expand       *bool   `yaml:"expand"`
}

// mergeFileConfig overlays file values onto args for every flag the user
// did not set on the command line.
func mergeFileConfig(cmd *cobra.Command, path string, args *domain.MinimizeArgs) error {
	// #nosec G304 - path is the user's own config file
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	flags := cmd.Flags()

	setString := func(name string, dst *string, src *string) {
		if src != nil && !flags.Changed(name) {
			*dst = *src
		}
	}
	setInt := func(name string, dst *int, src *int) {
		if src != nil && !flags.Changed(name) {
			*dst = *src
		}
	}
	setBool := func(name string, dst *bool, src *bool) {
		if src != nil && !flags.Changed(name) {
			*dst = *src
		}
	}

	setString("baseline", &args.Baseline, cfg.Baseline)
	setString("target", &args.Target, cfg.Target)
	setString("predicate", &args.Predicate, cfg.Predicate)
	setString("arg-format", &args.ArgFormat, cfg.ArgFormat)
	setString("arg-separator", &args.ArgSeparator, cfg.ArgSeparator)
	setString("project-dir", &args.ProjectDir, cfg.ProjectDir)
	setString("reports", &args.Reports, cfg.Reports)
	setString("compiler", &args.Compiler, cfg.Compiler)
	setInt("retries", &args.MaxRetries, cfg.MaxRetries)
	setInt("max-trials", &args.MaxTrials, cfg.MaxTrials)
	setInt("parallel", &args.MaxWorkers, cfg.MaxWorkers)
	setBool("confirm", &args.Confirm, cfg.Confirm)
	setBool("expand", &args.ExpandImplied, cfg.Expand)

	if cfg.Timeout != nil && !flags.Changed("timeout") {
		args.Timeout = time.Duration(*cfg.Timeout) * time.Second
	}

	return nil
}

// validateArgs checks the inputs that have no usable default.
func validateArgs(args domain.MinimizeArgs) error {
	if args.Baseline == "" {
		return errors.New("baseline options are required (--baseline)")
	}

	if args.Target == "" {
		return errors.New("target options are required (--target)")
	}

	if args.Predicate == "" {
		return errors.New("a predicate template is required (--predicate)")
	}

	if args.MaxWorkers > 1 && args.ProjectDir == "" {
		return errors.New("--parallel requires --project-dir so trials run in isolated copies")
	}

	return nil
}
