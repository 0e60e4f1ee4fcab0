package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/expgrid/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const (
	// ExitUsage is returned for invalid flags or configuration.
	ExitUsage = 2
	// ExitFailure is returned when loading or running experiments fails.
	ExitFailure = 1
)

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
//
// Precedence, lowest first: defaults, the --config file, EXPGRID_*
// environment variables, flags, and the positional EXPERIMENTS_PATH.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("expgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
expgrid - Runs declarative experiment definitions and stores their results.

Usage:
  expgrid [options] [EXPERIMENTS_PATH]

Arguments:
  EXPERIMENTS_PATH
    Path to a single .hcl/.yaml/.toml file or a directory containing them.

Options:
`)
		flagSet.PrintDefaults()
	}

	defaults := app.DefaultConfig()
	experimentsFlag := flagSet.String("experiments", "", "Path to the experiments file or directory.")
	eFlag := flagSet.String("e", "", "Path to the experiments file or directory (shorthand).")
	resultsFlag := flagSet.String("results", defaults.ResultsPath, "Directory receiving one sub-directory per experiment.")
	runFlag := flagSet.String("run", defaults.Run, "Which experiments to run: 'new', 'all', or a comma-separated list of names.")
	configFlag := flagSet.String("config", "", "Optional config file (YAML, TOML or JSON).")
	chdirFlag := flagSet.Bool("chdir", defaults.Chdir, "Change the process working directory into each experiment's directory.")
	logFormatFlag := flagSet.String("log-format", defaults.LogFormat, "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", defaults.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	statusPortFlag := flagSet.Int("status-port", defaults.StatusPort, "Port for the HTTP status server. 0 is disabled.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	cfg, err := app.LoadConfigFile(*configFlag, defaults)
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	// Only flags given explicitly override the file and environment.
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "experiments":
			cfg.ExperimentsPath = *experimentsFlag
		case "e":
			if *experimentsFlag == "" {
				cfg.ExperimentsPath = *eFlag
			}
		case "results":
			cfg.ResultsPath = *resultsFlag
		case "run":
			cfg.Run = *runFlag
		case "chdir":
			cfg.Chdir = *chdirFlag
		case "log-format":
			cfg.LogFormat = *logFormatFlag
		case "log-level":
			cfg.LogLevel = *logLevelFlag
		case "status-port":
			cfg.StatusPort = *statusPortFlag
		}
	})
	if flagSet.NArg() > 0 {
		cfg.ExperimentsPath = flagSet.Arg(0)
	}
	slog.Debug("Experiments path determined.", "path", cfg.ExperimentsPath)

	if cfg.ExperimentsPath == "" {
		slog.Debug("No experiments path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
