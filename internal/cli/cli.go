package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/modgrid/internal/app"
	"github.com/specialistvlad/modgrid/internal/remote"
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

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("modgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
modgrid - share Go modules between nodes and drive them with tasks.

Usage:
  modgrid [options] [NODE_FILE]

Arguments:
  NODE_FILE
    Path to a single .hcl node file or a directory containing .hcl files.

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the node file or directory.")
	cFlag := flagSet.String("c", "", "Path to the node file or directory (shorthand).")
	portFlag := flagSet.Int("port", app.PortFromFile, "Module server port. Overrides the node file; -1 keeps it, 0 picks a free port.")
	adminPortFlag := flagSet.Int("admin-port", 0, "Port for the admin HTTP server (/health, /modules, /tasks, /metrics). 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	connectTimeoutFlag := flagSet.Duration("connect-timeout", remote.DefaultConnectTimeout, "How long to wait for a peer to accept a connection.")
	requestTimeoutFlag := flagSet.Duration("request-timeout", remote.DefaultRequestTimeout, "How long to wait for a peer to answer a request.")
	traceFlag := flagSet.Bool("trace", false, "Write OpenTelemetry spans to the log output.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *configFlag != "" {
		path = *configFlag
	} else if *cFlag != "" {
		path = *cFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Node file path determined.", "path", path)

	if path == "" {
		slog.Debug("No node file provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	config, err := app.NewConfig(app.Config{
		ConfigPath:     path,
		Port:           *portFlag,
		AdminPort:      *adminPortFlag,
		LogFormat:      logFormat,
		LogLevel:       logLevel,
		ConnectTimeout: *connectTimeoutFlag,
		RequestTimeout: *requestTimeoutFlag,
		Trace:          *traceFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
