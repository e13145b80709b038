package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lambda-feedback/bgstrip/config"
	"github.com/lambda-feedback/bgstrip/internal/shell"
	"github.com/lambda-feedback/bgstrip/util/conf"
	"github.com/lambda-feedback/bgstrip/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const envPrefix = "BGSTRIP_"

var (
	appName  = "bgstrip"
	appUsage = `Remove the background of images sent as base64 encoded
JSON, on serverless platforms or as a standalone http server.`

	// cliMap maps flag names to nested config keys
	cliMap = map[string]string{
		"auth-key":        "auth.key",
		"sanitize-errors": "runtime.sanitize_errors",
		"max-input-bytes": "runtime.max_input_bytes",
		"max-pixels":      "runtime.max_pixels",
		"png-compression": "runtime.png_compression",
		"backend":         "remover.backend",
		"timeout":         "remover.timeout",
		"warmup":          "remover.warmup_schedule",
		"tolerance":       "remover.builtin.tolerance",
		"feather":         "remover.builtin.feather",
		"mask-size":       "remover.builtin.mask_size",
		"interface":       "remover.process.interface",
		"command":         "remover.process.cmd",
		"arg":             "remover.process.args",
		"persistent":      "remover.process.persistent",
		"max-workers":     "remover.process.max_workers",
		"rembg-url":       "remover.rembg.url",
		"photoroom-key":   "remover.photoroom.api_key",
		"lambda-function": "remover.lambda.function",
	}

	rootApp = &cli.App{
		Name:            appName,
		Usage:           appUsage,
		HideHelpCommand: true,
		Args:            true,
		Flags: []cli.Flag{
			// general flags
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "set the log level. Options: debug, info, warn, error, panic, fatal.",
				EnvVars: []string{"LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "set the log format. Options: production, development.",
				EnvVars: []string{"LOG_FORMAT"},
			},
			&cli.PathFlag{
				Name:    "config",
				Usage:   "load configuration from a json file.",
				EnvVars: []string{"BGSTRIP_CONFIG"},
			},
			&cli.PathFlag{
				Name:    "env-file",
				Usage:   "load configuration from a .env file.",
				EnvVars: []string{"BGSTRIP_ENV_FILE"},
			},
			&cli.StringFlag{
				Name:    "auth-key",
				Usage:   "require this key in the api-key header of http requests.",
				EnvVars: []string{"AUTH_KEY"},
			},
			// runtime flags
			&cli.BoolFlag{
				Name:     "sanitize-errors",
				Usage:    "hide internal error messages from clients.",
				Category: "runtime",
				EnvVars:  []string{"SANITIZE_ERRORS"},
			},
			&cli.IntFlag{
				Name:     "max-input-bytes",
				Usage:    "the maximum size of the decoded input image. 0 disables the limit.",
				Category: "runtime",
			},
			&cli.IntFlag{
				Name:     "max-pixels",
				Usage:    "the maximum number of pixels of the input image. 0 disables the limit.",
				Category: "runtime",
			},
			&cli.StringFlag{
				Name:     "png-compression",
				Usage:    "the compression of the output png. Options: default, none, speed, best.",
				Category: "runtime",
			},
			// remover flags
			&cli.StringFlag{
				Name:     "backend",
				Usage:    "the background remover. Options: builtin, process, rembg, photoroom, lambda.",
				Aliases:  []string{"b"},
				Category: "remover",
				EnvVars:  []string{"REMOVER_BACKEND"},
			},
			&cli.DurationFlag{
				Name:     "timeout",
				Usage:    "the maximum duration of a single removal. 0 disables the limit.",
				Category: "remover",
			},
			&cli.StringFlag{
				Name:     "warmup",
				Usage:    "a cron schedule on which a tiny image is sent through the remover.",
				Category: "remover",
			},
			&cli.IntFlag{
				Name:     "tolerance",
				Usage:    "the colour distance to the border colour that is still background.",
				Category: "builtin",
			},
			&cli.IntFlag{
				Name:     "feather",
				Usage:    "the blur radius applied to the mask edge.",
				Category: "builtin",
			},
			&cli.IntFlag{
				Name:     "mask-size",
				Usage:    "the longest side of the image the mask is computed on.",
				Category: "builtin",
			},
			&cli.StringFlag{
				Name:     "interface",
				Usage:    "the interface to use for communication with the worker process. Options: stdio, file.",
				Aliases:  []string{"i"},
				Category: "process",
				EnvVars:  []string{"FUNCTION_INTERFACE"},
			},
			&cli.StringFlag{
				Name:     "command",
				Usage:    "the command to invoke in order to start the worker process.",
				Aliases:  []string{"c"},
				Category: "process",
				EnvVars:  []string{"FUNCTION_COMMAND"},
			},
			&cli.StringSliceFlag{
				Name:     "arg",
				Usage:    "additional arguments to pass to the worker process.",
				Aliases:  []string{"a"},
				Category: "process",
				EnvVars:  []string{"FUNCTION_ARGS"},
			},
			&cli.BoolFlag{
				Name:     "persistent",
				Usage:    "keep worker processes alive between requests.",
				Category: "process",
				EnvVars:  []string{"FUNCTION_PERSISTENT"},
			},
			&cli.IntFlag{
				Name:     "max-workers",
				Usage:    "the maximum number of concurrent worker processes. 0 uses one per cpu.",
				Aliases:  []string{"n"},
				Category: "process",
				EnvVars:  []string{"FUNCTION_MAX_PROCS"},
			},
			&cli.StringFlag{
				Name:     "rembg-url",
				Usage:    "the base url of the rembg server.",
				Category: "rembg",
				EnvVars:  []string{"REMBG_URL"},
			},
			&cli.StringFlag{
				Name:     "photoroom-key",
				Usage:    "the PhotoRoom api key.",
				Category: "photoroom",
				EnvVars:  []string{"PHOTOROOM_API_KEY"},
			},
			&cli.StringFlag{
				Name:     "lambda-function",
				Usage:    "the name or arn of the function to invoke.",
				Category: "lambda",
				EnvVars:  []string{"REMOVER_LAMBDA_FUNCTION"},
			},
		},
		Before: func(ctx *cli.Context) error {
			// create the logger
			log, err := createLogger(ctx)
			if err != nil {
				return err
			}

			// inject logger into cli context
			ctx.Context = logging.ContextWithLogger(ctx.Context, log)

			// parse config using defaults, files, env and flags
			cfg, err := conf.Parse[config.Config](conf.ParseOptions{
				Cli:            ctx,
				CliMap:         cliMap,
				Defaults:       config.DefaultConfig,
				EnvPrefix:      envPrefix,
				FileName:       ctx.Path("config"),
				DotenvFileName: ctx.Path("env-file"),
				Log:            log,
			})
			if err != nil {
				return err
			}

			// inject the config into the cli context
			ctx.Context = conf.ContextWithConfig(ctx.Context, cfg)

			return nil
		},
		After: func(ctx *cli.Context) error {
			// the logger is missing if Before did not run
			_ = logging.LoggerOrNop(ctx.Context).Sync()

			return nil
		},
	}
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:               "version",
		Usage:              "print the version",
		DisableDefaultText: true,
	}
}

type ExecuteParams struct {
	Version  string
	Compiled time.Time
}

// Execute runs the app and returns the process exit code.
func Execute(params ExecuteParams) int {
	rootApp.Version = params.Version
	rootApp.Compiled = params.Compiled

	return run(context.Background(), os.Args)
}

// run runs the app and returns the process exit code.
func run(ctx context.Context, args []string) int {
	err := rootApp.RunContext(ctx, args)

	// if app exited without error, return
	if err == nil {
		return 0
	}

	// if app exited with ExitError, exit with given exit code
	var exitErr *shell.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode
	}

	fmt.Fprintf(os.Stderr, "exit error: %s\n", err.Error())

	// otherwise, exit with exit code 1
	return 1
}

func createLogger(ctx *cli.Context) (*zap.Logger, error) {
	level := getLogLevelFromCLI(ctx)
	format := getLogFormatFromCLI(ctx)

	var config zap.Config
	if format == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	config.InitialFields = map[string]any{
		"app": appName,
	}

	config.Level = level

	return config.Build()
}

func getLogFormatFromCLI(ctx *cli.Context) string {
	format := ctx.String("log-format")
	if format != "" {
		return format
	}

	return "production"
}

func getLogLevelFromCLI(ctx *cli.Context) zap.AtomicLevel {
	lvl := ctx.String("log-level")

	if atom, err := zap.ParseAtomicLevel(lvl); err == nil {
		return atom
	}

	return zap.NewAtomicLevelAt(zap.InfoLevel)
}
