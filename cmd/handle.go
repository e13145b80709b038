package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/lambda-feedback/bgstrip/app"
	"github.com/lambda-feedback/bgstrip/imaging"
	"github.com/lambda-feedback/bgstrip/runtime"
	"github.com/lambda-feedback/bgstrip/util/logging"
	"github.com/urfave/cli/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	handleCmdDescription = `The handle command removes the background of a single image
and exits. The input image is read from the file given as
the first argument, or from stdin if the argument is "-" or
missing.

With --output, the resulting png is written to the given file.
Otherwise, the full JSON response is written to stdout, exactly
as it would be returned to an AWS Lambda invocation.`
	handleCmd = &cli.Command{
		Name:        "handle",
		Usage:       "Process a single image and exit.",
		ArgsUsage:   "[input]",
		Description: handleCmdDescription,
		Action:      handleAction,
		Flags: []cli.Flag{
			&cli.PathFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write the resulting png to this file.",
			},
		},
	}
)

var errHandleFailed = errors.New("failed to process image")

func handleAction(ctx *cli.Context) error {
	log, err := logging.LoggerFromContext(ctx.Context)
	if err != nil {
		return err
	}

	input, err := readInput(ctx.Args().First())
	if err != nil {
		return err
	}

	app, err := app.New(ctx)
	if err != nil {
		return err
	}

	output := ctx.Path("output")

	return app.Run(ctx.Context, fx.Invoke(func(lc fx.Lifecycle, h runtime.Handler, sd fx.Shutdowner) {
		lc.Append(fx.StartHook(func() {
			go func() {
				code := 0
				if err := handleOnce(ctx.Context, h, input, output, os.Stdout); err != nil {
					log.Error("handle failed", zap.Error(err))
					code = 1
				}

				_ = sd.Shutdown(fx.ExitCode(code))
			}()
		}))
	}))
}

// handleOnce runs a single request for image and writes either the
// png to output or the JSON response to w.
func handleOnce(ctx context.Context, h runtime.Handler, image []byte, output string, w io.Writer) error {
	body, err := json.Marshal(runtime.Payload{Image: base64.StdEncoding.EncodeToString(image)})
	if err != nil {
		return err
	}

	res := h.Handle(ctx, runtime.Request{Method: http.MethodPost, Body: body})

	if output == "" {
		if err := json.NewEncoder(w).Encode(res); err != nil {
			return err
		}
	}

	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", errHandleFailed, res.Body["error"])
	}

	if output == "" {
		return nil
	}

	data, err := imaging.DecodeBase64(imaging.StripDataURI(res.Body["image"]))
	if err != nil {
		return err
	}

	return os.WriteFile(output, data, 0o644)
}

func readInput(name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(os.Stdin)
	}

	return os.ReadFile(name)
}

func init() {
	rootApp.Commands = append(rootApp.Commands, handleCmd)
}
