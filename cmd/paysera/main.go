package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/paysera-adapter/internal/app"
	"github.com/noah-isme/paysera-adapter/internal/config"
	"github.com/noah-isme/paysera-adapter/internal/obs"
	"github.com/noah-isme/paysera-adapter/internal/paysera"
)

const usage = `usage: paysera <command> [args]

commands:
  redirect key=value...   print a signed redirect URL
  signed key=value...     print signed request parameters as JSON
  verify <query>          validate a callback query string and print its outcome
  status <code>           print the coarse outcome and description for a status code
`

// Exit code 0 = ok, 1 = rejected input, 2 = configuration or usage error.
func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("paysera", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	if cmd == "status" {
		return runStatus(rest, stdout, stderr)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "paysera: %v\n", err)
		return 2
	}
	logger := obs.NewLoggerTo(stderr, cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	if cfg.TracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   "paysera-cli",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      cfg.TracingExporter,
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	deps, err := app.Build(ctx, cfg, logger, nil)
	if err != nil {
		fmt.Fprintf(stderr, "paysera: %v\n", err)
		return 2
	}
	defer func() { _ = deps.Close() }()

	switch cmd {
	case "redirect":
		return runRedirect(ctx, deps, rest, stdout, stderr)
	case "signed":
		return runSigned(ctx, deps, rest, stdout, stderr)
	case "verify":
		return runVerify(ctx, deps, rest, stdout, stderr, logger)
	default:
		fs.Usage()
		return 2
	}
}

func runRedirect(ctx context.Context, deps *app.Dependencies, args []string, stdout, stderr io.Writer) int {
	params, err := parsePairs(args)
	if err != nil {
		fmt.Fprintf(stderr, "paysera: %v\n", err)
		return 2
	}
	redirect, err := deps.Client.BuildRedirectURL(ctx, params)
	if err != nil {
		fmt.Fprintf(stderr, "paysera: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, redirect)
	return 0
}

func runSigned(ctx context.Context, deps *app.Dependencies, args []string, stdout, stderr io.Writer) int {
	params, err := parsePairs(args)
	if err != nil {
		fmt.Fprintf(stderr, "paysera: %v\n", err)
		return 2
	}
	signed, err := deps.Client.BuildSignedRequest(ctx, params)
	if err != nil {
		fmt.Fprintf(stderr, "paysera: %v\n", err)
		return 1
	}
	return writeJSON(stdout, stderr, signed)
}

func runVerify(ctx context.Context, deps *app.Dependencies, args []string, stdout, stderr io.Writer, logger zerolog.Logger) int {
	if len(args) != 1 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	query, err := url.ParseQuery(strings.TrimPrefix(args[0], "?"))
	if err != nil {
		fmt.Fprintf(stderr, "paysera: parse query: %v\n", err)
		return 2
	}
	res, err := deps.Callbacks.Process(ctx, query)
	if err != nil {
		fmt.Fprintf(stderr, "paysera: %v\n", err)
		return 1
	}
	logger.Debug().Str("callback_id", res.ID.String()).Msg("callback_verified")
	return writeJSON(stdout, stderr, map[string]any{
		"id":          res.ID.String(),
		"orderid":     res.OrderID,
		"outcome":     res.Outcome,
		"description": res.Description,
		"params":      res.Params,
	})
}

func runStatus(args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	payload := paysera.Params{paysera.KeyStatus: args[0]}
	fmt.Fprintf(stdout, "%s\t%s\n", paysera.MapStatus(payload), paysera.DescribeStatus(payload))
	return 0
}

func parsePairs(args []string) (paysera.Params, error) {
	params := make(paysera.Params, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.New("expected key=value, got " + arg)
		}
		params[key] = value
	}
	return params, nil
}

func writeJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "paysera: %v\n", err)
		return 1
	}
	return 0
}
