package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/containerd/log"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/landing-server/app/internal/config"
	"github.com/landing-server/app/internal/server"
)

type serverOptions struct {
	envFile         string
	port            string
	publicDir       string
	viewsDir        string
	landing         string
	landingTemplate string
	landingFile     string
	cacheViews      bool
	logLevel        string
	logFormat       string
}

func newServerCommand() *cobra.Command {
	var opts serverOptions

	cmd := &cobra.Command{
		Use:           "server [OPTIONS]",
		Short:         "Serve a static directory and a landing page",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.config(cmd.Flags())
			if err != nil {
				return err
			}
			if err := setupLogging(opts.logLevel, opts.logFormat); err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg)
		},
	}

	installFlags(cmd.Flags(), &opts)
	return cmd
}

func installFlags(flags *pflag.FlagSet, opts *serverOptions) {
	defaults := config.Default()

	flags.StringVar(&opts.envFile, "env-file", config.DefaultEnvFile, "Load environment variables from this file if it exists")
	flags.StringVarP(&opts.port, "port", "p", "", "Port to listen on (default $PORT, then 3000)")
	flags.StringVar(&opts.publicDir, "public-dir", defaults.PublicDir, "Directory of static files")
	flags.StringVar(&opts.viewsDir, "views-dir", defaults.ViewsDir, "Directory of templates")
	flags.StringVar(&opts.landing, "landing", string(defaults.Landing), `Landing page for "/": "template" or "file"`)
	flags.StringVar(&opts.landingTemplate, "landing-template", defaults.LandingTemplate, "Template rendered for the landing page")
	flags.StringVar(&opts.landingFile, "landing-file", defaults.LandingFile, "HTML file served for the landing page")
	flags.BoolVar(&opts.cacheViews, "cache-views", false, "Parse templates once (default true when APP_ENV=production)")
	flags.StringVarP(&opts.logLevel, "log-level", "l", "info", `Set the logging level ("trace"|"debug"|"info"|"warn"|"error"|"fatal"|"panic")`)
	flags.StringVar(&opts.logFormat, "log-format", string(log.TextFormat), `Set the logging format ("text"|"json")`)
}

// config resolves the options into a Config. Flags that were set explicitly
// win over the environment, which wins over the defaults.
func (opts *serverOptions) config(flags *pflag.FlagSet) (config.Config, error) {
	if err := config.LoadEnvFile(opts.envFile); err != nil {
		return config.Config{}, err
	}

	cfg := config.FromEnv()
	if flags.Changed("port") {
		cfg.Port = config.ParsePort(opts.port)
	}
	if flags.Changed("cache-views") {
		cfg.CacheViews = opts.cacheViews
	}

	variant, err := config.ParseVariant(opts.landing)
	if err != nil {
		return config.Config{}, err
	}
	cfg.Landing = variant
	cfg.PublicDir = opts.publicDir
	cfg.ViewsDir = opts.viewsDir
	cfg.LandingTemplate = opts.landingTemplate
	cfg.LandingFile = opts.landingFile

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func setupLogging(level, format string) error {
	if err := log.SetLevel(level); err != nil {
		return errors.Wrapf(err, "unable to parse logging level: %s", level)
	}
	if err := log.SetFormat(log.OutputFormat(format)); err != nil {
		return errors.Wrapf(err, "unable to set logging format: %s", format)
	}
	return nil
}

func runServer(ctx context.Context, cfg config.Config) error {
	s, err := server.New(cfg)
	if err != nil {
		return err
	}
	return s.ListenAndServe(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.L.Logger.SetOutput(os.Stderr)

	cmd := newServerCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		stop()
		os.Exit(1)
	}
}
