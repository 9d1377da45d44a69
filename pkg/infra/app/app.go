// Package app bootstraps a command line application with cobra, pflag and
// viper.
//
// Flags are the single source of truth. A config file (--config, or
// <name>.yaml in ., ./configs, ~/.<name> and /etc/<name>) and environment
// variables only fill flags that were not set on the command line. Config
// keys mirror flag names:
//
//	mongodb:
//	  uri: ${MONGODB_URI}
//	server:
//	  addr: ":8080"
//
// sets --mongodb.uri and --server.addr. The environment variable for a flag
// is the upper-cased application name followed by the flag name with dots
// and dashes turned into underscores, TREE_APP_MONGODB_URI for tree-app.
//
// Usage:
//
//	app.NewApp(
//	    app.WithName("tree-app"),
//	    app.WithOptions(opts),
//	    app.WithRunFunc(run),
//	).Run()
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/kart-io/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	options "github.com/kart-io/mongokit/pkg/app"
	"github.com/kart-io/mongokit/pkg/app/cliflag"
)

// App is a runnable command.
type App struct {
	name        string
	shortDesc   string
	description string
	options     options.CliOptions
	runFunc     RunFunc
	cmd         *cobra.Command
	viper       *viper.Viper
	noVersion   bool
	noConfig    bool
}

// RunFunc is the application's run function.
type RunFunc func() error

// Option configures an App.
type Option func(*App)

// WithName sets the application name, which is also the config file name
// and the environment prefix.
func WithName(name string) Option {
	return func(a *App) { a.name = name }
}

// WithShortDescription sets the short description.
func WithShortDescription(desc string) Option {
	return func(a *App) { a.shortDesc = desc }
}

// WithDescription sets the long description.
func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

// WithOptions sets the CLI options.
func WithOptions(opts options.CliOptions) Option {
	return func(a *App) { a.options = opts }
}

// WithRunFunc sets the run function.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithNoVersion disables the version flags.
func WithNoVersion() Option {
	return func(a *App) { a.noVersion = true }
}

// WithNoConfig disables config file and environment loading.
func WithNoConfig() Option {
	return func(a *App) { a.noConfig = true }
}

// NewApp creates an application.
func NewApp(opts ...Option) *App {
	a := &App{
		name:  filepath.Base(os.Args[0]),
		viper: viper.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.buildCommand()
	return a
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:          a.name,
		Short:        a.shortDesc,
		Long:         a.description,
		RunE:         a.runCommand,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	if !a.noConfig {
		cmd.PersistentFlags().StringP("config", "c", "", "Path to the config file.")
	}
	if !a.noVersion {
		version.AddFlags(cmd.PersistentFlags())
	}

	var fss cliflag.NamedFlagSets
	if a.options != nil {
		fss = a.options.Flags()
		for _, name := range fss.Order {
			cmd.Flags().AddFlagSet(fss.FlagSets[name])
		}
	}

	cmd.SetUsageFunc(func(c *cobra.Command) error {
		fmt.Fprintf(c.OutOrStderr(), "Usage:\n  %s [flags]\n", c.UseLine())
		cliflag.PrintSections(c.OutOrStderr(), fss)
		fmt.Fprintf(c.OutOrStderr(), "\nGlobal flags:\n\n%s", c.PersistentFlags().FlagUsages())
		return nil
	})
	cmd.SetHelpFunc(func(c *cobra.Command, _ []string) {
		if c.Long != "" {
			fmt.Fprintf(c.OutOrStdout(), "%s\n\n", c.Long)
		}
		_ = c.Usage()
	})

	a.cmd = cmd
}

func (a *App) runCommand(cmd *cobra.Command, _ []string) error {
	if !a.noVersion {
		version.PrintAndExitIfRequested()
	}

	if !a.noConfig {
		if err := a.loadConfig(cmd); err != nil {
			return err
		}
	}

	if a.options != nil {
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	if a.runFunc != nil {
		return a.runFunc()
	}
	return nil
}

// loadConfig reads the config file and the environment and copies every
// value it finds onto the flags the user did not set.
func (a *App) loadConfig(cmd *cobra.Command) error {
	v := a.viper

	configFile, _ := cmd.Flags().GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(a.name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, "."+a.name))
		}
		v.AddConfigPath("/etc/" + a.name)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix(a.name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var errs []string
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || reserved[f.Name] || !v.IsSet(f.Name) {
			return
		}
		if err := cmd.Flags().Set(f.Name, expandEnv(flagValue(v.Get(f.Name)))); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", f.Name, err))
		}
	})
	if len(errs) > 0 {
		return fmt.Errorf("apply config: %s", strings.Join(errs, "; "))
	}
	return nil
}

var reserved = map[string]bool{"config": true, "help": true, "version": true}

func envPrefix(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// flagValue renders a config value in the syntax pflag.Value.Set accepts.
// Lists become comma separated, maps become k=v pairs.
func flagValue(val interface{}) string {
	switch x := val.(type) {
	case []interface{}:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(x, ",")
	case map[string]interface{}:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + fmt.Sprint(x[k])
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} with the environment value. Unset variables are
// left as they are.
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(m string) string {
		if val, ok := os.LookupEnv(m[2 : len(m)-1]); ok {
			return val
		}
		return m
	})
}

// Run executes the application and exits with status 1 on error.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Command returns the cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}
