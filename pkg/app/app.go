package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cliflag "k8s.io/component-base/cli/flag"

	"github.com/autopeer-io/paramsync/pkg/log"
)

// NamedFlagSetOptions is implemented by every command's option struct.
type NamedFlagSetOptions interface {
	// Flags returns the grouped flag sets of the command.
	Flags() cliflag.NamedFlagSets

	// Complete fills in derived fields after flags and config are parsed.
	Complete() error

	// Validate checks the completed options.
	Validate() error
}

// RunFunc is the entry point of a command once options are loaded.
type RunFunc func() error

// ReloadFunc is invoked after the watched config file changed and was re-read.
type ReloadFunc func(v *viper.Viper)

// App wraps a cobra command with config file, environment and flag loading.
type App struct {
	name        string
	shortDesc   string
	description string
	options     NamedFlagSetOptions
	runFunc     RunFunc
	reloadFunc  ReloadFunc
	args        cobra.PositionalArgs
	subCommands []*cobra.Command

	viper *viper.Viper
	cmd   *cobra.Command
}

// Option configures an App.
type Option func(*App)

func WithDescription(desc string) Option {
	return func(a *App) { a.description = desc }
}

func WithOptions(opts NamedFlagSetOptions) Option {
	return func(a *App) { a.options = opts }
}

func WithRunFunc(run RunFunc) Option {
	return func(a *App) { a.runFunc = run }
}

// WithConfigReload registers fn to be called when the config file changes.
func WithConfigReload(fn ReloadFunc) Option {
	return func(a *App) { a.reloadFunc = fn }
}

// WithDefaultValidArgs rejects positional arguments.
func WithDefaultValidArgs() Option {
	return func(a *App) {
		a.args = func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if len(arg) > 0 {
					return fmt.Errorf("%q does not take any arguments, got %q", cmd.CommandPath(), args)
				}
			}
			return nil
		}
	}
}

// WithSubCommands attaches extra cobra commands. They share the root's persistent flags.
func WithSubCommands(cmds ...*cobra.Command) Option {
	return func(a *App) { a.subCommands = append(a.subCommands, cmds...) }
}

// NewApp builds the cobra command tree for name.
func NewApp(name, shortDesc string, opts ...Option) *App {
	a := &App{
		name:      name,
		shortDesc: shortDesc,
		viper:     viper.New(),
	}
	for _, o := range opts {
		o(a)
	}
	a.buildCommand()
	return a
}

// Command returns the root cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}

// Viper returns the configuration registry backing the command flags.
func (a *App) Viper() *viper.Viper {
	return a.viper
}

// Run executes the command and exits the process on failure.
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:           a.name,
		Short:         a.shortDesc,
		Long:          a.description,
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          a.args,
	}

	var configFile string
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a YAML config file. Flags override file values.")

	if a.options != nil {
		fs := cmd.PersistentFlags()
		namedfs := a.options.Flags()
		for _, f := range namedfs.FlagSets {
			fs.AddFlagSet(f)
		}
		cmd.SetUsageFunc(func(c *cobra.Command) error {
			fmt.Fprintf(c.OutOrStderr(), "Usage:\n  %s\n", c.UseLine())
			cliflag.PrintSections(c.OutOrStderr(), namedfs, 0)
			return nil
		})
	}

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		return a.loadConfig(c, configFile)
	}

	if a.runFunc != nil {
		cmd.RunE = func(*cobra.Command, []string) error {
			return a.runFunc()
		}
	}

	cmd.AddCommand(a.subCommands...)
	a.cmd = cmd
}

func (a *App) loadConfig(cmd *cobra.Command, configFile string) error {
	v := a.viper
	v.SetEnvPrefix(strings.ToUpper(strings.ReplaceAll(a.name, "-", "_")))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		if a.reloadFunc != nil {
			v.OnConfigChange(func(e fsnotify.Event) {
				if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
					return
				}
				log.Info("Config file changed, reloading", "file", e.Name, "op", e.Op.String())
				a.reloadFunc(v)
			})
			v.WatchConfig()
		}
	}

	if a.options == nil {
		return nil
	}

	if err := v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := a.options.Complete(); err != nil {
		return err
	}
	return a.options.Validate()
}
