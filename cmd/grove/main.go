// Command grove wires the demo application through the grove container and
// exposes its plans: inspect prints them, serve runs the diagnostics server.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ARTM2000/grove"
	"github.com/ARTM2000/grove/config"
	"github.com/ARTM2000/grove/internal/demo"
)

type cli struct {
	rootCmd *cobra.Command

	configPath string
	envFiles   []string
	logLevel   string

	cfg *config.Config
	log *logrus.Logger
}

type command interface {
	registerFlags() *cobra.Command
	run(c *cli, cmd *cobra.Command, args []string) error
}

func newCLI() *cli {
	c := &cli{}
	c.rootCmd = &cobra.Command{
		Use:               "grove",
		Short:             "grove inspects and serves a dependency injection container",
		SilenceUsage:      true,
		PersistentPreRunE: c.load,
	}

	flags := c.rootCmd.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to a YAML config file")
	flags.StringSliceVar(&c.envFiles, "env", nil, ".env files loaded before GROVE_* variables")
	flags.StringVar(&c.logLevel, "log-level", "", "override the configured log level")

	c.addCmd(&inspectCmd{})
	c.addCmd(&serveCmd{})
	return c
}

func (c *cli) addCmd(cmd command) {
	cobraCmd := cmd.registerFlags()
	cobraCmd.RunE = func(innerCmd *cobra.Command, args []string) error {
		return cmd.run(c, innerCmd, args)
	}
	c.rootCmd.AddCommand(cobraCmd)
}

func (c *cli) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath, c.envFiles...)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}

	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	log.SetOutput(cmd.ErrOrStderr())
	c.cfg, c.log = cfg, log
	return nil
}

// provider builds the root provider for the demo application.
func (c *cli) provider() (*grove.Provider, error) {
	services := grove.NewServiceCollection()
	if err := demo.Register(services, c.log); err != nil {
		return nil, err
	}
	return grove.NewProvider(services, c.cfg.ProviderOptions(c.log)...)
}

func main() {
	if err := newCLI().rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
