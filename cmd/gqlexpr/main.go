// Command gqlexpr serves and inspects the demo GraphQL API.
//
//	gqlexpr serve  [flags]          run the HTTP GraphQL endpoint
//	gqlexpr sdl    [-o file]        print the schema as SDL
//	gqlexpr query  [flags] <query>  execute one operation and print the result
//
// Every flag can also be set in a config file (--config) or through a
// GQLEXPR_ environment variable, e.g. GQLEXPR_SERVER_ADDR for --server.addr.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	config "github.com/hanpama/gqlexpr/internal/config"
	demo "github.com/hanpama/gqlexpr/internal/demo"
)

func main() {
	if err := newRootCmd(config.New()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cli carries the viper instance flags are bound to and the config loaded
// from it before a subcommand runs.
type cli struct {
	v          *viper.Viper
	configFile string
	cfg        *config.Config
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	c := &cli{v: v}
	root := &cobra.Command{
		Use:           "gqlexpr",
		Short:         "GraphQL queries compiled to expression trees",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.v, c.configFile)
			if err != nil {
				return err
			}
			if err := cfg.ApplyLogging(); err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (yaml, json or toml)")
	c.bind(root.PersistentFlags(), func(fs *pflag.FlagSet) {
		fs.String("log.level", "info", "log level: trace, debug, info, warn or error")
		fs.String("log.format", "text", "log format: text or json")
		fs.String("datasource.sqlite", "", "SQLite DSN; empty serves the data from memory")
		fs.String("authz.policy", "", "casbin policy CSV file")
		fs.Bool("execution.separate-service-fields", true, "resolve service fields in a second phase")
		fs.Bool("execution.debug-info", false, "add execution timings to result extensions")
		fs.Bool("graphql.introspection", true, "serve __schema and __type")
	})

	root.AddCommand(c.serveCmd(), c.sdlCmd(), c.queryCmd())
	return root
}

// bind declares flags with define and binds each one to the viper key of
// the same name.
func (c *cli) bind(fs *pflag.FlagSet, define func(*pflag.FlagSet)) {
	define(fs)
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		_ = c.v.BindPFlag(f.Name, f)
	})
}

func (c *cli) demoOptions() demo.Options {
	return demo.Options{
		SQLiteDSN:     c.cfg.Data.SQLite,
		PolicyFile:    c.cfg.Authz.Policy,
		Execution:     c.cfg.Execution.Options(),
		Introspection: c.cfg.GraphQL.Introspection,
	}
}
