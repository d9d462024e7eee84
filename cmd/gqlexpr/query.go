package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	authz "github.com/hanpama/gqlexpr/internal/authz"
	demo "github.com/hanpama/gqlexpr/internal/demo"
	language "github.com/hanpama/gqlexpr/internal/language"
	schema "github.com/hanpama/gqlexpr/internal/schema"
)

func (c *cli) sdlCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "sdl",
		Short: "Print the schema as SDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := demo.NewSchema()
			if err != nil {
				return err
			}
			sdl := schema.Render(s)
			if out == "" {
				_, err := fmt.Fprint(cmd.OutOrStdout(), sdl)
				return err
			}
			return os.WriteFile(out, []byte(sdl), 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the SDL to a file instead of stdout")
	return cmd
}

func (c *cli) queryCmd() *cobra.Command {
	var (
		file      string
		operation string
		variables string
		user      string
		roles     []string
	)
	cmd := &cobra.Command{
		Use:   "query [document]",
		Short: "Execute one operation against the demo data and print the result",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var source string
			switch {
			case len(args) == 1:
				source = args[0]
			case file != "":
				b, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				source = string(b)
			default:
				return errors.New("a document argument or --file is required")
			}
			var vars map[string]any
			if variables != "" {
				if err := json.Unmarshal([]byte(variables), &vars); err != nil {
					return fmt.Errorf("parse --variables: %w", err)
				}
			}

			ctx := cmd.Context()
			app, err := demo.New(ctx, c.demoOptions())
			if err != nil {
				return err
			}
			defer app.Close()

			doc, errs := language.LoadQuery(app.Executor.Schema().ValidationSchema(), source)
			if len(errs) > 0 {
				return errs
			}
			if user != "" {
				ctx = authz.WithUser(ctx, &authz.User{ID: user, Roles: roles})
			}
			res := app.Executor.ExecuteRequest(ctx, doc, operation, vars, app.Root)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&file, "file", "f", "", "read the document from a file")
	fs.StringVar(&operation, "operation", "", "operation name")
	fs.StringVar(&variables, "variables", "", "variables as a JSON object")
	fs.StringVar(&user, "user", "", "execute as this user ID")
	fs.StringSliceVar(&roles, "role", nil, "role of --user; repeatable")
	return cmd
}
