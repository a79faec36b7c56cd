package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joestump/gqlboot/internal/app"
	"github.com/joestump/gqlboot/internal/config"
	"github.com/joestump/gqlboot/internal/graphql"
	"github.com/joestump/gqlboot/internal/logging"
)

// operationFile is the YAML shape read by query -f.
type operationFile struct {
	OperationName string         `yaml:"operationName"`
	Query         string         `yaml:"query"`
	Variables     map[string]any `yaml:"variables"`
}

type queryFlags struct {
	file        string
	query       string
	vars        string
	name        string
	fetchPolicy string
	errorPolicy string
}

func newQueryCmd() *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run one GraphQL operation and print its data as JSON",
		Long: "Run one GraphQL operation through the same link chain the server uses.\n" +
			"GraphQL errors are logged to stderr; data is printed to stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := f.operation()
			if err != nil {
				return err
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			client, err := app.NewClient(ctx, cfg, app.Options{
				Logger:   logging.NewWithWriter(cmd.ErrOrStderr(), level),
				ErrorLog: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			return runOperation(ctx, client, op, graphql.FetchPolicy(f.fetchPolicy), graphql.ErrorPolicy(f.errorPolicy), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&f.file, "file", "f", "", "YAML operation file (operationName, query, variables)")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "operation text")
	cmd.Flags().StringVar(&f.vars, "vars", "", "variables as a JSON object; merged over the file's variables")
	cmd.Flags().StringVar(&f.name, "name", "", "operation name")
	cmd.Flags().StringVar(&f.fetchPolicy, "policy", string(graphql.NetworkOnly), "fetch policy for queries")
	cmd.Flags().StringVar(&f.errorPolicy, "error-policy", string(graphql.ErrorPolicyNone), "error policy: none, ignore or all")
	cmd.MarkFlagsMutuallyExclusive("file", "query")
	cmd.MarkFlagsOneRequired("file", "query")
	return cmd
}

// operation assembles the operation from the file and flags.
func (f queryFlags) operation() (operationFile, error) {
	var op operationFile
	if f.file != "" {
		raw, err := os.ReadFile(f.file)
		if err != nil {
			return op, fmt.Errorf("read operation file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &op); err != nil {
			return op, fmt.Errorf("parse operation file %s: %w", f.file, err)
		}
	}
	if f.query != "" {
		op.Query = f.query
	}
	if f.name != "" {
		op.OperationName = f.name
	}
	if f.vars != "" {
		var vars map[string]any
		if err := json.Unmarshal([]byte(f.vars), &vars); err != nil {
			return op, fmt.Errorf("--vars must be a JSON object: %w", err)
		}
		if op.Variables == nil {
			op.Variables = map[string]any{}
		}
		for k, v := range vars {
			op.Variables[k] = v
		}
	}
	if strings.TrimSpace(op.Query) == "" {
		return op, fmt.Errorf("no operation text: use -q or a file with a query")
	}
	return op, nil
}

// runOperation sends op and writes the indented data to out.
func runOperation(ctx context.Context, c *graphql.Client, op operationFile, fp graphql.FetchPolicy, ep graphql.ErrorPolicy, out io.Writer) error {
	var (
		res *graphql.Result
		err error
	)
	if graphql.OperationKind(op.Query, op.OperationName) != graphql.OperationQuery {
		res, err = c.Mutate(ctx, graphql.MutateOptions{
			Mutation:      op.Query,
			Variables:     op.Variables,
			OperationName: op.OperationName,
			ErrorPolicy:   ep,
		})
	} else {
		res, err = c.Query(ctx, graphql.QueryOptions{
			Query:         op.Query,
			Variables:     op.Variables,
			OperationName: op.OperationName,
			FetchPolicy:   fp,
			ErrorPolicy:   ep,
		})
	}
	if err != nil {
		return err
	}

	var data any
	if len(res.Data) > 0 {
		if err := json.Unmarshal(res.Data, &data); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
