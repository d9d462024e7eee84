package demo

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/metadata"

	authz "github.com/hanpama/gqlexpr/internal/authz"
	compilectx "github.com/hanpama/gqlexpr/internal/compilectx"
	memory "github.com/hanpama/gqlexpr/internal/datasource/memory"
	executor "github.com/hanpama/gqlexpr/internal/executor"
	introspection "github.com/hanpama/gqlexpr/internal/introspection"
	server "github.com/hanpama/gqlexpr/internal/server"
	services "github.com/hanpama/gqlexpr/internal/services"
)

type Options struct {
	// SQLiteDSN selects the SQLite source. Empty serves the data from
	// memory.
	SQLiteDSN string
	// PolicyFile holds casbin rules on top of the built-in grant of
	// SalaryPolicy to the hr role.
	PolicyFile string
	// Year is the reference year of the ages service. Zero uses the
	// current year.
	Year          int
	Execution     compilectx.Options
	Introspection bool
}

// App is an executor over the demo data and the root value to run it with.
type App struct {
	Executor *executor.Executor
	Root     any
	close    func() error
}

func (a *App) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}

// Services registers the ages service. Each execution gets its own
// instance, tagged with the request ID the server forwarded as outgoing
// metadata.
func Services(year int) *services.Registry {
	return services.NewRegistry().Register("ages", func(ctx context.Context) (any, error) {
		y := year
		if y == 0 {
			y = time.Now().Year()
		}
		svc := &AgeService{Year: y}
		if md, ok := metadata.FromOutgoingContext(ctx); ok {
			if ids := md.Get(server.RequestIDHeader); len(ids) > 0 {
				svc.RequestID = ids[0]
			}
		}
		return svc, nil
	})
}

// Authorizer loads policyFile and grants SalaryPolicy to the hr role.
func Authorizer(policyFile string) (*authz.PolicyAuthorizer, error) {
	a, err := authz.NewPolicyAuthorizer(policyFile)
	if err != nil {
		return nil, err
	}
	if err := a.Grant("hr", SalaryPolicy); err != nil {
		return nil, err
	}
	return a, nil
}

func New(ctx context.Context, opts Options) (*App, error) {
	s, err := NewSchema()
	if err != nil {
		return nil, err
	}
	a, err := Authorizer(opts.PolicyFile)
	if err != nil {
		return nil, err
	}
	execOpts := []executor.Option{
		executor.WithServices(Services(opts.Year)),
		executor.WithAuthorizer(a),
		executor.WithExecutionOptions(opts.Execution),
	}
	if opts.Introspection {
		execOpts = append(execOpts, executor.WithMetaSchema(introspection.NewMetaSchema(s)))
	}

	if opts.SQLiteDSN == "" {
		log.Info("serving demo data from memory")
		return &App{
			Executor: executor.NewExecutor(memory.New(), s, execOpts...),
			Root:     MemoryRoot(),
		}, nil
	}

	if !opts.Execution.ExecuteServiceFieldsSeparately {
		return nil, errors.New("the sqlite data source requires service fields to execute separately")
	}
	src, err := OpenSQLite(ctx, opts.SQLiteDSN)
	if err != nil {
		return nil, err
	}
	log.WithField("dsn", opts.SQLiteDSN).Info("serving demo data from sqlite")
	return &App{
		Executor: executor.NewExecutor(src, s, execOpts...),
		Root:     src,
		close:    src.Close,
	}, nil
}
