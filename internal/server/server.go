package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/metadata"

	authz "github.com/hanpama/gqlexpr/internal/authz"
	eventbus "github.com/hanpama/gqlexpr/internal/eventbus"
	events "github.com/hanpama/gqlexpr/internal/events"
	executor "github.com/hanpama/gqlexpr/internal/executor"
	language "github.com/hanpama/gqlexpr/internal/language"
	reqid "github.com/hanpama/gqlexpr/internal/reqid"
)

// RequestIDHeader is the metadata key carrying the request ID to services
// reached from resolvers.
const RequestIDHeader = "graphql-request-id"

// Handler serves GraphQL over HTTP for one executor.
type Handler struct {
	exec *executor.Executor
	opt  Options
}

type Options struct {
	// Timeout bounds requests whose context has no deadline. 0 disables it.
	Timeout time.Duration

	// Pretty indents JSON responses.
	Pretty bool

	// MaxBodyBytes limits POST bodies. 0 means unlimited.
	MaxBodyBytes int64

	// CORS is disabled while AllowedOrigins is empty.
	CORS CORSOptions

	// MetadataHeaders are copied, lower-cased, into outgoing gRPC metadata.
	MetadataHeaders []string

	GraphiQL bool

	// JWTSecret verifies HMAC signed bearer tokens. When empty the
	// Authorization header is ignored and every request is anonymous.
	JWTSecret []byte

	// RootValue is what the operation's root fields are read from.
	RootValue any
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option     { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                     { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option        { return func(o *Options) { o.MaxBodyBytes = n } }
func WithGraphiQL(enable bool) Option        { return func(o *Options) { o.GraphiQL = enable } }
func WithJWTSecret(secret []byte) Option     { return func(o *Options) { o.JWTSecret = secret } }
func WithRootValue(v any) Option             { return func(o *Options) { o.RootValue = v } }
func WithCORS(origins ...string) Option      { return func(o *Options) { o.CORS.AllowedOrigins = origins } }
func WithMetadataHeaders(h ...string) Option { return func(o *Options) { o.MetadataHeaders = h } }

// New returns a handler serving exec. Requests get a 10 second timeout and
// GraphiQL unless options say otherwise.
func New(exec *executor.Executor, opts ...Option) (*Handler, error) {
	if exec == nil {
		return nil, errors.New("server: executor is required")
	}
	op := Options{Timeout: 10 * time.Second, GraphiQL: true}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{exec: exec, opt: op}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}
	ctx, rid := reqid.NewContext(ctx)

	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{RequestID: rid, Request: r})
	status := h.serve(ctx, w, r, rid)
	eventbus.Publish(ctx, events.HTTPFinish{RequestID: rid, Request: r, Status: status, Duration: time.Since(start)})
}

// serve writes the response and returns its status code.
func (h *Handler) serve(ctx context.Context, w http.ResponseWriter, r *http.Request, rid string) int {
	h.opt.CORS.apply(w, r)
	out := responder{w: w, pretty: h.opt.Pretty}

	switch {
	case r.Method == http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return http.StatusNoContent
	case r.Method != http.MethodGet && r.Method != http.MethodPost:
		return out.write(http.StatusMethodNotAllowed, messageResult("method not allowed"))
	case h.wantsGraphiQL(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(graphiqlPage)
		return http.StatusOK
	}

	user, err := h.authenticate(r)
	if err != nil {
		log.WithField("request", rid).WithError(err).Debug("rejected bearer token")
		return out.write(http.StatusUnauthorized, codedResult(err.Error(), codeUnauthenticated))
	}
	if user != nil {
		ctx = authz.WithUser(ctx, user)
	}
	ctx = metadata.NewOutgoingContext(ctx, h.forwardedMetadata(r, rid))

	reqs, batched, err := decodeRequests(w, r, h.opt.MaxBodyBytes)
	if err != nil {
		var re *requestError
		if !errors.As(err, &re) {
			re = &requestError{status: http.StatusBadRequest, msg: err.Error()}
		}
		return out.write(re.status, messageResult(re.msg))
	}
	results := make([]wireResult, len(reqs))
	for i, req := range reqs {
		results[i] = h.execute(ctx, req)
	}
	if batched {
		return out.write(http.StatusOK, results)
	}
	return out.write(http.StatusOK, results[0])
}

func (h *Handler) wantsGraphiQL(r *http.Request) bool {
	if !h.opt.GraphiQL || r.Method != http.MethodGet || r.URL.Query().Get("query") != "" {
		return false
	}
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "text/html") || part == "*/*" {
			return true
		}
	}
	return false
}

// forwardedMetadata copies the configured headers and the request ID into
// gRPC metadata.
func (h *Handler) forwardedMetadata(r *http.Request, rid string) metadata.MD {
	md := metadata.Pairs(RequestIDHeader, rid)
	for _, name := range h.opt.MetadataHeaders {
		if values := r.Header.Values(name); len(values) > 0 {
			md.Set(strings.ToLower(name), values...)
		}
	}
	return md
}

// execute validates one request against the executor's schema and runs it.
func (h *Handler) execute(ctx context.Context, req Request) wireResult {
	var doc *language.QueryDocument
	if vs := h.exec.Schema().ValidationSchema(); vs != nil {
		var errs language.ErrorList
		if doc, errs = language.LoadQuery(vs, req.Query); len(errs) > 0 {
			return documentErrors(errs)
		}
	} else {
		var err error
		if doc, err = language.ParseQuery(req.Query); err != nil {
			var ge *language.Error
			if errors.As(err, &ge) {
				return documentErrors(language.ErrorList{ge})
			}
			return codedResult(err.Error(), codeParseFailed)
		}
	}
	return fromExecution(h.exec.ExecuteRequest(ctx, doc, req.OperationName, req.Variables, h.opt.RootValue))
}
