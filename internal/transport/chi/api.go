package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface is the HTTP surface of the search service.
type ServerInterface interface {
	// (GET /search)
	Search(w http.ResponseWriter, r *http.Request, params SearchParams)
	// (POST /search)
	SearchPost(w http.ResponseWriter, r *http.Request)
	// (GET /similar/{record_id})
	Similar(w http.ResponseWriter, r *http.Request, recordID string, params SimilarParams)
	// (GET /passages)
	Passages(w http.ResponseWriter, r *http.Request, params PassagesParams)
	// (GET /status)
	Status(w http.ResponseWriter, r *http.Request)
	// (GET /health)
	Health(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// SearchParams are the query parameters of GET /search. Query is q, or query as a fallback.
type SearchParams struct {
	Q              *string
	Query          *string
	Limit          *int
	Summaries      *bool
	Passages       *bool
	SemanticWeight *float64
	MetadataWeight *float64
}

// SimilarParams are the query parameters of GET /similar/{record_id}.
type SimilarParams struct {
	Limit *int
}

// PassagesParams are the query parameters of GET /passages.
type PassagesParams struct {
	Q     *string
	Limit *int
}

// ParamError is a parameter that failed to bind.
type ParamError struct {
	Name string
	Err  error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %v", e.Name, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// MiddlewareFunc wraps a single route handler.
type MiddlewareFunc func(http.Handler) http.Handler

// ServerInterfaceWrapper binds parameters and dispatches to the handler.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

// queryParam is one optional form-style query parameter.
type queryParam struct {
	name string
	dest any
}

func (siw *ServerInterfaceWrapper) bindQuery(w http.ResponseWriter, r *http.Request, params ...queryParam) bool {
	q := r.URL.Query()
	for _, p := range params {
		if err := runtime.BindQueryParameter("form", true, false, p.name, q, p.dest); err != nil {
			siw.ErrorHandlerFunc(w, r, &ParamError{Name: p.name, Err: err})
			return false
		}
	}
	return true
}

func (siw *ServerInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, h http.Handler) {
	for _, m := range siw.HandlerMiddlewares {
		h = m(h)
	}
	h.ServeHTTP(w, r)
}

// Search operation middleware
func (siw *ServerInterfaceWrapper) Search(w http.ResponseWriter, r *http.Request) {
	var params SearchParams
	if !siw.bindQuery(w, r,
		queryParam{"q", &params.Q},
		queryParam{"query", &params.Query},
		queryParam{"limit", &params.Limit},
		queryParam{"summaries", &params.Summaries},
		queryParam{"passages", &params.Passages},
		queryParam{"semantic_weight", &params.SemanticWeight},
		queryParam{"metadata_weight", &params.MetadataWeight},
	) {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.Search(w, r, params)
	}))
}

// SearchPost operation middleware
func (siw *ServerInterfaceWrapper) SearchPost(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.SearchPost))
}

// Similar operation middleware
func (siw *ServerInterfaceWrapper) Similar(w http.ResponseWriter, r *http.Request) {
	var recordID string
	err := runtime.BindStyledParameterWithOptions("simple", "record_id", chi.URLParam(r, "record_id"), &recordID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &ParamError{Name: "record_id", Err: err})
		return
	}

	var params SimilarParams
	if !siw.bindQuery(w, r, queryParam{"limit", &params.Limit}) {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.Similar(w, r, recordID, params)
	}))
}

// Passages operation middleware
func (siw *ServerInterfaceWrapper) Passages(w http.ResponseWriter, r *http.Request) {
	var params PassagesParams
	if !siw.bindQuery(w, r, queryParam{"q", &params.Q}, queryParam{"limit", &params.Limit}) {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.Passages(w, r, params)
	}))
}

// Status operation middleware
func (siw *ServerInterfaceWrapper) Status(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.Status))
}

// Health operation middleware
func (siw *ServerInterfaceWrapper) Health(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.Health))
}

// Metrics operation middleware
func (siw *ServerInterfaceWrapper) Metrics(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.Handler.Metrics))
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions mounts every route of si on the base router.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/search", wrapper.Search)
		r.Post(options.BaseURL+"/search", wrapper.SearchPost)
		r.Get(options.BaseURL+"/similar/{record_id}", wrapper.Similar)
		r.Get(options.BaseURL+"/passages", wrapper.Passages)
		r.Get(options.BaseURL+"/status", wrapper.Status)
		r.Get(options.BaseURL+"/health", wrapper.Health)
		r.Get(options.BaseURL+"/metrics", wrapper.Metrics)
	})
	return r
}
