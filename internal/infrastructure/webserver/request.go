package webserver

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/janmbaco/go-webcontainer/internal/domain"
)

type requestInfoKey struct{}

// RequestInfo describes how a request was dispatched within a context.
type RequestInfo struct {
	ContextPath string
	ServletPath string
	PathInfo    string
	Dispatch    domain.DispatchType
	context     *webContext
}

// PathInContext returns the request path relative to its context.
func (i RequestInfo) PathInContext() string {
	return i.ServletPath + i.PathInfo
}

// Info returns the dispatch information of a request served by a context.
func Info(r *http.Request) (RequestInfo, bool) {
	info, ok := r.Context().Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}

func withInfo(r *http.Request, info RequestInfo) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), requestInfoKey{}, info))
}

// Forward dispatches the request to target, a path relative to the current context.
// Filters mapped for the FORWARD dispatch apply.
func Forward(w http.ResponseWriter, r *http.Request, target string) error {
	return dispatch(w, r, target, domain.DispatchForward)
}

// Include dispatches the request to target and appends its body to the current response.
// Status and headers set by target are ignored.
func Include(w http.ResponseWriter, r *http.Request, target string) error {
	return dispatch(&includeWriter{ResponseWriter: w}, r, target, domain.DispatchInclude)
}

func dispatch(w http.ResponseWriter, r *http.Request, target string, mode domain.DispatchType) error {
	info, ok := Info(r)
	if !ok {
		return errors.New("request was not dispatched by a web context")
	}
	relative, query, _ := strings.Cut(target, "?")
	if !strings.HasPrefix(relative, "/") {
		relative = path.Join(path.Dir(info.PathInContext()), relative)
	}
	clone := r.Clone(r.Context())
	clone.URL = &url.URL{Path: joinPath(info.ContextPath, relative), RawQuery: query}
	if query == "" {
		clone.URL.RawQuery = r.URL.RawQuery
	}
	clone.RequestURI = clone.URL.RequestURI()
	info.context.handle(w, clone, relative, mode)
	return nil
}

func joinPath(contextPath string, relative string) string {
	if contextPath == "/" {
		return relative
	}
	return contextPath + relative
}

type includeWriter struct {
	http.ResponseWriter
}

func (w *includeWriter) WriteHeader(int) {}

func (w *includeWriter) Header() http.Header {
	return http.Header{}
}
