package webserver

import (
	"fmt"
	"net/http"

	"github.com/janmbaco/go-webcontainer/internal/domain"
	"github.com/janmbaco/go-webcontainer/internal/infrastructure/grpcutil"
	"google.golang.org/grpc"
)

// servletHandler adapts the values a servlet mapping accepts to an http.Handler.
func servletHandler(servlet any) (http.Handler, error) {
	switch s := servlet.(type) {
	case *grpc.Server:
		return grpcutil.NewHandler(s), nil
	case http.Handler:
		return s, nil
	case func(http.ResponseWriter, *http.Request):
		return http.HandlerFunc(s), nil
	case nil:
		return nil, fmt.Errorf("servlet cannot be nil")
	}
	return nil, fmt.Errorf("%T cannot be used as a servlet", servlet)
}

// filterOf adapts the values a filter mapping accepts to a domain.Filter.
func filterOf(filter any) (domain.Filter, error) {
	switch f := filter.(type) {
	case domain.Filter:
		return f, nil
	case func(http.ResponseWriter, *http.Request, http.Handler):
		return domain.FilterFunc(f), nil
	case func(http.Handler) http.Handler:
		return domain.FilterFunc(func(w http.ResponseWriter, r *http.Request, chain http.Handler) {
			f(chain).ServeHTTP(w, r)
		}), nil
	case nil:
		return nil, fmt.Errorf("filter cannot be nil")
	}
	return nil, fmt.Errorf("%T cannot be used as a filter", filter)
}
