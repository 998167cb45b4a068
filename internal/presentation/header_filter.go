package presentation

import (
	"net/http"
	"sync"

	"github.com/janmbaco/go-webcontainer/internal/domain"
)

// HeaderFilter adds each of its init params as a response header.
type HeaderFilter struct {
	mu      sync.RWMutex
	headers domain.InitParams
}

func NewHeaderFilter() *HeaderFilter {
	return &HeaderFilter{}
}

func (f *HeaderFilter) Init(config domain.HandlerConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headers = append(domain.InitParams(nil), config.InitParams...)
	return nil
}

func (f *HeaderFilter) DoFilter(w http.ResponseWriter, r *http.Request, chain http.Handler) {
	f.mu.RLock()
	for _, header := range f.headers {
		w.Header().Set(header.Name, header.Value)
	}
	f.mu.RUnlock()
	chain.ServeHTTP(w, r)
}
