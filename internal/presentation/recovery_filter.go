package presentation

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/janmbaco/go-webcontainer/internal/domain"
)

// RecoveryFilter turns a panic further down the chain into a 500 response.
type RecoveryFilter struct {
	logger domain.Logger
}

func NewRecoveryFilter(logger domain.Logger) *RecoveryFilter {
	return &RecoveryFilter{logger: logger}
}

func (f *RecoveryFilter) DoFilter(w http.ResponseWriter, r *http.Request, chain http.Handler) {
	defer func() {
		if err := recover(); err != nil {
			if err == http.ErrAbortHandler {
				panic(err)
			}
			f.logger.Error(fmt.Sprintf("Panic recovered in %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack()))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}()

	chain.ServeHTTP(w, r)
}
