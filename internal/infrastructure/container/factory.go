package container

import (
	"reflect"

	"github.com/janmbaco/go-webcontainer/internal/domain"
)

// LoggerKey is the key the logger is registered under in every root scope.
var LoggerKey = reflect.TypeOf((*domain.Logger)(nil)).Elem()

type scopeFactory struct {
	logger domain.Logger
}

// NewScopeFactory creates root scopes that expose logger to the components they build.
func NewScopeFactory(logger domain.Logger) domain.ScopeFactory {
	return &scopeFactory{logger: logger}
}

func (f *scopeFactory) NewScope() (domain.Scope, error) {
	s := NewScope()
	if f.logger != nil {
		if err := s.RegisterInstance(LoggerKey, f.logger); err != nil {
			return nil, err
		}
	}
	return s, nil
}
