package builder

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/janmbaco/go-webcontainer/internal/domain"
	"github.com/jinzhu/copier"
)

type registration struct {
	info    domain.RegistrationInfo
	release domain.ReleaseFunc
}

// registry is the stack of registrations applied while building a topology.
type registry struct {
	mutex   sync.RWMutex
	entries []*registration
}

func (r *registry) push(n *domain.Node, description string, release domain.ReleaseFunc) string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if description == "" {
		description = n.Describe()
	}
	info := domain.RegistrationInfo{
		ID:          uuid.NewString(),
		Kind:        n.Kind,
		Description: description,
	}
	info.Path, _, _ = n.StringAttr(domain.AttrPath)
	paramsKey := domain.AttrInitParams
	if n.Kind == domain.KindContext {
		paramsKey = domain.AttrContextParams
	}
	info.Params, _, _ = n.InitParamsAttr(paramsKey)
	entry := &registration{info: clone(info), release: release}
	r.entries = append(r.entries, entry)
	return entry.info.ID
}

// unwind releases every registration not yet released, newest first.
// Every release is attempted; failures are logged and joined.
func (r *registry) unwind(logger domain.Logger) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		entry := r.entries[i]
		if entry.info.Released {
			continue
		}
		entry.info.Released = true
		if entry.release == nil {
			continue
		}
		if err := entry.release(); err != nil {
			err = fmt.Errorf("releasing %v: %w", entry.info.Description, err)
			logger.Error(err.Error())
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *registry) pending() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	count := 0
	for _, entry := range r.entries {
		if !entry.info.Released {
			count++
		}
	}
	return count
}

// snapshot returns a copy of the registrations in construction order.
func (r *registry) snapshot() []domain.RegistrationInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	infos := make([]domain.RegistrationInfo, 0, len(r.entries))
	for _, entry := range r.entries {
		infos = append(infos, clone(entry.info))
	}
	return infos
}

// clone deep copies info so callers never share params with the tree or the registry.
// Params are dropped if they cannot be copied.
func clone(info domain.RegistrationInfo) domain.RegistrationInfo {
	copied := domain.RegistrationInfo{}
	if err := copier.CopyWithOption(&copied, &info, copier.Option{DeepCopy: true}); err != nil {
		copied = info
		copied.Params = nil
	}
	return copied
}
