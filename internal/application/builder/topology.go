package builder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/janmbaco/go-webcontainer/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Topology is a built set of servers together with the registrations that compose them.
type Topology struct {
	logger          domain.Logger
	shutdownTimeout time.Duration
	registry        registry

	mutex   sync.RWMutex
	state   domain.TopologyState
	scope   domain.Scope
	servers []domain.Server
}

func newTopology(logger domain.Logger, shutdownTimeout time.Duration) *Topology {
	return &Topology{logger: logger, shutdownTimeout: shutdownTimeout, state: domain.StateBuilding}
}

// State returns the lifecycle state of the topology.
func (t *Topology) State() domain.TopologyState {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.state
}

// Scope returns the root DI scope of the topology.
func (t *Topology) Scope() domain.Scope {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return t.scope
}

// Servers returns the servers in declaration order.
func (t *Topology) Servers() []domain.Server {
	t.mutex.RLock()
	defer t.mutex.RUnlock()
	return append([]domain.Server(nil), t.servers...)
}

// Addrs returns the addresses every server listens on.
func (t *Topology) Addrs() []net.Addr {
	var addrs []net.Addr
	for _, server := range t.Servers() {
		addrs = append(addrs, server.Addrs()...)
	}
	return addrs
}

// Registrations returns a snapshot of the registrations in construction order.
func (t *Topology) Registrations() []domain.RegistrationInfo {
	return t.registry.snapshot()
}

// Start starts every server in declaration order.
// A failure stops the servers already serving and then rolls the whole topology back;
// it cannot be started again.
func (t *Topology) Start() error {
	t.mutex.Lock()
	if t.state != domain.StateBuilt {
		state := t.state
		t.mutex.Unlock()
		return &domain.TopologyError{ErrorType: domain.InvalidState, Message: fmt.Sprintf("a %v topology cannot be started", state)}
	}
	servers := append([]domain.Server(nil), t.servers...)
	t.mutex.Unlock()

	for i, server := range servers {
		if err := server.Start(); err != nil {
			t.logger.Error(fmt.Sprintf("topology failed to start: %v", err))
			quiesced := t.quiesce(servers[:i])
			return &domain.BuildError{Cause: err, Rollback: errors.Join(quiesced, t.abort())}
		}
	}

	t.setState(domain.StateRunning)
	t.logger.Info(fmt.Sprintf("topology running with %v registrations", t.registry.pending()))
	return nil
}

// Stop quiesces the running servers and then releases every registration in reverse order.
// Stopping a stopped topology does nothing.
func (t *Topology) Stop() error {
	t.mutex.Lock()
	state := t.state
	switch state {
	case domain.StateStopped:
		t.mutex.Unlock()
		return nil
	case domain.StateBuilding:
		t.mutex.Unlock()
		return &domain.TopologyError{ErrorType: domain.InvalidState, Message: "a building topology cannot be stopped"}
	}
	t.state = domain.StateStopped
	servers := append([]domain.Server(nil), t.servers...)
	t.mutex.Unlock()

	var errs []error
	if state == domain.StateRunning {
		errs = append(errs, t.quiesce(servers))
	}
	errs = append(errs, t.registry.unwind(t.logger))
	t.logger.Info("topology stopped")
	return errors.Join(errs...)
}

// quiesce stops every server from serving, concurrently, within the shutdown timeout.
func (t *Topology) quiesce(servers []domain.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), t.shutdownTimeout)
	defer cancel()
	group := new(errgroup.Group)
	for _, server := range servers {
		group.Go(func() error {
			return server.Shutdown(ctx)
		})
	}
	if err := group.Wait(); err != nil {
		t.logger.Error(fmt.Sprintf("graceful shutdown: %v", err))
		return err
	}
	return nil
}

// abort rolls back a topology that failed to build or start.
func (t *Topology) abort() error {
	t.setState(domain.StateStopped)
	return t.registry.unwind(t.logger)
}

func (t *Topology) setState(state domain.TopologyState) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.state = state
}
