package mocks

import (
	"context"
	"net"

	"github.com/janmbaco/go-webcontainer/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockServerFactory is a mock implementation of domain.ServerFactory
type MockServerFactory struct {
	mock.Mock
}

func (m *MockServerFactory) NewServer(port int, options domain.ServerOptions) (domain.Server, error) {
	args := m.Called(port, options)
	server, _ := args.Get(0).(domain.Server)
	return server, args.Error(1)
}

// MockServer is a mock implementation of domain.Server
type MockServer struct {
	mock.Mock
}

func (m *MockServer) AddConnector(spec domain.ConnectorSpec) (domain.ReleaseFunc, error) {
	args := m.Called(spec)
	release := releaseFunc(args.Get(0))
	return release, args.Error(1)
}

func (m *MockServer) AddContext(path string, params domain.InitParams) (domain.Context, domain.ReleaseFunc, error) {
	args := m.Called(path, params)
	ctx, _ := args.Get(0).(domain.Context)
	release := releaseFunc(args.Get(1))
	return ctx, release, args.Error(2)
}

func (m *MockServer) DeployArchive(archivePath string, mountPath string, scope domain.Scope) (domain.ReleaseFunc, error) {
	args := m.Called(archivePath, mountPath, scope)
	release := releaseFunc(args.Get(0))
	return release, args.Error(1)
}

func (m *MockServer) Start() error {
	return m.Called().Error(0)
}

func (m *MockServer) Shutdown(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockServer) Stop() error {
	return m.Called().Error(0)
}

func (m *MockServer) Addrs() []net.Addr {
	args := m.Called()
	addrs, _ := args.Get(0).([]net.Addr)
	return addrs
}

// MockContext is a mock implementation of domain.Context
type MockContext struct {
	mock.Mock
}

func (m *MockContext) Path() string {
	return m.Called().String(0)
}

func (m *MockContext) AddServlet(path string, servlet any, params domain.InitParams) (domain.ReleaseFunc, error) {
	args := m.Called(path, servlet, params)
	release := releaseFunc(args.Get(0))
	return release, args.Error(1)
}

func (m *MockContext) AddFilter(path string, filter any, dispatch domain.DispatchType, params domain.InitParams) (domain.ReleaseFunc, error) {
	args := m.Called(path, filter, dispatch, params)
	release := releaseFunc(args.Get(0))
	return release, args.Error(1)
}

func (m *MockContext) AddListener(listener domain.ContextListener) (domain.ReleaseFunc, error) {
	args := m.Called(listener)
	release := releaseFunc(args.Get(0))
	return release, args.Error(1)
}

func (m *MockContext) AddStaticHandler(rootPath string, welcomePage string) (domain.ReleaseFunc, error) {
	args := m.Called(rootPath, welcomePage)
	release := releaseFunc(args.Get(0))
	return release, args.Error(1)
}

func releaseFunc(value any) domain.ReleaseFunc {
	switch fn := value.(type) {
	case domain.ReleaseFunc:
		return fn
	case func() error:
		return fn
	}
	return nil
}
