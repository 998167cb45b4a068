package webserver

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/janmbaco/go-webcontainer/internal/domain"
	"github.com/janmbaco/go-webcontainer/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingListener struct {
	events *strings.Builder
}

func (l *recordingListener) ContextInitialized(event domain.ContextEvent) {
	l.events.WriteString("-contextInitialized")
}

func (l *recordingListener) ContextDestroyed(event domain.ContextEvent) {
	l.events.WriteString("-contextDestroyed")
}

type lifecycleServlet struct {
	events *strings.Builder
	config domain.HandlerConfig
}

func (s *lifecycleServlet) Init(config domain.HandlerConfig) error {
	s.config = config
	s.events.WriteString("-servletInit")
	return nil
}

func (s *lifecycleServlet) Destroy() {
	s.events.WriteString("-servletDestroy")
}

func (s *lifecycleServlet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "%v=%v", s.config.InitParams.Value("greeting"), s.config.ContextParams.Value("who"))
}

func text(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, body)
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	server, err := NewServer(0, domain.ServerOptions{}, mocks.NewSilentLogger(), nil)
	require.NoError(t, err)
	_, err = server.AddConnector(domain.ConnectorSpec{Host: "127.0.0.1", Port: 0})
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func baseURL(t *testing.T, server *Server) string {
	t.Helper()
	addrs := server.Addrs()
	require.NotEmpty(t, addrs)
	return "http://" + addrs[0].String()
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	response, err := client.Get(url)
	require.NoError(t, err)
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	return response.StatusCode, string(body)
}

func TestServer_Start_WhenServletMapped_ThenServesIt(t *testing.T) {
	// Arrange
	server := newTestServer(t)
	ctx, _, err := server.AddContext("/foo", nil)
	require.NoError(t, err)
	_, err = ctx.AddServlet("/bar", text("hello"), nil)
	require.NoError(t, err)

	// Act
	require.NoError(t, server.Start())
	status, body := get(t, baseURL(t, server)+"/foo/bar")

	// Assert
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello", body)
}

func TestServer_ServeHTTP_WhenContextPathWithoutSlash_ThenRedirects(t *testing.T) {
	// Arrange
	server := newTestServer(t)
	_, _, err := server.AddContext("/bar", nil)
	require.NoError(t, err)
	require.NoError(t, server.Start())

	// Act
	status, _ := get(t, baseURL(t, server)+"/bar")

	// Assert
	assert.Equal(t, http.StatusFound, status)
}

func TestServer_ServeHTTP_WhenSeveralContexts_ThenLongestPathWins(t *testing.T) {
	// Arrange
	server := newTestServer(t)
	root, _, err := server.AddContext("/", nil)
	require.NoError(t, err)
	_, err = root.AddServlet("/*", text("root"), nil)
	require.NoError(t, err)
	api, _, err := server.AddContext("/api", nil)
	require.NoError(t, err)
	_, err = api.AddServlet("/*", text("api"), nil)
	require.NoError(t, err)
	require.NoError(t, server.Start())

	// Act
	_, apiBody := get(t, baseURL(t, server)+"/api/users")
	_, rootBody := get(t, baseURL(t, server)+"/apis")

	// Assert
	assert.Equal(t, "api", apiBody)
	assert.Equal(t, "root", rootBody)
}

func TestContext_Handle_WhenSeveralMappingsMatch_ThenUsesPrecedence(t *testing.T) {
	// Arrange
	server := newTestServer(t)
	ctx, _, err := server.AddContext("/", nil)
	require.NoError(t, err)
	for pattern, body := range map[string]string{
		"/":        "default",
		"*.do":     "extension",
		"/app/*":   "prefix",
		"/app/x/*": "longer",
		"/app/a":   "exact",
	} {
		_, err = ctx.AddServlet(pattern, text(body), nil)
		require.NoError(t, err)
	}
	require.NoError(t, server.Start())
	url := baseURL(t, server)

	// Act & Assert
	for path, expected := range map[string]string{
		"/app/a":     "exact",
		"/app/x/y":   "longer",
		"/app/b.do":  "prefix",
		"/other.do":  "extension",
		"/something": "default",
	} {
		_, body := get(t, url+path)
		assert.Equal(t, expected, body, path)
	}
}

func TestContext_AddServlet_WhenPatternAlreadyMapped_ThenReturnsError(t *testing.T) {
	// Arrange
	server := newTestServer(t)
	ctx, _, err := server.AddContext("/", nil)
	require.NoError(t, err)
	_, err = ctx.AddServlet("/a", text("a"), nil)
	require.NoError(t, err)

	// Act
	_, err = ctx.AddServlet("/a", text("b"), nil)

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already maps")
}

func TestContext_AddServlet_WhenNotHandler_ThenReturnsError(t *testing.T) {
	// Arrange
	server := newTestServer(t)
	ctx, _, err := server.AddContext("/", nil)
	require.NoError(t, err)

	// Act
	_, err = ctx.AddServlet("/a", 42, nil)

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "int cannot be used as a servlet")
}

func TestContext_AddFilter_WhenRequestDispatch_ThenWrapsServlet(t *testing.T) {
	// Arrange
	server := newTestServer(t)
	ctx, _, err := server.AddContext("/", nil)
	require.NoError(t, err)
	_, err = ctx.AddServlet("/hello", text("hello"), nil)
	require.NoError(t, err)
	_, err = ctx.AddFilter("/*", func(w http.ResponseWriter, r *http.Request, chain http.Handler) {
		_, _ = io.WriteString(w, "[")
		chain.ServeHTTP(w, r)
		_, _ = io.WriteString(w, "]")
	}, domain.DispatchRequest, nil)
	require.NoError(t, err)
	_, err = ctx.AddFilter("/*", func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "<")
			next.ServeHTTP(w, r)
			_, _ = io.WriteString(w, ">")
		})
	}, domain.DispatchRequest, nil)
	require.NoError(t, err)
	require.NoError(t, server.Start())

	// Act
	_, body := get(t, baseURL(t, server)+"/hello")

	// Assert
	assert.Equal(t, "[<hello>]", body)
}

func TestForward_WhenForwardOnlyFilter_ThenAppliesOnlyOnForward(t *testing.T) {
	// Arrange
	server := newTestServer(t)
	ctx, _, err := server.AddContext("/ctx", nil)
	require.NoError(t, err)
	_, err = ctx.AddServlet("/target", text("target"), nil)
	require.NoError(t, err)
	_, err = ctx.AddServlet("/entry", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, Forward(w, r, "/target"))
	}, nil)
	require.NoError(t, err)
	_, err = ctx.AddFilter("/target", func(w http.ResponseWriter, r *http.Request, chain http.Handler) {
		info, _ := Info(r)
		_, _ = io.WriteString(w, info.Dispatch.String()+":")
		chain.ServeHTTP(w, r)
	}, domain.DispatchForward, nil)
	require.NoError(t, err)
	require.NoError(t, server.Start())
	url := baseURL(t, server)

	// Act
	_, forwarded := get(t, url+"/ctx/entry")
	_, direct := get(t, url+"/ctx/target")

	// Assert
	assert.Equal(t, "FORWARD:target", forwarded)
	assert.Equal(t, "target", direct)
}

func TestInclude_WhenTargetSetsStatus_ThenKeepsOuterStatus(t *testing.T) {
	// Arrange
	server := newTestServer(t)
	ctx, _, err := server.AddContext("/", nil)
	require.NoError(t, err)
	_, err = ctx.AddServlet("/fragment", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "fragment")
	}, nil)
	require.NoError(t, err)
	_, err = ctx.AddServlet("/page", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "page:")
		assert.NoError(t, Include(w, r, "fragment"))
	}, nil)
	require.NoError(t, err)
	require.NoError(t, server.Start())

	// Act
	status, body := get(t, baseURL(t, server)+"/page")

	// Assert
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "page:fragment", body)
}

func TestContext_Handle_WhenNothingMatches_ThenDispatchesErrorThroughFilters(t *testing.T) {
	// Arrange
	server := newTestServer(t)
	ctx, _, err := server.AddContext("/", nil)
	require.NoError(t, err)
	_, err = ctx.AddServlet("/known", text("known"), nil)
	require.NoError(t, err)
	_, err = ctx.AddFilter("/*", func(w http.ResponseWriter, r *http.Request, chain http.Handler) {
		w.Header().Set("X-Error-Filter", "yes")
		chain.ServeHTTP(w, r)
	}, domain.DispatchError, nil)
	require.NoError(t, err)
	require.NoError(t, server.Start())

	// Act
	response, err := http.Get(baseURL(t, server) + "/unknown")
	require.NoError(t, err)
	defer response.Body.Close()
	known, err := http.Get(baseURL(t, server) + "/known")
	require.NoError(t, err)
	defer known.Body.Close()

	// Assert
	assert.Equal(t, http.StatusNotFound, response.StatusCode)
	assert.Equal(t, "yes", response.Header.Get("X-Error-Filter"))
	assert.Empty(t, known.Header.Get("X-Error-Filter"))
}

func TestContext_Lifecycle_WhenStartedAndStopped_ThenCallbacksInOrder(t *testing.T) {
	// Arrange
	events := &strings.Builder{}
	server := newTestServer(t)
	ctx, _, err := server.AddContext("/", domain.InitParams{{Name: "who", Value: "Fred"}})
	require.NoError(t, err)
	_, err = ctx.AddListener(&recordingListener{events: events})
	require.NoError(t, err)
	_, err = ctx.AddServlet("/s", &lifecycleServlet{events: events}, domain.InitParams{{Name: "greeting", Value: "hello"}})
	require.NoError(t, err)

	// Act
	require.NoError(t, server.Start())
	_, body := get(t, baseURL(t, server)+"/s")
	require.NoError(t, server.Stop())

	// Assert
	assert.Equal(t, "hello=Fred", body)
	assert.Equal(t, "-contextInitialized-servletInit-servletDestroy-contextDestroyed", events.String())
}

func TestContext_ReleaseListener_WhenInitialized_ThenFiresDestroyed(t *testing.T) {
	// Arrange
	events := &strings.Builder{}
	server := newTestServer(t)
	ctx, _, err := server.AddContext("/", nil)
	require.NoError(t, err)
	release, err := ctx.AddListener(&recordingListener{events: events})
	require.NoError(t, err)
	require.NoError(t, server.Start())

	// Act
	err = release()

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, "-contextInitialized-contextDestroyed", events.String())
	assert.Error(t, release())
}

func TestContext_ReleaseListener_WhenNeverInitialized_ThenDoesNotFireDestroyed(t *testing.T) {
	// Arrange
	events := &strings.Builder{}
	server := newTestServer(t)
	ctx, _, err := server.AddContext("/", nil)
	require.NoError(t, err)
	release, err := ctx.AddListener(&recordingListener{events: events})
	require.NoError(t, err)

	// Act
	err = release()

	// Assert
	assert.NoError(t, err)
	assert.Empty(t, events.String())
}

type failingServlet struct{}

func (failingServlet) Init(domain.HandlerConfig) error { return errors.New("init failed") }

func (failingServlet) ServeHTTP(http.ResponseWriter, *http.Request) {}

func TestServer_Start_WhenServletInitFails_ThenUnwindsAndReturnsStartError(t *testing.T) {
	// Arrange
	events := &strings.Builder{}
	server := newTestServer(t)
	ctx, _, err := server.AddContext("/", nil)
	require.NoError(t, err)
	_, err = ctx.AddListener(&recordingListener{events: events})
	require.NoError(t, err)
	_, err = ctx.AddServlet("/bad", failingServlet{}, nil)
	require.NoError(t, err)

	// Act
	err = server.Start()

	// Assert
	var startErr *domain.StartError
	require.True(t, errors.As(err, &startErr))
	assert.Contains(t, err.Error(), "init failed")
	assert.Equal(t, "-contextInitialized-contextDestroyed", events.String())
	assert.Empty(t, server.Addrs())
}

func TestServer_Start_WhenPortInUse_ThenReturnsStartErrorAndReleasesBoundPorts(t *testing.T) {
	// Arrange
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()
	port := occupied.Addr().(*net.TCPAddr).Port
	server, err := NewServer(0, domain.ServerOptions{}, mocks.NewSilentLogger(), nil)
	require.NoError(t, err)
	_, err = server.AddConnector(domain.ConnectorSpec{Host: "127.0.0.1", Port: 0})
	require.NoError(t, err)
	_, err = server.AddConnector(domain.ConnectorSpec{Host: "127.0.0.1", Port: port})
	require.NoError(t, err)

	// Act
	err = server.Start()

	// Assert
	var startErr *domain.StartError
	require.True(t, errors.As(err, &startErr))
	assert.Equal(t, fmt.Sprintf("127.0.0.1:%d", port), startErr.Address)
	assert.Empty(t, server.Addrs())
	assert.NoError(t, server.Stop())
}

func TestServer_AddConnector_WhenStarted_ThenReturnsError(t *testing.T) {
	// Arrange
	server := newTestServer(t)
	require.NoError(t, server.Start())

	// Act
	_, err := server.AddConnector(domain.ConnectorSpec{Port: 0})

	// Assert
	assert.Error(t, err)
}

func TestServer_AddContext_WhenPathTaken_ThenReturnsError(t *testing.T) {
	// Arrange
	server := newTestServer(t)
	_, _, err := server.AddContext("/foo/", nil)
	require.NoError(t, err)

	// Act
	_, _, err = server.AddContext("/foo", nil)

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "already mounted at /foo")
}

func TestServer_Stop_WhenCalledTwice_ThenSecondIsNoop(t *testing.T) {
	// Arrange
	server := newTestServer(t)
	require.NoError(t, server.Start())
	url := baseURL(t, server)

	// Act
	first := server.Stop()
	second := server.Stop()

	// Assert
	assert.NoError(t, first)
	assert.NoError(t, second)
	_, err := http.Get(url + "/")
	assert.Error(t, err)
}

func TestServer_Shutdown_WhenRunning_ThenStopsServingButKeepsContexts(t *testing.T) {
	// Arrange
	events := &strings.Builder{}
	server := newTestServer(t)
	ctx, _, err := server.AddContext("/", nil)
	require.NoError(t, err)
	_, err = ctx.AddListener(&recordingListener{events: events})
	require.NoError(t, err)
	require.NoError(t, server.Start())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// Act
	err = server.Shutdown(shutdownCtx)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, "-contextInitialized", events.String())
	require.NoError(t, server.Stop())
	assert.Equal(t, "-contextInitialized-contextDestroyed", events.String())
}

func TestServer_Start_WhenTLSConnector_ThenServesHTTPS(t *testing.T) {
	// Arrange
	certFile, keyFile := writeKeyPair(t)
	server, err := NewServer(0, domain.ServerOptions{}, mocks.NewSilentLogger(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Stop() })
	_, err = server.AddConnector(domain.ConnectorSpec{Host: "127.0.0.1", CertFile: certFile, KeyFile: keyFile})
	require.NoError(t, err)
	ctx, _, err := server.AddContext("/", nil)
	require.NoError(t, err)
	_, err = ctx.AddServlet("/", text("secure"), nil)
	require.NoError(t, err)
	require.NoError(t, server.Start())
	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}}

	// Act
	response, err := client.Get("https://" + server.Addrs()[0].String() + "/")
	require.NoError(t, err)
	defer response.Body.Close()
	body, err := io.ReadAll(response.Body)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, "secure", string(body))
	assert.NotNil(t, response.TLS)
}

func TestServer_Start_WhenTLSMaterialMissing_ThenReturnsStartError(t *testing.T) {
	// Arrange
	server, err := NewServer(0, domain.ServerOptions{}, mocks.NewSilentLogger(), nil)
	require.NoError(t, err)
	_, err = server.AddConnector(domain.ConnectorSpec{Host: "127.0.0.1", CertFile: "missing.crt", KeyFile: "missing.key"})
	require.NoError(t, err)

	// Act
	err = server.Start()

	// Assert
	var startErr *domain.StartError
	assert.True(t, errors.As(err, &startErr))
}

func TestServer_Start_WhenTracingEnabled_ThenStillServes(t *testing.T) {
	// Arrange
	server, err := NewServer(0, domain.ServerOptions{Tracing: true}, mocks.NewSilentLogger(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Stop() })
	_, err = server.AddConnector(domain.ConnectorSpec{Host: "127.0.0.1", H2C: true})
	require.NoError(t, err)
	ctx, _, err := server.AddContext("/", nil)
	require.NoError(t, err)
	_, err = ctx.AddServlet("/", text("traced"), nil)
	require.NoError(t, err)
	require.NoError(t, server.Start())

	// Act
	_, body := get(t, baseURL(t, server)+"/")

	// Assert
	assert.Equal(t, "traced", body)
}

func writeKeyPair(t *testing.T) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	keyDer, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)
	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDer}), 0o600))
	return certFile, keyFile
}
