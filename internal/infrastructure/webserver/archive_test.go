package webserver

import (
	"archive/zip"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/janmbaco/go-webcontainer/internal/domain"
	"github.com/janmbaco/go-webcontainer/internal/infrastructure/container"
	"github.com/janmbaco/go-webcontainer/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webDescriptor = `{
  "context_params": [{"name": "who", "value": "Fred"}],
  "listeners": [{"class": "listener"}],
  "filters": [{"class": "shout", "path": "/*", "dispatchers": ["request"]}],
  "servlets": [{"class": "hello", "path": "/hello", "init_params": [{"name": "greeting", "value": "hello"}]}]
}`

type helloServlet struct {
	greeting string
	who      string
}

func (s *helloServlet) Init(config domain.HandlerConfig) error {
	s.greeting = config.InitParams.Value("greeting")
	s.who = config.ContextParams.Value("who")
	return nil
}

func (s *helloServlet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "%v %v", s.greeting, s.who)
}

type shoutFilter struct{}

func (shoutFilter) DoFilter(w http.ResponseWriter, r *http.Request, chain http.Handler) {
	w.Header().Set("X-Shout", "true")
	chain.ServeHTTP(w, r)
}

func archiveCatalog(t *testing.T, events *strings.Builder) *domain.Catalog {
	t.Helper()
	catalog, err := domain.NewCatalog(
		domain.Class{Name: "hello", Constructor: func() *helloServlet { return &helloServlet{} }},
		domain.Class{Name: "shout", Constructor: func() shoutFilter { return shoutFilter{} }},
		domain.Class{Name: "listener", Constructor: func() *recordingListener { return &recordingListener{events: events} }},
	)
	require.NoError(t, err)
	return catalog
}

func writeArchive(t *testing.T, files map[string]string) string {
	t.Helper()
	archivePath := filepath.Join(t.TempDir(), "app.war")
	out, err := os.Create(archivePath)
	require.NoError(t, err)
	writer := zip.NewWriter(out)
	for name, content := range files {
		entry, err := writer.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	require.NoError(t, out.Close())
	return archivePath
}

func newArchiveServer(t *testing.T, catalog *domain.Catalog) *Server {
	t.Helper()
	server, err := NewServer(0, domain.ServerOptions{}, mocks.NewSilentLogger(), catalog)
	require.NoError(t, err)
	_, err = server.AddConnector(domain.ConnectorSpec{Host: "127.0.0.1"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Stop() })
	return server
}

func TestServer_DeployArchive_WhenZipWithDescriptor_ThenServesClassesAndStaticFiles(t *testing.T) {
	// Arrange
	events := &strings.Builder{}
	server := newArchiveServer(t, archiveCatalog(t, events))
	archivePath := writeArchive(t, map[string]string{
		"index.html":       "welcome",
		"WEB-INF/web.json": webDescriptor,
	})

	// Act
	_, err := server.DeployArchive(archivePath, "/app", container.NewScope())
	require.NoError(t, err)
	require.NoError(t, server.Start())
	url := baseURL(t, server)
	response, err := http.Get(url + "/app/hello")
	require.NoError(t, err)
	response.Body.Close()
	_, hello := get(t, url+"/app/hello")
	_, welcome := get(t, url+"/app/")
	hiddenStatus, _ := get(t, url+"/app/WEB-INF/web.json")

	// Assert
	assert.Equal(t, "true", response.Header.Get("X-Shout"))
	assert.Equal(t, "hello Fred", hello)
	assert.Equal(t, "welcome", welcome)
	assert.Equal(t, http.StatusNotFound, hiddenStatus)
	assert.Equal(t, "-contextInitialized", events.String())
}

func TestServer_DeployArchive_WhenReleased_ThenUnmountsAndRemovesExtraction(t *testing.T) {
	// Arrange
	events := &strings.Builder{}
	server := newArchiveServer(t, archiveCatalog(t, events))
	archivePath := writeArchive(t, map[string]string{"index.html": "welcome", "WEB-INF/web.json": webDescriptor})
	release, err := server.DeployArchive(archivePath, "/app", container.NewScope())
	require.NoError(t, err)
	require.NoError(t, server.Start())
	root := server.contexts[0].static.(*staticHandler).fs.(http.Dir)

	// Act
	err = release()

	// Assert
	assert.NoError(t, err)
	assert.Empty(t, server.contexts)
	assert.Equal(t, "-contextInitialized-contextDestroyed", events.String())
	_, statErr := os.Stat(string(root))
	assert.True(t, os.IsNotExist(statErr))
}

func TestServer_DeployArchive_WhenDirectory_ThenServesInPlace(t *testing.T) {
	// Arrange
	server := newArchiveServer(t, nil)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("exploded"), 0o644))

	// Act
	release, err := server.DeployArchive(dir, "/", nil)
	require.NoError(t, err)
	require.NoError(t, server.Start())
	_, body := get(t, baseURL(t, server)+"/")

	// Assert
	assert.Equal(t, "exploded", body)
	require.NoError(t, release())
	_, statErr := os.Stat(dir)
	assert.NoError(t, statErr)
}

func TestServer_DeployArchive_WhenClassUnknown_ThenRollsBack(t *testing.T) {
	// Arrange
	events := &strings.Builder{}
	catalog, err := domain.NewCatalog(
		domain.Class{Name: "listener", Constructor: func() *recordingListener { return &recordingListener{events: events} }},
	)
	require.NoError(t, err)
	server := newArchiveServer(t, catalog)
	archivePath := writeArchive(t, map[string]string{"WEB-INF/web.json": webDescriptor})

	// Act
	_, err = server.DeployArchive(archivePath, "/app", container.NewScope())

	// Assert
	var resolutionErr *domain.ResolutionError
	require.ErrorAs(t, err, &resolutionErr)
	assert.Equal(t, "shout", resolutionErr.Class)
	assert.Empty(t, server.contexts)
}

func TestServer_DeployArchive_WhenDescriptorInvalid_ThenReturnsError(t *testing.T) {
	// Arrange
	server := newArchiveServer(t, nil)
	archivePath := writeArchive(t, map[string]string{"WEB-INF/web.json": "{"})

	// Act
	_, err := server.DeployArchive(archivePath, "/app", nil)

	// Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), DescriptorPath)
	assert.Empty(t, server.contexts)
}

func TestServer_DeployArchive_WhenEntryEscapesRoot_ThenReturnsError(t *testing.T) {
	// Arrange
	server := newArchiveServer(t, nil)
	archivePath := writeArchive(t, map[string]string{"../evil.txt": "evil"})

	// Act
	_, err := server.DeployArchive(archivePath, "/app", nil)

	// Assert
	assert.Error(t, err)
	assert.Empty(t, server.contexts)
}

func TestServer_DeployArchive_WhenArchiveMissing_ThenReturnsError(t *testing.T) {
	// Arrange
	server := newArchiveServer(t, nil)

	// Act
	_, err := server.DeployArchive(filepath.Join(t.TempDir(), "missing.war"), "/app", nil)

	// Assert
	assert.Error(t, err)
}
