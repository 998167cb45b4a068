package webserver

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/janmbaco/go-webcontainer/internal/domain"
)

// DescriptorPath is the location of the deployment descriptor inside an archive.
const DescriptorPath = "WEB-INF/web.json"

var hiddenArchivePaths = []string{"/WEB-INF", "/META-INF"}

// Descriptor declares what an archive deploys besides its static files.
type Descriptor struct {
	ContextParams domain.InitParams `json:"context_params"`
	WelcomePage   string            `json:"welcome_page"`
	Listeners     []DescriptorEntry `json:"listeners"`
	Filters       []DescriptorEntry `json:"filters"`
	Servlets      []DescriptorEntry `json:"servlets"`
}

// DescriptorEntry is a listener, filter or servlet of a Descriptor.
type DescriptorEntry struct {
	Class       string            `json:"class"`
	Path        string            `json:"path"`
	Dispatchers []string          `json:"dispatchers"`
	InitParams  domain.InitParams `json:"init_params"`
}

// DeployArchive mounts a zip archive, or an exploded directory, at mountPath.
// Classes named by the descriptor are resolved through the catalog and scope.
func (s *Server) DeployArchive(archivePath string, mountPath string, scope domain.Scope) (domain.ReleaseFunc, error) {
	root, cleanup, err := unpack(archivePath)
	if err != nil {
		return nil, err
	}
	descriptor, err := readDescriptor(root)
	if err != nil {
		cleanup()
		return nil, err
	}

	c, releaseContext, err := s.addContext(mountPath, descriptor.ContextParams)
	if err != nil {
		cleanup()
		return nil, err
	}
	releases := []domain.ReleaseFunc{releaseContext}
	unwind := func() error {
		var errs []error
		for i := len(releases) - 1; i >= 0; i-- {
			errs = append(errs, releases[i]())
		}
		cleanup()
		return errors.Join(errs...)
	}
	fail := func(err error) (domain.ReleaseFunc, error) {
		if rollbackErr := unwind(); rollbackErr != nil {
			s.logger.Error(fmt.Sprintf("rollback of %v: %v", archivePath, rollbackErr))
		}
		return nil, fmt.Errorf("deploying %v at %v: %w", archivePath, mountPath, err)
	}

	for _, entry := range descriptor.Listeners {
		instance, err := s.resolveClass(entry.Class, scope)
		if err != nil {
			return fail(err)
		}
		listener, ok := instance.(domain.ContextListener)
		if !ok {
			return fail(fmt.Errorf("class '%v' is not a context listener", entry.Class))
		}
		release, err := c.AddListener(listener)
		if err != nil {
			return fail(err)
		}
		releases = append(releases, release)
	}
	for _, entry := range descriptor.Filters {
		instance, err := s.resolveClass(entry.Class, scope)
		if err != nil {
			return fail(err)
		}
		dispatch := domain.DefaultDispatch
		if len(entry.Dispatchers) > 0 {
			if dispatch, err = domain.ParseDispatchType(entry.Dispatchers...); err != nil {
				return fail(err)
			}
		}
		release, err := c.AddFilter(entry.Path, instance, dispatch, entry.InitParams)
		if err != nil {
			return fail(err)
		}
		releases = append(releases, release)
	}
	for _, entry := range descriptor.Servlets {
		instance, err := s.resolveClass(entry.Class, scope)
		if err != nil {
			return fail(err)
		}
		release, err := c.AddServlet(entry.Path, instance, entry.InitParams)
		if err != nil {
			return fail(err)
		}
		releases = append(releases, release)
	}
	release, err := c.addStatic(root, descriptor.WelcomePage, hiddenArchivePaths...)
	if err != nil {
		return fail(err)
	}
	releases = append(releases, release)

	s.logger.Info(fmt.Sprintf("deployed %v at %v", archivePath, c.path))
	return unwind, nil
}

func (s *Server) resolveClass(name string, scope domain.Scope) (any, error) {
	if s.catalog == nil {
		return nil, &domain.ResolutionError{Class: name, Message: "no class catalog available"}
	}
	class, ok := s.catalog.Lookup(name)
	if !ok {
		return nil, &domain.ResolutionError{Class: name, Message: "unknown class"}
	}
	if scope == nil {
		return nil, &domain.ResolutionError{Class: name, Message: "no container scope available"}
	}
	return scope.Resolve(class)
}

// unpack extracts a zip archive into a temporary directory.
// Directories are served in place.
func unpack(archivePath string) (string, func(), error) {
	stat, err := os.Stat(archivePath)
	if err != nil {
		return "", nil, fmt.Errorf("archive: %w", err)
	}
	if stat.IsDir() {
		return archivePath, func() {}, nil
	}

	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", nil, fmt.Errorf("archive %v: %w", archivePath, err)
	}
	defer reader.Close()

	dir, err := os.MkdirTemp("", "webapp-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(dir) }
	for _, file := range reader.File {
		if err := extract(dir, file); err != nil {
			cleanup()
			return "", nil, fmt.Errorf("archive %v: %w", archivePath, err)
		}
	}
	return dir, cleanup, nil
}

func extract(dir string, file *zip.File) error {
	target := filepath.Join(dir, filepath.FromSlash(file.Name))
	if target != dir && !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return fmt.Errorf("entry %v escapes the archive root", file.Name)
	}
	if file.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

func readDescriptor(root string) (*Descriptor, error) {
	descriptor := &Descriptor{}
	content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(DescriptorPath)))
	if errors.Is(err, os.ErrNotExist) {
		return descriptor, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(content, descriptor); err != nil {
		return nil, fmt.Errorf("invalid %v: %w", DescriptorPath, err)
	}
	return descriptor, nil
}
