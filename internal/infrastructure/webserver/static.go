package webserver

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"strings"
)

// DefaultWelcomePage is served for directory requests when no welcome page is configured.
const DefaultWelcomePage = "index.html"

// staticHandler serves files below a root directory without directory listings.
type staticHandler struct {
	fs      http.FileSystem
	welcome string
	hidden  []string
}

func newStaticHandler(root string, welcome string, hidden ...string) (*staticHandler, error) {
	stat, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("static content root: %w", err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("static content root %v is not a directory", root)
	}
	if welcome == "" {
		welcome = DefaultWelcomePage
	}
	return &staticHandler{fs: http.Dir(root), welcome: strings.TrimPrefix(welcome, "/"), hidden: hidden}, nil
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	relative := r.URL.Path
	if info, ok := Info(r); ok {
		relative = info.PathInContext()
	}
	name := path.Clean("/" + relative)
	for _, hidden := range h.hidden {
		if strings.EqualFold(name, hidden) || strings.HasPrefix(strings.ToUpper(name), strings.ToUpper(hidden)+"/") {
			http.NotFound(w, r)
			return
		}
	}

	file, err := h.fs.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if stat.IsDir() {
		if !strings.HasSuffix(r.URL.Path, "/") {
			target := r.URL.Path + "/"
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		welcome, err := h.fs.Open(path.Join(name, h.welcome))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		defer welcome.Close()
		welcomeStat, err := welcome.Stat()
		if err != nil || welcomeStat.IsDir() {
			http.NotFound(w, r)
			return
		}
		http.ServeContent(w, r, welcomeStat.Name(), welcomeStat.ModTime(), welcome)
		return
	}

	http.ServeContent(w, r, stat.Name(), stat.ModTime(), file)
}
