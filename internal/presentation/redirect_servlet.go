package presentation

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/janmbaco/go-webcontainer/internal/domain"
)

// Init params understood by RedirectServlet.
const (
	RedirectLocationParam  = "location"
	RedirectSchemeParam    = "scheme"
	RedirectPortParam      = "port"
	RedirectPermanentParam = "permanent"
)

// RedirectServlet answers every request with a redirect to the same URI on
// another origin. Without a location it moves the request to https on the same host.
type RedirectServlet struct {
	logger domain.Logger

	mu       sync.RWMutex
	location string
	scheme   string
	port     string
	status   int
}

func NewRedirectServlet(logger domain.Logger) *RedirectServlet {
	return &RedirectServlet{logger: logger, scheme: "https", status: http.StatusMovedPermanently}
}

func (rs *RedirectServlet) Init(config domain.HandlerConfig) error {
	params := config.InitParams
	permanent := true
	if value, ok := params.Get(RedirectPermanentParam); ok {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("init param '%v' must be a boolean: %w", RedirectPermanentParam, err)
		}
		permanent = parsed
	}
	if port, ok := params.Get(RedirectPortParam); ok {
		if _, err := strconv.ParseUint(port, 10, 16); err != nil {
			return fmt.Errorf("init param '%v' must be a port number: %w", RedirectPortParam, err)
		}
	}

	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.location = strings.TrimSuffix(params.Value(RedirectLocationParam), "/")
	if scheme, ok := params.Get(RedirectSchemeParam); ok {
		rs.scheme = scheme
	}
	rs.port = params.Value(RedirectPortParam)
	rs.status = http.StatusFound
	if permanent {
		rs.status = http.StatusMovedPermanently
	}
	return nil
}

func (rs *RedirectServlet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rs.mu.RLock()
	target, status := rs.target(r), rs.status
	rs.mu.RUnlock()

	rs.logger.Info(fmt.Sprintf("Redirecting HTTP %s%s → %s", r.Host, r.URL.Path, target))
	http.Redirect(w, r, target, status)
}

func (rs *RedirectServlet) target(r *http.Request) string {
	if rs.location != "" {
		return rs.location + r.URL.RequestURI()
	}
	host := r.Host
	if rs.port != "" {
		if name, _, err := net.SplitHostPort(host); err == nil {
			host = name
		}
		host = net.JoinHostPort(host, rs.port)
	}
	return fmt.Sprintf("%s://%s%s", rs.scheme, host, r.URL.RequestURI())
}
