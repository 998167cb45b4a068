package presentation

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/janmbaco/go-webcontainer/internal/domain"
)

// Health is the body written by HealthServlet.
type Health struct {
	Status  string `json:"status"`
	Context string `json:"context"`
	Uptime  string `json:"uptime"`
}

// HealthServlet reports that its context is up.
type HealthServlet struct {
	contextPath string
	started     time.Time
}

func NewHealthServlet() *HealthServlet {
	return &HealthServlet{started: time.Now()}
}

func (h *HealthServlet) Init(config domain.HandlerConfig) error {
	h.contextPath = config.ContextPath
	h.started = time.Now()
	return nil
}

func (h *HealthServlet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(Health{
		Status:  "UP",
		Context: h.contextPath,
		Uptime:  time.Since(h.started).Truncate(time.Second).String(),
	})
}
