package presentation

import (
	"fmt"
	"net/http"
	"time"

	"github.com/janmbaco/go-webcontainer/internal/domain"
)

// RequestLogFilter logs one line per request once the chain has answered.
type RequestLogFilter struct {
	logger domain.Logger
	now    func() time.Time
}

func NewRequestLogFilter(logger domain.Logger) *RequestLogFilter {
	return &RequestLogFilter{logger: logger, now: time.Now}
}

func (f *RequestLogFilter) DoFilter(w http.ResponseWriter, r *http.Request, chain http.Handler) {
	start := f.now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	chain.ServeHTTP(recorder, r)
	f.logger.Info(fmt.Sprintf("%s %s %s %d %dB %v", r.RemoteAddr, r.Method, r.URL.RequestURI(), recorder.status, recorder.written, f.now().Sub(start)))
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	written     int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(status int) {
	if !s.wroteHeader {
		s.status = status
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	n, err := s.ResponseWriter.Write(b)
	s.written += n
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
