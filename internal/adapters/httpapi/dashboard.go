// Package httpapi declares HTTP contracts and route registration helpers.
package httpapi

import (
	"io"
	"net/http"
	"time"
)

// dashboardHandler serves the tap pad page.
type dashboardHandler struct{}

// newDashboardHandler creates a new dashboard handler.
func newDashboardHandler() *dashboardHandler {
	return &dashboardHandler{}
}

// HandleDashboard handles GET /dashboard requests.
// Returns an HTML page with the tap pad and a WebSocket client that renders
// live session updates from /live.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	// http.ServeFileFS needs Go 1.22+; serve the embedded file directly so
	// the package still builds with Go 1.21.
	f, err := dashboardFS.Open("dashboard.html")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	rs, ok := f.(io.ReadSeeker)
	if !ok {
		http.Error(w, "500 internal server error", http.StatusInternalServerError)
		return
	}
	http.ServeContent(w, r, "dashboard.html", time.Time{}, rs)
}

// HandleRoot redirects the bare root to the dashboard and 404s everything
// else that fell through the mux.
func (h *dashboardHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
