package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/tapline/tapline/internal/adapters/prefs"
)

const requestTimeout = 5 * time.Second

// errDaemonDown marks connection failures so commands can print a friendly
// "daemon not running" hint instead of a raw dial error.
var errDaemonDown = errors.New("daemon not running")

// daemonURL normalizes an address flag into a base URL. Bare ports like
// ":9480" and host:port pairs are accepted alongside full URLs.
func daemonURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimRight(addr, "/")
	}
	if strings.HasPrefix(addr, ":") {
		return "http://127.0.0.1" + addr
	}
	return "http://" + strings.TrimRight(addr, "/")
}

// openPrefsStore opens the local SQLite preference store at path.
func openPrefsStore(path string) (prefs.Store, error) {
	store, err := prefs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open preference store: %w", err)
	}
	return store, nil
}

// doJSON issues a request with an optional JSON body and decodes a JSON
// reply into out (when out is non-nil). Connection failures map to
// errDaemonDown.
func doJSON(method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		var netErr *net.OpError
		if errors.As(err, &netErr) {
			return fmt.Errorf("%w at %s", errDaemonDown, url)
		}
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Message != "" {
			return fmt.Errorf("daemon rejected request: %s", apiErr.Message)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// scrapeMetrics fetches the daemon's Prometheus exposition and parses it
// into metric families keyed by name.
func scrapeMetrics(baseURL string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/healthz", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		var netErr *net.OpError
		if errors.As(err, &netErr) {
			return nil, errDaemonDown
		}
		return nil, fmt.Errorf("scrape metrics: %w", err)
	}
	defer resp.Body.Close()

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(resp.Body)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	// A non-empty result with a non-nil err means a partial parse
	// (trailing lines, format warnings). Treat as success.
	return mfs, nil
}

// counterTotal sums the counter values across all label combinations of a
// metric family. Missing families read as zero.
func counterTotal(mfs map[string]*dto.MetricFamily, name string) float64 {
	mf, ok := mfs[name]
	if !ok {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	return total
}

// gaugeValue reads the first gauge value of a metric family.
func gaugeValue(mfs map[string]*dto.MetricFamily, name string) (float64, bool) {
	mf, ok := mfs[name]
	if !ok || len(mf.GetMetric()) == 0 {
		return 0, false
	}
	return mf.GetMetric()[0].GetGauge().GetValue(), true
}
