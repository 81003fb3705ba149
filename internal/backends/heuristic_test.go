package backends

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/obsidiansec/bountyhound/api/schemas"
)

func TestHeuristicBackend_MissingHeadersAndBanner(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "Apache/2.4.41 (Ubuntu)")
		fmt.Fprint(w, "<html>home</html>")
	}))
	defer server.Close()

	b := NewHeuristicBackend(testHTTPClient(t), zap.NewNop())
	result, err := b.Run(context.Background(), schemas.Target{URL: server.URL})
	require.NoError(t, err)

	assert.Equal(t, schemas.ProvenanceReal, result.Provenance)
	require.Len(t, result.Findings, 2)

	headers := result.Findings[0]
	assert.Equal(t, schemas.VulnInfoDisclosure, headers.Type)
	assert.Contains(t, headers.Evidence, "Content-Security-Policy")
	assert.Contains(t, headers.Evidence, "Strict-Transport-Security")

	banner := result.Findings[1]
	assert.Contains(t, banner.Evidence, "Apache/2.4.41")
}

func TestHeuristicBackend_HardenedTargetIsClean(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Content-Security-Policy", "default-src 'self'")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Strict-Transport-Security", "max-age=63072000")
		h.Set("Server", "frontdoor")
		if strings.HasPrefix(r.URL.Path, "/bhx-") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		fmt.Fprint(w, "<html>home</html>")
	}))
	defer server.Close()

	b := NewHeuristicBackend(testHTTPClient(t), zap.NewNop())
	result, err := b.Run(context.Background(), schemas.Target{URL: server.URL})
	require.NoError(t, err)
	assert.Empty(t, result.Findings)
}

func TestHeuristicBackend_VerboseErrorPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setHardenedHeaders(w)
		if strings.HasPrefix(r.URL.Path, "/bhx-") {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "Fatal error: Uncaught Error in /var/www/app/index.php\nStack trace:\n#0 {main}")
			return
		}
		fmt.Fprint(w, "<html>home</html>")
	}))
	defer server.Close()

	b := NewHeuristicBackend(testHTTPClient(t), zap.NewNop())
	result, err := b.Run(context.Background(), schemas.Target{URL: server.URL})
	require.NoError(t, err)

	require.Len(t, result.Findings, 1)
	f := result.Findings[0]
	assert.Equal(t, schemas.SeverityMedium, f.Severity)
	assert.Contains(t, f.Evidence, "verbose error page")
}

func TestHeuristicBackend_UnreachableTargetIsARealError(t *testing.T) {
	b := NewHeuristicBackend(testHTTPClient(t), zap.NewNop())
	result, err := b.Run(context.Background(), schemas.Target{URL: "http://127.0.0.1:1"})

	// Unlike the remote engines there is no simulated fallback here: if the
	// target itself is down there is nothing meaningful to report.
	require.Error(t, err)
	assert.Nil(t, result)
}

func setHardenedHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Security-Policy", "default-src 'self'")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Strict-Transport-Security", "max-age=63072000")
}
