package probes

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/obsidiansec/bountyhound/api/schemas"
	"github.com/obsidiansec/bountyhound/internal/config"
	"github.com/obsidiansec/bountyhound/internal/network"
)

func testClient(t *testing.T) *network.Client {
	t.Helper()
	return network.NewClient(config.HTTPConfig{}, zap.NewNop())
}

func targetFor(serverURL string) schemas.Target {
	return schemas.Target{URL: serverURL + "/page?q=hello"}
}

func TestCandidateParams(t *testing.T) {
	assert.ElementsMatch(t, []string{"q", "id"},
		candidateParams("https://example.com/x?q=1&id=2"))
	assert.Equal(t, defaultParams, candidateParams("https://example.com/x"))
	assert.Equal(t, defaultParams, candidateParams("://bad"))
}

func TestInjectPayload(t *testing.T) {
	out, ok := injectPayload("https://example.com/x?q=1", "q", "PAYLOAD")
	require.True(t, ok)
	assert.Contains(t, out, "q=PAYLOAD")

	_, ok = injectPayload("://bad", "q", "PAYLOAD")
	assert.False(t, ok)
}

func TestReflectedMarkerProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Vulnerable page: echoes q verbatim.
		fmt.Fprintf(w, "<html>You searched for: %s</html>", r.URL.Query().Get("q"))
	}))
	defer server.Close()

	probe := NewReflectedMarkerProbe(testClient(t), nil, zap.NewNop())
	findings, probeErrs := probe.Run(context.Background(), targetFor(server.URL))

	assert.Empty(t, probeErrs)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, schemas.VulnXSS, f.Type)
	assert.Equal(t, schemas.SeverityMedium, f.Severity)
	assert.Equal(t, SourceName, f.Source)
	assert.Equal(t, "q", f.Parameter)
	assert.InDelta(t, 0.78, f.Confidence, 1e-9)
}

func TestReflectedMarkerProbe_EncodedReflectionStillDetected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// html/template-style escaping of angle brackets only.
		q := r.URL.Query().Get("q")
		escaped := ""
		for _, c := range q {
			switch c {
			case '<':
				escaped += "&lt;"
			default:
				escaped += string(c)
			}
		}
		fmt.Fprintf(w, "<html>%s</html>", escaped)
	}))
	defer server.Close()

	probe := NewReflectedMarkerProbe(testClient(t), nil, zap.NewNop())
	findings, _ := probe.Run(context.Background(), targetFor(server.URL))
	assert.NotEmpty(t, findings)
}

func TestReflectedMarkerProbe_CleanPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>Nothing to see here.</html>")
	}))
	defer server.Close()

	probe := NewReflectedMarkerProbe(testClient(t), nil, zap.NewNop())
	findings, probeErrs := probe.Run(context.Background(), targetFor(server.URL))
	assert.Empty(t, findings)
	assert.Empty(t, probeErrs)
}

func TestErrorSignatureProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "hello" {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "You have an error in your SQL syntax near ''")
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	probe := NewErrorSignatureProbe(testClient(t), nil, zap.NewNop())
	findings, probeErrs := probe.Run(context.Background(), targetFor(server.URL))

	assert.Empty(t, probeErrs)
	// One finding per parameter, not one per payload.
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, schemas.VulnSQLi, f.Type)
	assert.Equal(t, schemas.SeverityHigh, f.Severity)
	assert.Contains(t, f.Evidence, "sql syntax")
}

func TestCommandOutputProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		if q != "hello" {
			fmt.Fprint(w, "hello\nuid=33(www-data) gid=33(www-data) groups=33(www-data)")
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	probe := NewCommandOutputProbe(testClient(t), nil, zap.NewNop())
	findings, probeErrs := probe.Run(context.Background(), targetFor(server.URL))

	assert.Empty(t, probeErrs)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, schemas.VulnRCE, f.Type)
	assert.Equal(t, schemas.SeverityCritical, f.Severity)
	assert.InDelta(t, 0.90, f.Confidence, 1e-9)
}

func TestCommandOutputProbe_UidInProseIsNotEnough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "Set the uid= attribute in your config file.")
	}))
	defer server.Close()

	probe := NewCommandOutputProbe(testClient(t), nil, zap.NewNop())
	findings, _ := probe.Run(context.Background(), targetFor(server.URL))
	assert.Empty(t, findings)
}

func TestOpenRedirectProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if dest := r.URL.Query().Get("next"); dest != "" {
			http.Redirect(w, r, dest, http.StatusFound)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	probe := NewOpenRedirectProbe(testClient(t), nil, zap.NewNop())
	findings, probeErrs := probe.Run(context.Background(), schemas.Target{URL: server.URL + "/login"})

	assert.Empty(t, probeErrs)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, schemas.VulnOpenRedirect, f.Type)
	assert.Equal(t, "next", f.Parameter)
	assert.Contains(t, f.Evidence, attackerHost)
}

func TestOpenRedirectProbe_ValidatedRedirectIgnored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Destination validated server-side: always redirects home.
		if r.URL.Query().Get("next") != "" {
			http.Redirect(w, r, "/home", http.StatusFound)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer server.Close()

	probe := NewOpenRedirectProbe(testClient(t), nil, zap.NewNop())
	findings, _ := probe.Run(context.Background(), schemas.Target{URL: server.URL + "/login"})
	assert.Empty(t, findings)
}

func TestProbe_UnreachableTargetRecoversPerAttempt(t *testing.T) {
	// Closed port: every attempt fails, every failure is recovered.
	probe := NewErrorSignatureProbe(testClient(t), nil, zap.NewNop())
	findings, probeErrs := probe.Run(context.Background(),
		schemas.Target{URL: "http://127.0.0.1:1/page?q=1"})

	assert.Empty(t, findings)
	assert.NotEmpty(t, probeErrs)
	for _, pe := range probeErrs {
		assert.Equal(t, probe.Name(), pe.Probe)
		assert.Error(t, pe.Err)
	}
}
