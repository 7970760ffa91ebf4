package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	m := New(prometheus.NewRegistry())
	client := &http.Client{Transport: m.InstrumentTransport(nil)}

	for _, path := range []string{"/courses", "/courses", "/missing"} {
		resp, err := client.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Requests.WithLabelValues("200", "get")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("404", "get")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
}

func TestObserveScan(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveScan(OutcomeFresh)
	m.ObserveScan(OutcomeFresh)
	m.ObserveScan(OutcomeInvalid)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Scans.WithLabelValues(OutcomeFresh)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Scans.WithLabelValues(OutcomeInvalid)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Scans.WithLabelValues(OutcomeAlready)))
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}
