package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_IsolatedRegistries(t *testing.T) {
	a := New()
	b := New()

	a.SignalsDropped.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.SignalsDropped))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.SignalsDropped))
}

func TestNew_WithOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(WithNamespace("test"), WithRegistry(reg))
	m.FlowCommits.WithLabelValues("ok").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_flow_commits_total")
}

func TestDefault_Singleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestWriteText(t *testing.T) {
	m := New()
	m.ScenarioSteps.WithLabelValues("set").Add(3)

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	assert.Contains(t, buf.String(), `flowgraph_scenario_steps_total{action="set"} 3`)
}

func TestHandler(t *testing.T) {
	m := New()
	m.SignalsDropped.Add(2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "flowgraph_signals_dropped_total 2")
}
