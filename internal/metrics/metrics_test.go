package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveTagAndRoute(t *testing.T) {
	ObserveTagAndRoute("dns", 5*time.Millisecond)

	mf, err := TagAndRouteDuration.MetricVec.GetMetricWithLabelValues("dns")
	require.NoError(t, err)

	var m dto.Metric
	require.NoError(t, mf.(interface{ Write(*dto.Metric) error }).Write(&m))
	assert.NotZero(t, m.GetHistogram().GetSampleCount())
}

func TestRecordPipelineDrop(t *testing.T) {
	RecordPipelineDrop("dns")
	RecordPipelineDrop("dns")

	c, err := PipelineDrops.GetMetricWithLabelValues("dns")
	require.NoError(t, err)

	var m dto.Metric
	require.NoError(t, c.Write(&m))
	assert.GreaterOrEqual(t, m.GetCounter().GetValue(), 2.0)
}

func TestRecordTableLockDrop(t *testing.T) {
	RecordTableLockDrop("udp")

	c, err := TableLockWaitDrops.GetMetricWithLabelValues("udp")
	require.NoError(t, err)

	var m dto.Metric
	require.NoError(t, c.Write(&m))
	assert.GreaterOrEqual(t, m.GetCounter().GetValue(), 1.0)
}

func TestHandlerServesExposition(t *testing.T) {
	RecordPipelineDrop("dhcpv4")

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "processors_udp_pipeline_drops_total")
}
