package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTransitionCounts(t *testing.T) {
	before := testutil.ToFloat64(transitions.WithLabelValues("open", "assigned"))
	RecordTransition("open", "assigned")
	assert.Equal(t, before+1, testutil.ToFloat64(transitions.WithLabelValues("open", "assigned")))
}

func TestSetProjectsByState(t *testing.T) {
	SetProjectsByState(map[string]int64{"open": 4, "cancelled": 1})
	assert.Equal(t, float64(4), testutil.ToFloat64(projectsByState.WithLabelValues("open")))

	SetProjectsByState(map[string]int64{"open": 2})
	assert.Equal(t, float64(2), testutil.ToFloat64(projectsByState.WithLabelValues("open")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordHTTP("get", "/fetch-projects", 200, 10*time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `freelance_http_requests_total{method="GET",route="/fetch-projects",status="200"}`)
}
