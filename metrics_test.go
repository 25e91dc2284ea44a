package streamgen

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveSend(t *testing.T) {
	m := NewMetrics(DefaultPacing, 3)

	m.ObserveSend(Click, nil, time.Millisecond)
	m.ObserveSend(Click, nil, time.Millisecond)
	m.ObserveSend(Click, errors.New("boom"), time.Millisecond)
	m.ObserveSend(Impression, nil, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.records.WithLabelValues("click", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.records.WithLabelValues("click", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.records.WithLabelValues("impression", "sent")))

	sent, failed := m.window.Totals()
	assert.Equal(t, int64(3), sent)
	assert.Equal(t, int64(1), failed)
}

func get(t *testing.T, url string) string {
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	body, err := ioutil.ReadAll(res.Body)
	require.NoError(t, err)

	return string(body)
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(DefaultPacing, 2)
	m.Track(func() Report { return Report{Attempted: 3, Sent: 2, Failed: 1} })
	m.ObserveSend(Impression, nil, time.Millisecond)

	s := httptest.NewServer(m.Handler())
	defer s.Close()

	assert.Contains(t, get(t, s.URL+"/metrics"), `streamgen_records_total{kind="impression",result="sent"} 1`)

	status := get(t, s.URL+"/status")
	assert.Contains(t, status, "attempted: 3, sent: 2, failed: 1")
	assert.Contains(t, status, "1/100 failed=0")
}

func TestMetrics_CloseNotStarted(t *testing.T) {
	assert.NoError(t, NewMetrics(DefaultPacing, 1).Close())
}
