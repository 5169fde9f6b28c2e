// internal/analytics/client_test.go
package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"finsight/internal/common/config"
	commonerrors "finsight/internal/common/errors"
	"finsight/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) config.AnalyticsConfig {
	return config.AnalyticsConfig{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Timeout:    2000,
		RateLimit:  100,
		RateBurst:  100,
		MaxRetries: 2,
		RetryDelay: 1,
	}
}

func TestListSymbols(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/symbols/MOEX", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode([]SymbolListing{
			{Symbol: "SBER.MOEX", Name: "Sberbank", Currency: "RUB"},
			{Symbol: "GAZP.MOEX", Name: "Gazprom", Currency: "RUB"},
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), logger.NewTestLogger(t))

	listings, err := client.ListSymbols(context.Background(), "MOEX")
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "SBER.MOEX", listings[0].Symbol)
	assert.Equal(t, "RUB", listings[0].Currency)
}

func TestDescribeAssetHeterogeneousValues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/assets/AAPL.US/describe", r.URL.Path)
		assert.Equal(t, "10", r.URL.Query().Get("years"))
		assert.Equal(t, "USD", r.URL.Query().Get("currency"))
		w.Write([]byte(`{
			"symbol": "AAPL.US",
			"currency": "USD",
			"rows": [
				{"metric": "cagr", "window": "10 years", "value": 0.182},
				{"metric": "first_date", "value": "2005-03-01"},
				{"metric": "last_date", "value": {"year": 2024, "month": 6}}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), logger.NewTestLogger(t))

	resp, err := client.DescribeAsset(context.Background(), "AAPL.US", 10, "USD")
	require.NoError(t, err)
	require.Len(t, resp.Rows, 3)

	num, ok := resp.Rows[0].AsNumber()
	require.True(t, ok)
	assert.InDelta(t, 0.182, num, 1e-9)

	str, ok := resp.Rows[1].AsString()
	require.True(t, ok)
	assert.Equal(t, "2005-03-01", str)

	period, ok := resp.Rows[2].AsPeriod()
	require.True(t, ok)
	assert.Equal(t, 2024, period.Year)
	assert.Equal(t, 6, period.Month)
}

func TestPeriodEndOfMonth(t *testing.T) {
	tests := []struct {
		name   string
		period PeriodValue
		want   time.Time
	}{
		{"june", PeriodValue{Year: 2024, Month: 6}, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)},
		{"february leap", PeriodValue{Year: 2024, Month: 2}, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"december", PeriodValue{Year: 2023, Month: 12}, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.period.EndOfMonth())
		})
	}
}

func TestDescribePortfolioPostsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/portfolio/describe", r.URL.Path)

		var req PortfolioDescribeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"SBER.MOEX", "GAZP.MOEX"}, req.Assets)
		assert.Equal(t, "RUB", req.Currency)

		json.NewEncoder(w).Encode(PortfolioDescribeResponse{
			Currency: "RUB",
			Rows: []DescribeRow{
				{Metric: "cagr", Window: "10 years", Value: json.RawMessage(`0.11`)},
			},
			FirstDates: map[string]string{
				"SBER.MOEX": "2007-07-01",
				"GAZP.MOEX": "2006-01-01",
			},
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), logger.NewTestLogger(t))

	resp, err := client.DescribePortfolio(context.Background(), &PortfolioDescribeRequest{
		Assets:   []string{"SBER.MOEX", "GAZP.MOEX"},
		Weights:  []float64{0.6, 0.4},
		Currency: "RUB",
		Years:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, "2006-01-01", resp.FirstDates["GAZP.MOEX"])
	require.Len(t, resp.Rows, 1)
}

func TestNotFoundIsTerminal(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), logger.NewTestLogger(t))

	_, err := client.DescribeAsset(context.Background(), "NOPE.US", 10, "USD")
	require.Error(t, err)

	stdErr, ok := err.(*commonerrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrorCode("RESOURCE_NOT_FOUND"), stdErr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "404 must not be retried")
}

func TestServerErrorRetriesThenSucceeds(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode([]SymbolListing{{Symbol: "XAU.COMM", Name: "Gold", Currency: "USD"}})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), logger.NewTestLogger(t))

	listings, err := client.ListSymbols(context.Background(), "COMM")
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestServerErrorExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), logger.NewTestLogger(t))

	_, err := client.ListSymbols(context.Background(), "US")
	require.Error(t, err)

	stdErr, ok := err.(*commonerrors.StandardError)
	require.True(t, ok)
	assert.Equal(t, commonerrors.ErrCodeProviderConnectionFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}
