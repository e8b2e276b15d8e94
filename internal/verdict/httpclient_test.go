package verdict

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketpulse/core/internal/model"
	coreerrors "github.com/marketpulse/core/pkg/errors"
	"github.com/marketpulse/core/pkg/logger"
)

func TestHTTPAgentClientSentimentRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sentiment", r.URL.Path)
		var req sentimentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "AAPL", req.Subject)
		json.NewEncoder(w).Encode(SentimentOutput{Score: 0.4, Label: "positive", KeyFactors: []string{"earnings beat"}, Confidence: 0.8})
	}))
	defer srv.Close()

	client := NewHTTPAgentClient(srv.URL, logger.NewLogger())
	out, err := client.Sentiment(context.Background(), "AAPL", []string{"chunk one"})
	require.NoError(t, err)
	assert.Equal(t, 0.4, out.Score)
	assert.Equal(t, "positive", out.Label)
}

func TestHTTPAgentClientDegradesOn4xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewHTTPAgentClient(srv.URL, logger.NewLogger())
	_, err := client.Technical(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, coreerrors.Is(err, coreerrors.KindAdapterDegraded))
}

func TestHTTPAgentClientTreats5xxAsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewHTTPAgentClient(srv.URL, logger.NewLogger())
	_, err := client.Risk(context.Background(), "AAPL", TechnicalOutput{})
	require.Error(t, err)
	assert.True(t, coreerrors.Is(err, coreerrors.KindTransient))
}

func TestHTTPAgentClientReportRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/report", r.URL.Path)
		json.NewEncoder(w).Encode(reportResponse{Narrative: "AAPL looks strong heading into earnings."})
	}))
	defer srv.Close()

	client := NewHTTPAgentClient(srv.URL, logger.NewLogger())
	narrative, err := client.Report(context.Background(), model.Verdict{Subject: "AAPL", Recommendation: "BUY"})
	require.NoError(t, err)
	assert.Contains(t, narrative, "AAPL")
}
