package verdict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/marketpulse/core/internal/model"
	coreerrors "github.com/marketpulse/core/pkg/errors"
	"github.com/marketpulse/core/pkg/logger"
)

// HTTPAgentClient implements SentimentAdapter, TechnicalAdapter,
// RiskAdapter, DecisionAdapter and ReportAdapter against an external
// agent service over plain JSON/HTTP, the same stdlib http.Client idiom
// C1's adapters use rather than a generated SDK — these five agents
// stay external collaborators per SPEC_FULL.md §1, this is the narrow
// transport binding them to the assembler's interfaces.
type HTTPAgentClient struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewHTTPAgentClient builds a client against baseURL, expected to expose
// POST /sentiment, /technical, /risk, /decision, /report.
func NewHTTPAgentClient(baseURL string, log *logger.Logger) *HTTPAgentClient {
	return &HTTPAgentClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 8 * time.Second},
		log:     log.Named("agent_client"),
	}
}

func (c *HTTPAgentClient) post(ctx context.Context, path string, req, resp interface{}) error {
	body, err := json.Marshal(req)
	if err != nil {
		return coreerrors.Schema("encoding agent request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return coreerrors.Transient("building agent request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return coreerrors.AdapterDegraded(fmt.Sprintf("agent call to %s failed", path), err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 500 {
		return coreerrors.Transient(fmt.Sprintf("agent %s returned %d", path, httpResp.StatusCode), nil)
	}
	if httpResp.StatusCode >= 400 {
		return coreerrors.AdapterDegraded(fmt.Sprintf("agent %s returned %d", path, httpResp.StatusCode), nil)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(resp); err != nil {
		return coreerrors.Schema(fmt.Sprintf("decoding %s response", path), err)
	}
	return nil
}

type sentimentRequest struct {
	Subject    string   `json:"subject"`
	ChunkTexts []string `json:"chunk_texts"`
}

func (c *HTTPAgentClient) Sentiment(ctx context.Context, subject string, chunkTexts []string) (SentimentOutput, error) {
	var out SentimentOutput
	err := c.post(ctx, "/sentiment", sentimentRequest{Subject: subject, ChunkTexts: chunkTexts}, &out)
	return out, err
}

type technicalRequest struct {
	Subject string `json:"subject"`
}

func (c *HTTPAgentClient) Technical(ctx context.Context, subject string) (TechnicalOutput, error) {
	var out TechnicalOutput
	err := c.post(ctx, "/technical", technicalRequest{Subject: subject}, &out)
	return out, err
}

type riskRequest struct {
	Subject   string          `json:"subject"`
	Technical TechnicalOutput `json:"technical"`
}

func (c *HTTPAgentClient) Risk(ctx context.Context, subject string, technical TechnicalOutput) (RiskOutput, error) {
	var out RiskOutput
	err := c.post(ctx, "/risk", riskRequest{Subject: subject, Technical: technical}, &out)
	return out, err
}

type decisionRequest struct {
	Subject   string          `json:"subject"`
	Sentiment SentimentOutput `json:"sentiment"`
	Technical TechnicalOutput `json:"technical"`
	Risk      RiskOutput      `json:"risk"`
}

func (c *HTTPAgentClient) Decision(ctx context.Context, subject string, sentiment SentimentOutput, technical TechnicalOutput, risk RiskOutput) (DecisionOutput, error) {
	var out DecisionOutput
	err := c.post(ctx, "/decision", decisionRequest{Subject: subject, Sentiment: sentiment, Technical: technical, Risk: risk}, &out)
	return out, err
}

type reportRequest struct {
	Subject        string  `json:"subject"`
	Recommendation string  `json:"recommendation"`
	Confidence     float64 `json:"confidence"`
	PrimaryDriver  string  `json:"primary_driver"`
}

type reportResponse struct {
	Narrative string `json:"narrative"`
}

func (c *HTTPAgentClient) Report(ctx context.Context, v model.Verdict) (string, error) {
	var out reportResponse
	err := c.post(ctx, "/report", reportRequest{
		Subject:        v.Subject,
		Recommendation: string(v.Recommendation),
		Confidence:     v.Confidence,
		PrimaryDriver:  v.PrimaryDriver,
	}, &out)
	return out.Narrative, err
}
