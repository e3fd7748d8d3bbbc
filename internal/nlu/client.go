package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client talks to the oracle service over HTTP. Every call carries a
// hard deadline on top of the caller's context.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) NextStep(ctx context.Context, req NextStepRequest) (StepProposal, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return StepProposal{}, fmt.Errorf("marshaling oracle request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/next-step", bytes.NewReader(body))
	if err != nil {
		return StepProposal{}, fmt.Errorf("creating oracle request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		zap.L().Warn("oracle call failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		return StepProposal{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return StepProposal{}, fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, b)
	}

	var proposal StepProposal
	if err := json.NewDecoder(resp.Body).Decode(&proposal); err != nil {
		return StepProposal{}, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}
	return proposal, nil
}
