// File: internal/backends/remote.go
package backends

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/obsidiansec/bountyhound/api/schemas"
	"github.com/obsidiansec/bountyhound/internal/config"
	"github.com/obsidiansec/bountyhound/internal/network"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Remote job states reported by the scanner engines' job APIs.
const (
	jobStateSucceeded = "succeeded"
	jobStateFailed    = "failed"
)

// errJobFailed marks a remote job the engine itself reported as failed.
var errJobFailed = errors.New("remote job failed")

// jobClient speaks the uniform job-oriented protocol the remote scanner
// engines share:
//
//	POST /scan {target, profile}     -> {job_id}
//	GET  /scan/{job_id}              -> {status}
//	GET  /scan/{job_id}/results      -> engine-native findings
//
// Polling runs at a fixed interval under a backend-local job timeout. Both
// are advisory inner bounds; the caller's context still cancels everything
// from outside.
type jobClient struct {
	httpc        *network.Client
	endpoint     string
	apiKey       string
	pollInterval time.Duration
	jobTimeout   time.Duration
	logger       *zap.Logger
}

func newJobClient(httpc *network.Client, cfg config.RemoteScannerConfig, logger *zap.Logger) *jobClient {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = 120 * time.Second
	}
	return &jobClient{
		httpc:        httpc,
		endpoint:     cfg.Endpoint,
		apiKey:       cfg.APIKey,
		pollInterval: pollInterval,
		jobTimeout:   jobTimeout,
		logger:       logger,
	}
}

// submit starts a scan job. A transport-level failure here means the engine
// is unreachable and is wrapped in ErrBackendUnavailable so the backend can
// fall back to simulated results.
func (j *jobClient) submit(ctx context.Context, target schemas.Target) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"target":  target.URL,
		"profile": string(target.Profile.Kind),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal scan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.endpoint+"/scan", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	j.authorize(req)

	resp, err := j.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("scan submission rejected with HTTP %d", resp.StatusCode)
	}

	var submitted struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return "", fmt.Errorf("failed to decode job submission response: %w", err)
	}
	if submitted.JobID == "" {
		return "", fmt.Errorf("scan submission returned an empty job id")
	}

	j.logger.Debug("Remote scan job submitted", zap.String("job_id", submitted.JobID))
	return submitted.JobID, nil
}

// await polls the job status at the fixed interval until the job settles or
// the backend-local job timeout elapses.
func (j *jobClient) await(ctx context.Context, jobID string) error {
	pollCtx, cancel := context.WithTimeout(ctx, j.jobTimeout)
	defer cancel()

	operation := func() error {
		status, err := j.status(pollCtx, jobID)
		if err != nil {
			return backoff.Permanent(err)
		}
		switch status {
		case jobStateSucceeded:
			return nil
		case jobStateFailed:
			return backoff.Permanent(errJobFailed)
		default:
			return fmt.Errorf("job %s still %s", jobID, status)
		}
	}

	return backoff.Retry(operation, backoff.WithContext(backoff.NewConstantBackOff(j.pollInterval), pollCtx))
}

// status fetches the current job state.
func (j *jobClient) status(ctx context.Context, jobID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.endpoint+"/scan/"+jobID, nil)
	if err != nil {
		return "", err
	}
	j.authorize(req)

	resp, err := j.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to poll job %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("job status request returned HTTP %d", resp.StatusCode)
	}

	var state struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return "", fmt.Errorf("failed to decode job status: %w", err)
	}
	return state.Status, nil
}

// results fetches the engine-native findings payload for a finished job.
func (j *jobClient) results(ctx context.Context, jobID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.endpoint+"/scan/"+jobID+"/results", nil)
	if err != nil {
		return nil, err
	}
	j.authorize(req)

	resp, err := j.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results for job %s: %w", jobID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("results request returned HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (j *jobClient) authorize(req *http.Request) {
	if j.apiKey != "" {
		req.Header.Set("X-Api-Key", j.apiKey)
	}
}
