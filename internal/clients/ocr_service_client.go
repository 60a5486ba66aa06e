/**
 * OCR Service Client - remote text recognition over HTTP
 *
 * Sends one cropped region at a time to an OCR service and returns its text.
 * The service may answer synchronously (200 with the text) or accept the
 * request as a task (202 with a task id), in which case the client polls
 * the task until it completes, fails or the context ends.
 */

package clients

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/adverant/nexus/flightcapture-worker/internal/logging"
)

const defaultPollInterval = 250 * time.Millisecond

// OCRServiceClient handles communication with the OCR service
type OCRServiceClient struct {
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	logger       *logging.Logger
}

// TextRequest asks the service to read one image
type TextRequest struct {
	Image    string                 `json:"image"`  // Base64 encoded PNG
	Format   string                 `json:"format"` // always "base64"
	Language string                 `json:"language,omitempty"`
	Region   string                 `json:"region,omitempty"` // ROI name, for service-side logs
	JobID    string                 `json:"jobId,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// TextResponse is the synchronous answer
type TextResponse struct {
	Success bool     `json:"success"`
	Data    TextData `json:"data"`
	Message string   `json:"message"`
}

// TextData contains the recognized text
type TextData struct {
	Text           string  `json:"text"`
	Confidence     float64 `json:"confidence"`
	ModelUsed      string  `json:"modelUsed"`
	ProcessingTime int64   `json:"processingTime"` // milliseconds
}

// TaskAccepted is the 202 answer for queued requests
type TaskAccepted struct {
	Success bool `json:"success"`
	Data    struct {
		TaskID string `json:"taskId"`
	} `json:"data"`
	Message string `json:"message"`
}

// TaskStatusResponse is the answer of GET /api/tasks/{id}
type TaskStatusResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Task TaskInfo `json:"task"`
	} `json:"data"`
	Message string `json:"message"`
}

// TaskInfo describes a queued recognition task
type TaskInfo struct {
	ID       string    `json:"id"`
	Status   string    `json:"status"` // pending | processing | completed | failed
	Progress int       `json:"progress"`
	Result   *TextData `json:"result,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// NewOCRServiceClient creates a new OCR service client
func NewOCRServiceClient(baseURL string, timeout time.Duration) *OCRServiceClient {
	return &OCRServiceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		pollInterval: defaultPollInterval,
		logger:       logging.NewLogger("OCRServiceClient"),
	}
}

// SetPollInterval changes how often queued tasks are polled.
func (c *OCRServiceClient) SetPollInterval(d time.Duration) {
	if d > 0 {
		c.pollInterval = d
	}
}

// ExtractTextFromBytes encodes the image and requests its text.
func (c *OCRServiceClient) ExtractTextFromBytes(ctx context.Context, imageData []byte, region, language string) (*TextData, error) {
	return c.ExtractText(ctx, &TextRequest{
		Image:    base64.StdEncoding.EncodeToString(imageData),
		Format:   "base64",
		Language: language,
		Region:   region,
	})
}

// ExtractText sends the request and waits for the text, polling when the
// service queues the work.
func (c *OCRServiceClient) ExtractText(ctx context.Context, req *TextRequest) (*TextData, error) {
	endpoint := fmt.Sprintf("%s/api/internal/vision/extract-text", c.baseURL)

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Source", "flightcapture-worker")
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to OCR service failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		var textResp TextResponse
		if err := json.Unmarshal(body, &textResp); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		if !textResp.Success {
			return nil, fmt.Errorf("OCR service operation failed: %s", textResp.Message)
		}
		c.logger.Debug("Text extraction complete",
			"region", req.Region,
			"modelUsed", textResp.Data.ModelUsed,
			"textLength", len(textResp.Data.Text))
		return &textResp.Data, nil

	case http.StatusAccepted:
		var accepted TaskAccepted
		if err := json.Unmarshal(body, &accepted); err != nil {
			return nil, fmt.Errorf("failed to parse task response: %w", err)
		}
		if !accepted.Success || accepted.Data.TaskID == "" {
			return nil, fmt.Errorf("OCR service did not queue the request: %s", accepted.Message)
		}
		return c.WaitForTask(ctx, accepted.Data.TaskID)

	default:
		return nil, fmt.Errorf("OCR service returned error status %d: %s", resp.StatusCode, string(body))
	}
}

// GetTaskStatus fetches the state of a queued task
func (c *OCRServiceClient) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error) {
	endpoint := fmt.Sprintf("%s/api/tasks/%s", c.baseURL, taskID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create status request: %w", err)
	}
	req.Header.Set("X-Source", "flightcapture-worker")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status check failed with status %d: %s", resp.StatusCode, string(body))
	}

	var status TaskStatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}
	return &status, nil
}

// WaitForTask polls a task until it completes or fails. Transient status
// errors are logged and polling continues until ctx ends.
func (c *OCRServiceClient) WaitForTask(ctx context.Context, taskID string) (*TextData, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled while waiting for task %s: %w", taskID, ctx.Err())

		case <-ticker.C:
			status, err := c.GetTaskStatus(ctx, taskID)
			if err != nil {
				c.logger.Warn("Failed to get task status", "taskId", taskID, "error", err)
				continue
			}

			task := status.Data.Task
			switch task.Status {
			case "completed":
				if task.Result == nil {
					return &TextData{}, nil
				}
				return task.Result, nil
			case "failed":
				return nil, fmt.Errorf("task %s failed: %s", taskID, task.Error)
			case "pending", "processing":
				continue
			default:
				c.logger.Warn("Unknown task status", "taskId", taskID, "status", task.Status)
			}
		}
	}
}

// HealthCheck verifies the OCR service is available
func (c *OCRServiceClient) HealthCheck(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/api/health", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("health check failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
