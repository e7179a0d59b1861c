package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"testhub/internal/logging"

	"github.com/google/uuid"
)

// Multipart field names of the upload-and-generate contract.
const (
	FieldFile         = "file"
	FieldUploadType   = "uploadType"
	FieldLanguage     = "language"
	FieldFramework    = "framework"
	FieldInstructions = "instructions"
)

// generateResponse is the 2xx body.
type generateResponse struct {
	Message string `json:"message"`
	Data    *struct {
		GeneratedScript  string `json:"generated_script"`
		OriginalFilename string `json:"original_filename"`
		UploadType       string `json:"upload_type"`
	} `json:"data"`
}

// errorResponse is the non-2xx body. The backend reports failures under
// "error"; "message" wins when both are present.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Client posts uploads to the test-generation backend.
type Client struct {
	endpoint   string
	httpClient *http.Client
	newID      func() string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithRequestIDFunc replaces the X-Request-ID generator.
func WithRequestIDFunc(fn func() string) ClientOption {
	return func(c *Client) { c.newID = fn }
}

// NewClient creates a client for the given endpoint URL. The default
// http.Client has no timeout: a submission runs until the backend answers
// or the caller's context ends.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL submissions are posted to.
func (c *Client) Endpoint() string { return c.endpoint }

// Generate performs exactly one POST for req and classifies the result.
func (c *Client) Generate(ctx context.Context, req Request) Outcome {
	requestID := c.newID()
	log := logging.WithRequestID(logging.CategoryUpload, requestID)
	timer := logging.StartTimer(logging.CategoryUpload, "upload-and-generate")
	defer timer.Stop()

	body, contentType, err := buildBody(req)
	if err != nil {
		log.Errorw("failed to build request body", "file", req.File.Name, "error", err)
		return TransportError{Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return TransportError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)

	log.Infow("submitting upload",
		"file", req.File.Name,
		"upload_type", string(req.UploadType),
		"language", req.Target.Language,
		"framework", req.Target.Framework,
		"bytes", body.Len(),
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Warnw("upload request failed", "error", err)
		return TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome := decodeHTTPError(resp)
		log.Warnw("backend returned error", "status", resp.StatusCode, "message", outcome.Message)
		return outcome
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Warnw("failed to parse backend response", "status", resp.StatusCode, "error", err)
		return TransportError{Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	success := Success{Message: parsed.Message}
	if parsed.Data != nil {
		success.Script = parsed.Data.GeneratedScript
		success.OriginalFilename = parsed.Data.OriginalFilename
		success.UploadType = parsed.Data.UploadType
	}
	log.Infow("backend returned script", "status", resp.StatusCode, "script_bytes", len(success.Script))
	return success
}

func decodeHTTPError(resp *http.Response) HTTPError {
	outcome := HTTPError{StatusCode: resp.StatusCode}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		outcome.Message = MsgUnparseableError
		return outcome
	}

	var parsed errorResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		outcome.Message = MsgUnparseableError
		return outcome
	}

	switch {
	case parsed.Message != "":
		outcome.Message = parsed.Message
	case parsed.Error != "":
		outcome.Message = parsed.Error
	default:
		outcome.Message = http.StatusText(resp.StatusCode)
	}
	return outcome
}

// buildBody encodes the file and target fields as multipart/form-data.
func buildBody(req Request) (*bytes.Buffer, string, error) {
	src, err := req.File.Open()
	if err != nil {
		return nil, "", fmt.Errorf("failed to open %s: %w", req.File.Name, err)
	}
	defer src.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(FieldFile, req.File.Name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", req.File.Name, err)
	}

	fields := []struct{ name, value string }{
		{FieldUploadType, string(req.UploadType)},
		{FieldLanguage, req.Target.Language},
		{FieldFramework, req.Target.Framework},
	}
	if req.Target.Instructions != "" {
		fields = append(fields, struct{ name, value string }{FieldInstructions, req.Target.Instructions})
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", f.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
