package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"
)

const (
	defaultProviderURL = "http://localhost:5005"
	defaultModel       = "Facenet"
)

// Client talks to a DeepFace-compatible sidecar over HTTP.
type Client struct {
	baseURL string
	model   string
	client  *http.Client
}

var _ Provider = (*Client)(nil)

// NewClient creates a new provider client. A zero timeout means no client-side timeout.
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultProviderURL
	}
	if model == "" {
		model = defaultModel
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Model returns the model name used for representations
func (c *Client) Model() string {
	return c.model
}

// APIError is a non-200 response from the sidecar.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

type extractFacesResponse struct {
	Results []DetectedFace `json:"results"`
}

type representResponse struct {
	Results []Representation `json:"results"`
}

// postMultipartImage posts the image as the "file" part together with the given form fields.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte, fields map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image.jpg"`)
	h.Set("Content-Type", detectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if isNoFaceResponse(resp.StatusCode, apiErr.Body) {
			return nil, fmt.Errorf("%w: %w", ErrNoFace, apiErr)
		}
		return nil, apiErr
	}

	return body, nil
}

// isNoFaceResponse recognises the sidecar's "Face could not be detected" rejection.
func isNoFaceResponse(status int, body string) bool {
	if status != http.StatusBadRequest && status != http.StatusUnprocessableEntity {
		return false
	}
	return strings.Contains(strings.ToLower(body), "could not be detected")
}

// DetectFaces calls POST /extract_faces.
func (c *Client) DetectFaces(ctx context.Context, imageData []byte, opts DetectOptions) ([]DetectedFace, error) {
	if len(imageData) == 0 {
		return nil, errors.New("empty image")
	}
	body, err := c.postMultipartImage(ctx, "/extract_faces", imageData, map[string]string{
		"detector_backend":  opts.Detector,
		"anti_spoofing":     strconv.FormatBool(opts.AntiSpoofing),
		"align":             strconv.FormatBool(opts.Align),
		"enforce_detection": strconv.FormatBool(opts.EnforceDetection),
	})
	if err != nil {
		return nil, err
	}

	var faces extractFacesResponse
	if err := json.Unmarshal(body, &faces); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return faces.Results, nil
}

// Represent calls POST /represent. An empty opts.Model falls back to the client model.
func (c *Client) Represent(ctx context.Context, imageData []byte, opts RepresentOptions) ([]Representation, error) {
	if len(imageData) == 0 {
		return nil, errors.New("empty image")
	}
	model := opts.Model
	if model == "" {
		model = c.model
	}
	body, err := c.postMultipartImage(ctx, "/represent", imageData, map[string]string{
		"model_name":        model,
		"detector_backend":  opts.Detector,
		"enforce_detection": strconv.FormatBool(opts.EnforceDetection),
	})
	if err != nil {
		return nil, err
	}

	var reps representResponse
	if err := json.Unmarshal(body, &reps); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return reps.Results, nil
}

// detectMIMEType detects the MIME type from image data
func detectMIMEType(data []byte) string {
	if len(data) < 8 {
		return "application/octet-stream"
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return "image/jpeg"
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	// BMP: 42 4D
	if data[0] == 0x42 && data[1] == 0x4D {
		return "image/bmp"
	}
	// WebP: RIFF....WEBP
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP" {
		return "image/webp"
	}
	return "application/octet-stream"
}
