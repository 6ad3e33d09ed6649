package verifyclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"dfi/internal/envelope"
)

// Notifier surfaces user facing messages. The CLI prints them; a UI
// would toast them.
type Notifier interface {
	Notify(message string)
}

// RequestError is a non-2xx response from the verification endpoint.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("verification request failed (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("verification request failed (%d)", e.StatusCode)
}

// Client submits verification uploads and consumes the progress stream.
type Client struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

type Option func(*Client)

// WithAccessToken sends the token as a bearer credential on every
// submission. The endpoint sits behind authentication, so any client
// outside the browser session flow needs one.
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.accessToken = token
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	// No overall timeout: the verification response streams for as long
	// as the verifier runs.
	c := &Client{
		baseURL: baseURL,
		client:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit uploads the document, video and claimed name and returns the
// live envelope stream. The caller owns closing the returned Stream.
func (c *Client) Submit(ctx context.Context, documentPath, videoPath, fullName string) (*Stream, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		err := writeUploadForm(writer, documentPath, videoPath, fullName)
		if closeErr := writer.Close(); err == nil {
			err = closeErr
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/verify", pr)
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verification request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		reqErr := &RequestError{StatusCode: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			reqErr.Message = body.Error
		}
		return nil, reqErr
	}

	return &Stream{
		body:    resp.Body,
		decoder: envelope.NewDecoder(resp.Body),
	}, nil
}

func writeUploadForm(writer *multipart.Writer, documentPath, videoPath, fullName string) error {
	for field, path := range map[string]string{
		"document": documentPath,
		"video":    videoPath,
	} {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s upload: %w", field, err)
		}

		part, err := writer.CreateFormFile(field, filepath.Base(path))
		if err != nil {
			file.Close()
			return fmt.Errorf("failed to create %s form part: %w", field, err)
		}
		if _, err := io.Copy(part, file); err != nil {
			file.Close()
			return fmt.Errorf("failed to copy %s upload: %w", field, err)
		}
		file.Close()
	}

	if err := writer.WriteField("fullName", fullName); err != nil {
		return fmt.Errorf("failed to write full name field: %w", err)
	}

	return nil
}

// Stream is the decoded verification response body.
type Stream struct {
	body    io.ReadCloser
	decoder *envelope.Decoder
}

// Next returns the next envelope, or io.EOF when the stream ends.
func (s *Stream) Next() (envelope.Envelope, error) {
	return s.decoder.Next()
}

func (s *Stream) Close() error {
	return s.body.Close()
}
