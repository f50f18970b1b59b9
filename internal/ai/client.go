package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"quickai/api/internal/config"
)

// ErrProvider covers every upstream failure: transport errors, timeouts and
// non-2xx responses. Callers treat all of them the same way and never retry.
var ErrProvider = errors.New("ai provider request failed")

// Client talks to the hosted generation services: an OpenAI-compatible chat
// endpoint for text and a clipdrop-style endpoint for image work. Per-call
// deadlines come from the request context set up by the caller.
type Client struct {
	http        *http.Client
	chatBaseURL string
	imageBase   string
	apiKey      string
	imageAPIKey string
	model       string
}

func NewClient(cfg config.AIConfig) *Client {
	return &Client{
		http:        &http.Client{Timeout: cfg.RequestTimeout},
		chatBaseURL: strings.TrimSuffix(cfg.ChatBaseURL, "/"),
		imageBase:   strings.TrimSuffix(cfg.ImageBaseURL, "/"),
		apiKey:      cfg.APIKey,
		imageAPIKey: cfg.ImageAPIKey,
		model:       cfg.Model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// GenerateText runs one chat completion and returns the assistant message.
func (c *Client) GenerateText(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload := chatRequest{
		Model:       c.model,
		Temperature: 0.7,
		MaxTokens:   maxTokens,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}
	return c.chat(ctx, payload)
}

// ReviewResume sends the PDF inline alongside the review prompt.
func (c *Client) ReviewResume(ctx context.Context, pdf []byte) (string, error) {
	const prompt = "Review the following resume and provide constructive feedback on its strengths, weaknesses, and areas for improvement."

	payload := chatRequest{
		Model:       c.model,
		Temperature: 0.7,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []map[string]any{
					{"type": "text", "text": prompt},
					{
						"type":      "input_file",
						"filename":  "resume.pdf",
						"file_data": "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(pdf),
					},
				},
			},
		},
	}
	return c.chat(ctx, payload)
}

func (c *Client) chat(ctx context.Context, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatBaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	respBody, err := c.do(req)
	if err != nil {
		return "", err
	}

	content := gjson.GetBytes(respBody, "choices.0.message.content").String()
	if content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrProvider)
	}
	return content, nil
}

// GenerateImage turns a prompt into PNG bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("prompt", prompt); err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}

	return c.imageCall(ctx, "/text-to-image/v1", body, writer.FormDataContentType())
}

// RemoveBackground returns the image with its background stripped.
func (c *Client) RemoveBackground(ctx context.Context, image []byte, mimeType string) ([]byte, error) {
	body, contentType, err := imageForm(image, mimeType, nil)
	if err != nil {
		return nil, err
	}
	return c.imageCall(ctx, "/remove-background/v1", body, contentType)
}

// RemoveObject erases the named object from the image.
func (c *Client) RemoveObject(ctx context.Context, image []byte, mimeType string, object string) ([]byte, error) {
	body, contentType, err := imageForm(image, mimeType, map[string]string{"object": object})
	if err != nil {
		return nil, err
	}
	return c.imageCall(ctx, "/remove-object/v1", body, contentType)
}

func imageForm(image []byte, mimeType string, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image_file", "image"+extensionFor(mimeType))
	if err != nil {
		return nil, "", fmt.Errorf("build image form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", fmt.Errorf("build image form: %w", err)
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("build image form: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("build image form: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func (c *Client) imageCall(ctx context.Context, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.imageBase+path, body)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-api-key", c.imageAPIKey)

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrProvider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
	}
	return body, nil
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
