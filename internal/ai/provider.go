package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"
)

var (
	ErrMalformedResponse = errors.New("upstream returned no completion content")
)

// UpstreamError carries the error message reported by the provider on a
// non-success HTTP status.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream error (HTTP %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream error (HTTP %d)", e.StatusCode)
}

// NetworkError wraps a transport failure where no response arrived.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error calling upstream: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ProviderConfig is the upstream endpoint plus credential for one
// OpenAI-compatible provider.
type ProviderConfig struct {
	BaseURL string
	APIKey  string
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client speaks the /chat/completions protocol. Temperature is pinned
// low: grading should be as deterministic as the model allows.
type Client struct {
	http *http.Client
}

func NewClient() *Client {
	return &Client{
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// Complete sends one user message, optionally multimodal, and returns
// the first choice's content.
func (c *Client) Complete(ctx context.Context, provider ProviderConfig, model, prompt, imageData string) (string, error) {
	content := []contentPart{{Type: "text", Text: prompt}}
	if imageData != "" {
		if !strings.HasPrefix(imageData, "data:") {
			imageData = "data:image/jpeg;base64," + imageData
		}
		content = append(content, contentPart{
			Type:     "image_url",
			ImageURL: &imageURL{URL: imageData},
		})
	}

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: content}},
		Temperature: 0.1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	url := strings.TrimRight(provider.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+provider.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	var parsed chatResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode != http.StatusOK {
		msg := ""
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		logger.Debug.Printf("Upstream %s answered %d: %s", url, resp.StatusCode, msg)
		return "", &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	// a 200 that cannot be decoded is as unusable as one without choices
	if decodeErr != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, decodeErr)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", ErrMalformedResponse
	}

	return parsed.Choices[0].Message.Content, nil
}
