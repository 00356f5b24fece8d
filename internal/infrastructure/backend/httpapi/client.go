package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kirillkom/knowledge-assistant/internal/core/domain"
	"github.com/kirillkom/knowledge-assistant/internal/infrastructure/resilience"
)

const statusSuccess = "success"

// Client talks to the document processing backend over its JSON/multipart
// HTTP API. Every call is attempted once; the breaker only stops calls to a
// backend that keeps failing.
type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
	validate   *validator.Validate
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
	HTTPClient         *http.Client
}

func New(baseURL string, options Options) *Client {
	httpClient := options.HTTPClient
	if httpClient == nil {
		timeout := options.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		executor:   options.ResilienceExecutor,
		validate:   validator.New(),
	}
}

type healthResponse struct {
	Status  string `json:"status" validate:"required"`
	Message string `json:"message"`
}

type uploadResponse struct {
	Status        string `json:"status" validate:"required"`
	Filename      string `json:"filename"`
	ChunkCount    int    `json:"chunk_count" validate:"gte=0"`
	VectorsStored int    `json:"vectors_stored" validate:"gte=0"`
	Message       string `json:"message"`
}

type summarizeRequest struct {
	Filename string `json:"filename"`
}

type summarizeResponse struct {
	Status   string `json:"status" validate:"required"`
	Filename string `json:"filename"`
	Summary  string `json:"summary"`
	Message  string `json:"message"`
}

type queryRequest struct {
	QueryText string `json:"query_text"`
}

type queryResponse struct {
	Status         string   `json:"status" validate:"required"`
	Query          string   `json:"query"`
	Answer         string   `json:"answer"`
	RelevantChunks []string `json:"relevant_chunks"`
	Message        string   `json:"message"`
}

// Ping checks that the backend answers on its root endpoint.
func (c *Client) Ping(ctx context.Context) error {
	var resp healthResponse
	err := c.execute(ctx, "backend.ping", func(ctx context.Context) error {
		return c.getJSON(ctx, "/", &resp, "ping")
	})
	if err != nil {
		return err
	}
	if err := c.validate.Struct(resp); err != nil {
		return fmt.Errorf("backend ping response: %w", err)
	}
	return nil
}

func (c *Client) Upload(ctx context.Context, filename string, body io.Reader) (*domain.ProcessingReceipt, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "backend upload", errors.New("filename is required"))
	}
	payload, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}

	var resp uploadResponse
	err = c.execute(ctx, "backend.upload", func(ctx context.Context) error {
		return c.postMultipart(ctx, "/upload", filename, payload, &resp, "upload")
	})
	if err != nil {
		return nil, err
	}
	if err := c.validate.Struct(resp); err != nil {
		return nil, fmt.Errorf("backend upload response: %w", err)
	}
	if resp.Status != statusSuccess {
		return nil, &domain.RejectionError{Operation: "upload", Message: resp.Message}
	}

	name := resp.Filename
	if name == "" {
		name = filename
	}
	return &domain.ProcessingReceipt{
		Filename:      name,
		ChunkCount:    resp.ChunkCount,
		VectorsStored: resp.VectorsStored,
	}, nil
}

func (c *Client) Summarize(ctx context.Context, filename string) (string, error) {
	var resp summarizeResponse
	err := c.execute(ctx, "backend.summarize", func(ctx context.Context) error {
		return c.postJSON(ctx, "/summarize", summarizeRequest{Filename: filename}, &resp, "summarize")
	})
	if err != nil {
		return "", err
	}
	if err := c.validate.Struct(resp); err != nil {
		return "", fmt.Errorf("backend summarize response: %w", err)
	}
	if resp.Status != statusSuccess {
		return "", &domain.RejectionError{Operation: "summarize", Message: resp.Message}
	}
	return resp.Summary, nil
}

func (c *Client) Query(ctx context.Context, queryText string) (*domain.QueryReply, error) {
	var resp queryResponse
	err := c.execute(ctx, "backend.query", func(ctx context.Context) error {
		return c.postJSON(ctx, "/query", queryRequest{QueryText: queryText}, &resp, "query")
	})
	if err != nil {
		return nil, err
	}
	if err := c.validate.Struct(resp); err != nil {
		return nil, fmt.Errorf("backend query response: %w", err)
	}
	if resp.Status != statusSuccess {
		return nil, &domain.RejectionError{Operation: "query", Message: resp.Message}
	}
	return &domain.QueryReply{
		Answer:  resp.Answer,
		Sources: resp.RelevantChunks,
	}, nil
}

func (c *Client) execute(ctx context.Context, operation string, call func(context.Context) error) error {
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, operation, call, classifyBackendError)
	} else {
		err = call(ctx)
	}
	return resilience.Temporary(operation, err, classifyBackendError)
}
