package pdf

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tranzac/internal/config"
	"tranzac/internal/models"
)

// ServiceClient renders estimate PDFs through a hosted document service
// (PDFMonkey). Generation is asynchronous: create the document, poll its
// status a bounded number of times, then download the result.
type ServiceClient struct {
	baseURL      string
	apiKey       string
	templateID   string
	pollAttempts int
	pollInterval time.Duration
	httpClient   *http.Client
}

const defaultServiceURL = "https://api.pdfmonkey.io"

func NewServiceClient(cfg config.PDFConfig) *ServiceClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultServiceURL
	}
	attempts := cfg.PollAttempts
	if attempts <= 0 {
		attempts = models.DefaultPDFPollAttempts
	}
	return &ServiceClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       cfg.APIKey,
		templateID:   cfg.TemplateID,
		pollAttempts: attempts,
		pollInterval: cfg.PollIntervalDuration(),
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

type documentEnvelope struct {
	Document documentCard `json:"document"`
}

type documentCard struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	DownloadURL  string `json:"download_url"`
	Filename     string `json:"filename"`
	FailureCause string `json:"failure_cause"`
}

type createDocumentRequest struct {
	Document struct {
		DocumentTemplateID string         `json:"document_template_id"`
		Status             string         `json:"status"`
		Payload            any            `json:"payload"`
		Meta               map[string]any `json:"meta"`
	} `json:"document"`
}

// GenerateEstimatePDF creates the document, waits for it to render and
// returns the PDF bytes. A context deadline or poll exhaustion surfaces
// as ErrTimeout.
func (c *ServiceClient) GenerateEstimatePDF(ctx context.Context, doc models.EstimateDocument) ([]byte, error) {
	created, err := c.createDocument(ctx, doc)
	if err != nil {
		return nil, err
	}

	card, err := c.waitForDocument(ctx, created.ID)
	if err != nil {
		return nil, err
	}

	return c.download(ctx, card.DownloadURL)
}

func (c *ServiceClient) createDocument(ctx context.Context, doc models.EstimateDocument) (*documentCard, error) {
	var req createDocumentRequest
	req.Document.DocumentTemplateID = c.templateID
	req.Document.Status = "pending" // triggers immediate generation
	req.Document.Payload = doc
	req.Document.Meta = map[string]any{
		"_filename":       fmt.Sprintf("cost_estimate_%s_v%d.pdf", doc.RentalRequestID, doc.Version),
		"rentalRequestId": doc.RentalRequestID,
		"version":         doc.Version,
	}

	var envelope documentEnvelope
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/api/v1/documents", req, &envelope); err != nil {
		return nil, err
	}
	if envelope.Document.ID == "" {
		return nil, fmt.Errorf("pdf service returned no document id: %w", models.ErrExternalService)
	}
	return &envelope.Document, nil
}

func (c *ServiceClient) waitForDocument(ctx context.Context, documentID string) (*documentCard, error) {
	endpoint := fmt.Sprintf("%s/api/v1/documents/%s", c.baseURL, documentID)

	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("pdf generation cancelled: %w", models.ErrTimeout)
			case <-time.After(c.pollInterval):
			}
		}

		var envelope documentEnvelope
		if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &envelope); err != nil {
			return nil, err
		}

		switch envelope.Document.Status {
		case "success":
			return &envelope.Document, nil
		case "failure":
			return nil, fmt.Errorf("pdf generation failed: %s: %w", envelope.Document.FailureCause, models.ErrExternalService)
		}
	}

	return nil, fmt.Errorf("pdf not ready after %d attempts: %w", c.pollAttempts, models.ErrTimeout)
}

func (c *ServiceClient) download(ctx context.Context, downloadURL string) ([]byte, error) {
	if downloadURL == "" {
		return nil, fmt.Errorf("pdf service returned no download url: %w", models.ErrExternalService)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pdf download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pdf download http %d: %w", resp.StatusCode, models.ErrExternalService)
	}
	return io.ReadAll(resp.Body)
}

func (c *ServiceClient) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("pdf service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("pdf service http %d: %w", resp.StatusCode, models.ErrExternalService)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
