package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tranzac/internal/config"
	"tranzac/internal/models"

	"github.com/redis/go-redis/v9"
)

// Client talks to the headless CMS holding rental requests. Reads go
// through the GraphQL endpoint (drafts included), workflow updates through
// the item management API.
type Client struct {
	graphqlURL string
	itemsURL   string
	apiToken   string
	modelID    string
	loc        *time.Location
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

const (
	defaultGraphQLURL = "https://graphql.datocms.com/"
	defaultItemsURL   = "https://site-api.datocms.com"
)

// NewClient builds a CMS client. loc is the venue timezone slot wall-clock
// times are anchored in; it must match the calculator's location.
func NewClient(cfg config.CMSConfig, loc *time.Location) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if loc == nil {
		loc = time.UTC
	}
	graphqlURL := defaultGraphQLURL
	itemsURL := defaultItemsURL
	if cfg.BaseURL != "" {
		graphqlURL = strings.TrimSuffix(cfg.BaseURL, "/") + "/graphql"
		itemsURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	return &Client{
		graphqlURL: graphqlURL,
		itemsURL:   itemsURL,
		apiToken:   cfg.APIToken,
		modelID:    cfg.RentalModelID,
		loc:        loc,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// UseRedisCache configures optional Redis caching for read endpoints.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

const rentalQuery = `
query Rental($id: ItemId!) {
  rental(filter: {id: {eq: $id}}) {
    id
    organizationName
    contactName
    contactEmail
    eventTitle
    eventType
    private
    workflowStatus
    dates {
      id
      date
      slots {
        id
        title
        description
        eventType
        expectedAttendance
        private
        resources
        startTime { time }
        endTime { time }
        rooms { id name }
      }
    }
  }
}`

type rentalPayload struct {
	Rental *struct {
		ID               string `json:"id"`
		OrganizationName string `json:"organizationName"`
		ContactName      string `json:"contactName"`
		ContactEmail     string `json:"contactEmail"`
		EventTitle       string `json:"eventTitle"`
		EventType        string `json:"eventType"`
		Private          bool   `json:"private"`
		WorkflowStatus   string `json:"workflowStatus"`
		Dates            []struct {
			ID    string        `json:"id"`
			Date  string        `json:"date"`
			Slots []rentalSlot  `json:"slots"`
		} `json:"dates"`
	} `json:"rental"`
}

type rentalSlot struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	EventType          string     `json:"eventType"`
	ExpectedAttendance int        `json:"expectedAttendance"`
	Private            bool       `json:"private"`
	Resources          []string   `json:"resources"`
	StartTime          *timeOfDay `json:"startTime"`
	EndTime            *timeOfDay `json:"endTime"`
	Rooms              []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"rooms"`
}

type timeOfDay struct {
	Time string `json:"time"`
}

// GetRentalRequest fetches one rental request with its slots normalized.
func (c *Client) GetRentalRequest(ctx context.Context, id string) (*models.RentalRequest, error) {
	payload, err := c.fetchRental(ctx, id)
	if err != nil {
		return nil, err
	}

	rental := payload.Rental
	req := &models.RentalRequest{
		ID:               rental.ID,
		OrganizationName: rental.OrganizationName,
		ContactName:      rental.ContactName,
		ContactEmail:     rental.ContactEmail,
		EventTitle:       rental.EventTitle,
		EventType:        rental.EventType,
		Private:          rental.Private,
		WorkflowStatus:   rental.WorkflowStatus,
	}
	for _, date := range rental.Dates {
		for _, slot := range date.Slots {
			normalized, err := normalizeSlot(date.Date, slot, rental.Private, c.loc)
			if err != nil {
				return nil, err
			}
			req.Slots = append(req.Slots, normalized)
		}
	}
	return req, nil
}

// GetBookingSlots fetches just the normalized slots of a rental request.
func (c *Client) GetBookingSlots(ctx context.Context, rentalRequestID string) ([]models.BookingSlot, error) {
	req, err := c.GetRentalRequest(ctx, rentalRequestID)
	if err != nil {
		return nil, err
	}
	return req.Slots, nil
}

func (c *Client) fetchRental(ctx context.Context, id string) (*rentalPayload, error) {
	cacheKey := fmt.Sprintf("rental:%s", id)
	var payload rentalPayload
	if c.readCache(ctx, cacheKey, &payload) && payload.Rental != nil {
		return &payload, nil
	}

	if err := c.graphql(ctx, rentalQuery, map[string]any{"id": id}, &payload); err != nil {
		return nil, err
	}
	if payload.Rental == nil {
		return nil, fmt.Errorf("rental request %q: %w", id, models.ErrNotFound)
	}
	c.writeCache(ctx, cacheKey, payload)
	return &payload, nil
}

// UpdateWorkflowStatus writes the rental's workflow state back to the CMS.
func (c *Client) UpdateWorkflowStatus(ctx context.Context, rentalRequestID, status string) error {
	endpoint := fmt.Sprintf("%s/items/%s", c.itemsURL, rentalRequestID)
	body := map[string]any{
		"data": map[string]any{
			"id":   rentalRequestID,
			"type": "item",
			"attributes": map[string]any{
				"workflow_status": status,
			},
		},
	}
	return c.doJSON(ctx, http.MethodPut, endpoint, body, nil)
}

type itemsListResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			OrganizationName string `json:"organization_name"`
			ContactName      string `json:"contact_name"`
			ContactEmail     string `json:"contact_email"`
			EventTitle       string `json:"event_title"`
			WorkflowStatus   string `json:"workflow_status"`
		} `json:"attributes"`
	} `json:"data"`
}

// ListRentalRequests lists rentals, optionally filtered by workflow status.
// Slots are not populated; use GetRentalRequest for the full record.
func (c *Client) ListRentalRequests(ctx context.Context, workflowStatus string, limit int) ([]models.RentalRequest, error) {
	if limit <= 0 {
		limit = 100
	}
	endpoint := fmt.Sprintf("%s/items?filter[type]=%s&page[limit]=%d", c.itemsURL, c.modelID, limit)
	if workflowStatus != "" {
		endpoint += fmt.Sprintf("&filter[fields][workflow_status][eq]=%s", workflowStatus)
	}

	var resp itemsListResponse
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	out := make([]models.RentalRequest, 0, len(resp.Data))
	for _, item := range resp.Data {
		out = append(out, models.RentalRequest{
			ID:               item.ID,
			OrganizationName: item.Attributes.OrganizationName,
			ContactName:      item.Attributes.ContactName,
			ContactEmail:     item.Attributes.ContactEmail,
			EventTitle:       item.Attributes.EventTitle,
			WorkflowStatus:   item.Attributes.WorkflowStatus,
		})
	}
	return out, nil
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) graphql(ctx context.Context, query string, variables map[string]any, out any) error {
	var resp graphqlResponse
	if err := c.doJSON(ctx, http.MethodPost, c.graphqlURL, graphqlRequest{Query: query, Variables: variables}, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		return fmt.Errorf("cms query failed: %s: %w", resp.Errors[0].Message, models.ErrExternalService)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(resp.Data, out)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out any) error {
	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Include-Drafts", "true")
	req.Header.Set("X-Api-Version", "3")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cms request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("cms item: %w", models.ErrNotFound)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("cms http %d: %w", resp.StatusCode, models.ErrExternalService)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}
