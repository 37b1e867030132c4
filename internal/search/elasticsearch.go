package search

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"example.com/backstage/services/laundry/config"
	"example.com/backstage/services/laundry/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ElasticClient indexes and searches orders in Elasticsearch
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	if !cfg.Enabled {
		return nil, errors.New("elasticsearch is disabled")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{client: client, config: cfg}, nil
}

// NewElasticClientFromClient wraps an existing client
func NewElasticClientFromClient(client *elasticsearch.Client, cfg config.ElasticConfig) *ElasticClient {
	return &ElasticClient{client: client, config: cfg}
}

func (c *ElasticClient) indexName() string {
	return config.FormatIndex(c.config, c.config.Index)
}

// OrderDocument is the indexed form of an order
type OrderDocument struct {
	ID               string   `json:"id"`
	OrderNumber      string   `json:"order_number"`
	CustomerName     string   `json:"customer_name"`
	TelephoneNumber  string   `json:"telephone_number"`
	ServiceType      string   `json:"service_type"`
	DeliveryAddress  string   `json:"delivery_address"`
	City             string   `json:"city"`
	Observation      string   `json:"observation"`
	Status           string   `json:"status"`
	SchedulingStatus string   `json:"scheduling_status"`
	ReceivedDate     string   `json:"received_date"`
	ItemCount        int      `json:"item_count"`
	ItemTypes        []string `json:"item_types"`
	TotalPrice       float64  `json:"total_price"`
}

// NewOrderDocument builds the search document of an order
func NewOrderDocument(order *models.Order) OrderDocument {
	types := make([]string, 0, len(order.Items))
	seen := map[models.ItemType]bool{}
	for _, item := range order.Items {
		if !seen[item.Type] {
			seen[item.Type] = true
			types = append(types, string(item.Type))
		}
	}

	return OrderDocument{
		ID:               order.ID.String(),
		OrderNumber:      order.OrderNumber,
		CustomerName:     order.CustomerName,
		TelephoneNumber:  order.TelephoneNumber,
		ServiceType:      string(order.ServiceType),
		DeliveryAddress:  order.DeliveryAddress,
		City:             order.City,
		Observation:      order.Observation,
		Status:           string(order.Status),
		SchedulingStatus: string(order.SchedulingStatus),
		ReceivedDate:     order.ReceivedDate.Format(time.RFC3339),
		ItemCount:        len(order.Items),
		ItemTypes:        types,
		TotalPrice:       order.TotalPrice(),
	}
}

// IndexOrder indexes an order
func (c *ElasticClient) IndexOrder(ctx context.Context, order *models.Order) error {
	docJSON, err := json.Marshal(NewOrderDocument(order))
	if err != nil {
		return errors.Wrap(err, "failed to marshal order document")
	}

	req := esapi.IndexRequest{
		Index:      c.indexName(),
		DocumentID: order.ID.String(),
		Body:       bytes.NewReader(docJSON),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError(res, "index")
	}

	log.Debug().Str("order_id", order.ID.String()).Msg("Order indexed")
	return nil
}

// DeleteOrder removes an order from the index. A missing document is not an error.
func (c *ElasticClient) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	req := esapi.DeleteRequest{
		Index:      c.indexName(),
		DocumentID: id.String(),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch delete request")
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError(res, "delete")
	}

	return nil
}

// SearchOrders runs a free-text query over the indexed orders and returns the matching ids by relevance
func (c *ElasticClient) SearchOrders(ctx context.Context, text string, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 50
	}

	query := map[string]interface{}{
		"size":    limit,
		"_source": []string{"id"},
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":    text,
				"type":     "bool_prefix",
				"fields":   []string{"order_number^3", "telephone_number^2", "customer_name", "delivery_address", "city", "observation"},
				"operator": "and",
			},
		},
	}

	queryJSON, err := json.Marshal(query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal search query")
	}

	req := esapi.SearchRequest{
		Index: []string{c.indexName()},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute Elasticsearch search request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError(res, "search")
	}

	var result struct {
		Hits struct {
			Hits []struct {
				Source struct {
					ID string `json:"id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, "failed to parse Elasticsearch search response")
	}

	ids := make([]uuid.UUID, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		id, err := uuid.Parse(hit.Source.ID)
		if err != nil {
			log.Warn().Str("id", hit.Source.ID).Msg("Skipping search hit with invalid id")
			continue
		}
		ids = append(ids, id)
	}

	return ids, nil
}

// Ping checks that the cluster answers
func (c *ElasticClient) Ping(ctx context.Context) error {
	res, err := c.client.Ping(c.client.Ping.WithContext(ctx))
	if err != nil {
		return errors.Wrap(err, "failed to ping Elasticsearch")
	}
	defer res.Body.Close()
	if res.IsError() {
		return errors.Errorf("Elasticsearch ping returned %s", res.Status())
	}
	return nil
}

func responseError(res *esapi.Response, op string) error {
	var e map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
		return errors.Wrapf(err, "failed to parse Elasticsearch %s error response", op)
	}
	return errors.Errorf("Elasticsearch %s error: %v", op, e)
}
