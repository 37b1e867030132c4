package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"example.com/backstage/services/laundry/config"
	"example.com/backstage/services/laundry/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

func newTestClient(t *testing.T, handle func(w http.ResponseWriter, r *http.Request)) (*ElasticClient, func() []recordedRequest) {
	var (
		mu       sync.Mutex
		requests []recordedRequest
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/" {
			_, _ = w.Write([]byte(`{"version":{"number":"7.17.10","build_flavor":"default"},"tagline":"You Know, for Search"}`))
			return
		}

		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		mu.Unlock()
		handle(w, r)
	}))
	t.Cleanup(server.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)

	cfg := config.ElasticConfig{Prefix: "test", Index: "orders", Enabled: true}
	return NewElasticClientFromClient(es, cfg), func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), requests...)
	}
}

func sampleOrder() *models.Order {
	length, width := 2.0, 3.0
	return &models.Order{
		ID:              uuid.MustParse("6f1c2b52-8f55-4a39-9a43-2a0f3f9f4c11"),
		OrderNumber:     "ORD-20240105-0003",
		CustomerName:    "Ana Pop",
		TelephoneNumber: "0740123456",
		ServiceType:     models.ServiceTypePickupDelivery,
		DeliveryAddress: "Strada Lunga 12, Cluj",
		City:            "Cluj",
		Status:          models.OrderStatusPending,
		ReceivedDate:    time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
		Items: []models.Item{
			{Position: 0, Type: models.ItemTypeCarpet, Length: &length, Width: &width, Price: 150},
			{Position: 1, Type: models.ItemTypeCarpet, Length: &length, Width: &width, Price: 150},
			{Position: 2, Type: models.ItemTypeBlanket, Price: 40},
		},
	}
}

func TestNewOrderDocument(t *testing.T) {
	doc := NewOrderDocument(sampleOrder())

	require.Equal(t, "ORD-20240105-0003", doc.OrderNumber)
	require.Equal(t, 3, doc.ItemCount)
	require.Equal(t, []string{"Carpet", "Blanket"}, doc.ItemTypes)
	require.InDelta(t, 340.0, doc.TotalPrice, 0.001)
	require.Equal(t, "2024-01-05T09:00:00Z", doc.ReceivedDate)
}

func TestIndexOrder(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	})

	order := sampleOrder()
	require.NoError(t, client.IndexOrder(context.Background(), order))

	reqs := requests()
	require.Len(t, reqs, 1)
	require.Equal(t, http.MethodPut, reqs[0].Method)
	require.Equal(t, "/test-orders/_doc/"+order.ID.String(), reqs[0].Path)

	var doc OrderDocument
	require.NoError(t, json.Unmarshal([]byte(reqs[0].Body), &doc))
	require.Equal(t, order.ID.String(), doc.ID)
	require.Equal(t, "Ana Pop", doc.CustomerName)
}

func TestDeleteOrderIgnoresMissingDocument(t *testing.T) {
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	})

	id := uuid.New()
	require.NoError(t, client.DeleteOrder(context.Background(), id))

	reqs := requests()
	require.Len(t, reqs, 1)
	require.Equal(t, http.MethodDelete, reqs[0].Method)
	require.Equal(t, "/test-orders/_doc/"+id.String(), reqs[0].Path)
}

func TestSearchOrders(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	client, requests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"hits": map[string]interface{}{
				"hits": []map[string]interface{}{
					{"_source": map[string]string{"id": first.String()}},
					{"_source": map[string]string{"id": "not-a-uuid"}},
					{"_source": map[string]string{"id": second.String()}},
				},
			},
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	ids, err := client.SearchOrders(context.Background(), "Lunga", 0)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{first, second}, ids)

	reqs := requests()
	require.Len(t, reqs, 1)
	require.Equal(t, "/test-orders/_search", reqs[0].Path)
	require.Contains(t, reqs[0].Body, `"multi_match"`)
	require.Contains(t, reqs[0].Body, `"size":50`)
}

func TestSearchOrdersError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"parsing_exception"}}`))
	})

	_, err := client.SearchOrders(context.Background(), "x", 10)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parsing_exception")
}

func TestNewElasticClientDisabled(t *testing.T) {
	_, err := NewElasticClient(config.ElasticConfig{Enabled: false})
	require.Error(t, err)
}
