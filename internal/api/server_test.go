package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"example.com/backstage/services/laundry/config"
	"example.com/backstage/services/laundry/internal/auth"
	"example.com/backstage/services/laundry/internal/metrics"
	"example.com/backstage/services/laundry/internal/models"
	"example.com/backstage/services/laundry/internal/progress"
	"example.com/backstage/services/laundry/internal/repositories"
	"example.com/backstage/services/laundry/internal/scheduling"
	"example.com/backstage/services/laundry/internal/services"
	"example.com/backstage/services/laundry/internal/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	clerk    = auth.Identity{Role: auth.RoleClerk, Name: "Maria", PhoneNumber: "0740000001"}
	manager  = auth.Identity{Role: auth.RoleManager, Name: "Elena", PhoneNumber: "0740000002"}
	customer = auth.Identity{Role: auth.RoleCustomer, Name: "Ana", PhoneNumber: "0740123456"}
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	orders     *MockOrderService
	scheduling *MockSchedulingService
	routing    *MockRoutingService
	tracking   *MockTrackingService
	issuer     *auth.Issuer
	metrics    *metrics.Metrics
	router     *gin.Engine
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	f := &apiFixture{
		orders:     new(MockOrderService),
		scheduling: new(MockSchedulingService),
		routing:    new(MockRoutingService),
		tracking:   new(MockTrackingService),
		issuer:     issuer,
		metrics:    metrics.NewMetrics(),
	}

	cfg := config.Config{Server: config.ServerConfig{Address: ":0"}}
	server := NewServer(cfg, Services{
		Orders:     f.orders,
		Scheduling: f.scheduling,
		Routing:    f.routing,
		Tracking:   f.tracking,
	}, issuer, tracing.Disabled(), f.metrics)
	f.router = server.Router()
	return f
}

func (f *apiFixture) do(t *testing.T, method, path string, identity *auth.Identity, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if identity != nil {
		token, err := f.issuer.Issue(*identity)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	f.metrics.SetHealth("database", false)
	w = f.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	f.metrics.IncrementCounter("orders_created")
	w = f.do(t, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Contains(t, all, "counters")

	w = f.do(t, http.MethodGet, "/metrics/prometheus", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "orders_created")
}

func TestRequestIDHeader(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDKey, "abc-123")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDKey))

	w = f.do(t, http.MethodGet, "/health", nil, nil)
	assert.NotEmpty(t, w.Header().Get(requestIDKey))
}

func TestCORSPreflight(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "https://laundry.example.com")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestAuthentication(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "authentication required", errorBody(t, w))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other, err := auth.NewIssuer("other-secret", time.Hour)
	require.NoError(t, err)
	token, err := other.Issue(clerk)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	f.orders.AssertNotCalled(t, "ListOrders", mock.Anything, mock.Anything)
}

func TestRoleGuards(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name     string
		method   string
		path     string
		identity auth.Identity
	}{
		{"customer on staff orders", http.MethodGet, "/api/v1/orders", customer},
		{"staff on customer orders", http.MethodGet, "/api/v1/customer/orders", clerk},
		{"clerk creating time slot", http.MethodPost, "/api/v1/timeslots", clerk},
		{"clerk deleting route", http.MethodDelete, "/api/v1/routes/" + uuid.NewString(), clerk},
		{"customer reading pending requests", http.MethodGet, "/api/v1/scheduling/requests/pending", customer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity := tt.identity
			w := f.do(t, tt.method, tt.path, &identity, nil)
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestUnverifiedParserAcceptsForeignSignature(t *testing.T) {
	other, err := auth.NewIssuer("other-secret", time.Hour)
	require.NoError(t, err)
	token, err := other.Issue(customer)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/me", Authenticate(auth.UnverifiedParser{}), func(c *gin.Context) {
		identity, _ := identityFrom(c)
		c.JSON(http.StatusOK, identity)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var identity auth.Identity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &identity))
	assert.Equal(t, customer, identity)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", errors.Wrap(repositories.ErrNotFound, "failed to get order"), http.StatusNotFound, ""},
		{"validation", &services.ValidationError{Message: "carpets need a length and a width"}, http.StatusBadRequest, "carpets need a length and a width"},
		{"route started", services.ErrRouteStarted, http.StatusConflict, services.ErrRouteStarted.Error()},
		{"slot full", services.ErrSlotFull, http.StatusConflict, services.ErrSlotFull.Error()},
		{"duplicate", repositories.ErrDuplicateKey, http.StatusConflict, ""},
		{"forbidden", services.ErrForbidden, http.StatusForbidden, ""},
		{"internal", errors.New("connection reset by peer"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			id := uuid.New()
			f.orders.On("GetOrder", mock.Anything, id).Return(nil, tt.err)

			w := f.do(t, http.MethodGet, "/api/v1/orders/"+id.String(), &clerk, nil)
			assert.Equal(t, tt.status, w.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, errorBody(t, w))
			}
		})
	}
}

func TestInvalidPathID(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodGet, "/api/v1/orders/not-a-uuid", &clerk, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.orders.AssertNotCalled(t, "GetOrder", mock.Anything, mock.Anything)
}

func TestCreateOrder(t *testing.T) {
	f := newAPIFixture(t)
	created := &models.Order{ID: uuid.New(), OrderNumber: "ORD-20240307-0001"}
	f.orders.On("CreateOrder", mock.Anything, mock.MatchedBy(func(in services.OrderInput) bool {
		return in.TelephoneNumber == "0740123456" && len(in.Items) == 1 && in.Items[0].Type == models.ItemTypeCarpet
	})).Return(created, nil)

	length, width := 2.0, 3.0
	w := f.do(t, http.MethodPost, "/api/v1/orders", &clerk, services.OrderInput{
		TelephoneNumber: "0740123456",
		ServiceType:     models.ServiceTypeOffice,
		Items:           []services.ItemInput{{Type: models.ItemTypeCarpet, Length: &length, Width: &width}},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	var order models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, "ORD-20240307-0001", order.OrderNumber)
}

func TestCreateOrderMalformedBody(t *testing.T) {
	f := newAPIFixture(t)

	token, err := f.issuer.Issue(clerk)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	f.orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestListOrdersFilter(t *testing.T) {
	f := newAPIFixture(t)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.Local)
	to := time.Date(2024, 3, 8, 0, 0, 0, 0, time.Local)
	f.orders.On("ListOrders", mock.Anything, mock.MatchedBy(func(filter repositories.OrderFilter) bool {
		return filter.Status == models.OrderStatusReady &&
			filter.Phone == "0740123456" &&
			filter.From != nil && filter.From.Equal(from) &&
			filter.To != nil && filter.To.Equal(to) &&
			filter.Limit == 20
	})).Return([]services.OrderSummary{{Order: models.Order{OrderNumber: "ORD-1"}, Progress: progress.Stats{Completed: 1, Total: 2, Percentage: 50}}}, nil)

	w := f.do(t, http.MethodGet, "/api/v1/orders?status=Ready&phone=0740%20123%20456&from=2024-03-01&to=2024-03-07&limit=20", &clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"percentage":50`)

	w = f.do(t, http.MethodGet, "/api/v1/orders?from=March", &clerk, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchOrders(t *testing.T) {
	f := newAPIFixture(t)
	f.orders.On("SearchOrders", mock.Anything, "popescu").Return([]services.OrderSummary{{Order: models.Order{CustomerName: "Ion Popescu"}}}, nil)

	w := f.do(t, http.MethodGet, "/api/v1/orders/search?q=popescu", &clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ion Popescu")
}

func TestExportOrders(t *testing.T) {
	f := newAPIFixture(t)
	f.orders.On("ExportOrders", mock.Anything, mock.Anything).Return([]byte("PK\x03\x04"), nil)

	w := f.do(t, http.MethodGet, "/api/v1/orders/export?status=Completed", &clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=\"orders-")
	assert.Equal(t, "PK\x03\x04", w.Body.String())
}

func TestBulkUpdateStatus(t *testing.T) {
	f := newAPIFixture(t)
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	f.orders.On("BulkUpdateStatus", mock.Anything, ids, models.OrderStatusCompleted).Return(nil)

	w := f.do(t, http.MethodPost, "/api/v1/orders/status", &clerk, BulkStatusRequest{OrderIDs: ids, Status: models.OrderStatusCompleted})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"updated":2`)
	f.orders.AssertExpectations(t)
}

func TestItemProgress(t *testing.T) {
	f := newAPIFixture(t)
	id := uuid.New()
	f.orders.On("SetItemProgress", mock.Anything, id, 1, true).Return(progress.Stats{Completed: 2, Total: 3, Percentage: 67}, nil)

	w := f.do(t, http.MethodPut, "/api/v1/orders/"+id.String()+"/items/1/progress", &clerk, ItemProgressRequest{Completed: true})
	require.Equal(t, http.StatusOK, w.Code)
	var stats progress.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, progress.Stats{Completed: 2, Total: 3, Percentage: 67}, stats)

	w = f.do(t, http.MethodPut, "/api/v1/orders/"+id.String()+"/items/first/progress", &clerk, ItemProgressRequest{Completed: true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCustomerOrdersUseTokenPhone(t *testing.T) {
	f := newAPIFixture(t)
	id := uuid.New()
	f.orders.On("ListCustomerOrders", mock.Anything, customer.PhoneNumber).Return([]services.OrderSummary{}, nil)
	f.orders.On("GetCustomerOrder", mock.Anything, customer.PhoneNumber, id).Return(nil, services.ErrNotFound)
	f.orders.On("CreateCustomerOrder", mock.Anything, customer, mock.Anything).Return(&models.Order{ID: uuid.New()}, nil)

	w := f.do(t, http.MethodGet, "/api/v1/customer/orders", &customer, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/customer/orders/"+id.String(), &customer, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/customer/orders", &customer, services.OrderInput{ServiceType: models.ServiceTypeOffice})
	assert.Equal(t, http.StatusCreated, w.Code)

	f.orders.AssertExpectations(t)
}

func TestTrackOrder(t *testing.T) {
	f := newAPIFixture(t)
	id := uuid.New()
	minutes := 12
	f.tracking.On("TrackOrder", mock.Anything, id).Return(&services.Tracking{OrderID: id, Status: services.TrackingEstimated, EtaMinutes: &minutes}, nil)
	f.tracking.On("TrackCustomerOrder", mock.Anything, customer.PhoneNumber, id).Return(&services.Tracking{OrderID: id, Status: services.TrackingNotStarted}, nil)

	w := f.do(t, http.MethodGet, "/api/v1/orders/"+id.String()+"/tracking", &clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"eta_minutes":12`)

	w = f.do(t, http.MethodGet, "/api/v1/customer/orders/"+id.String()+"/tracking", &customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"not_started"`)
}

func TestListTimeSlots(t *testing.T) {
	f := newAPIFixture(t)
	day := time.Date(2024, 3, 8, 0, 0, 0, 0, time.Local)
	f.scheduling.On("TimeSlots", mock.Anything, mock.MatchedBy(func(d time.Time) bool { return d.Equal(day) }), models.SlotTypePickup).
		Return([]scheduling.SlotView{{DisplayTime: "09:00 - 11:00", CapacityLevel: scheduling.CapacityLow}}, nil)

	w := f.do(t, http.MethodGet, "/api/v1/timeslots?date=2024-03-08&type=Pickup", &customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"capacity_level":"low"`)

	w = f.do(t, http.MethodGet, "/api/v1/timeslots", &customer, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateTimeSlotAsManager(t *testing.T) {
	f := newAPIFixture(t)
	f.scheduling.On("CreateTimeSlot", mock.Anything, mock.AnythingOfType("services.TimeSlotInput")).Return(&models.TimeSlot{ID: uuid.New(), MaxOrders: 5}, nil)

	start := time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC)
	w := f.do(t, http.MethodPost, "/api/v1/timeslots", &manager, services.TimeSlotInput{
		StartTime: start, EndTime: start.Add(2 * time.Hour), MaxOrders: 5, SlotType: models.SlotTypeBoth,
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestPendingRequests(t *testing.T) {
	f := newAPIFixture(t)
	f.scheduling.On("PendingRequests", mock.Anything).Return([]scheduling.TriagedRequest{
		{SchedulingRequest: models.SchedulingRequest{ID: uuid.New()}, Urgency: scheduling.UrgencyCritical},
	}, nil)

	w := f.do(t, http.MethodGet, "/api/v1/scheduling/requests/pending", &clerk, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"urgency":"critical"`)
}

func TestDecideRequest(t *testing.T) {
	f := newAPIFixture(t)
	id := uuid.New()
	f.scheduling.On("DecideRequest", mock.Anything, id, mock.MatchedBy(func(in services.DecisionInput) bool {
		return in.Approve && in.StaffNotes == "ok"
	}), clerk).Return(&models.SchedulingRequest{ID: id, Status: models.RequestStatusConfirmed}, nil)

	w := f.do(t, http.MethodPost, "/api/v1/scheduling/requests/"+id.String()+"/confirm", &clerk, services.DecisionInput{Approve: true, StaffNotes: "ok"})
	require.Equal(t, http.StatusOK, w.Code)

	other := uuid.New()
	f.scheduling.On("DecideRequest", mock.Anything, other, mock.Anything, clerk).Return(nil, services.ErrRequestNotPending)
	w = f.do(t, http.MethodPost, "/api/v1/scheduling/requests/"+other.String()+"/confirm", &clerk, services.DecisionInput{Approve: true})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCustomerCancelsRequest(t *testing.T) {
	f := newAPIFixture(t)
	id := uuid.New()
	f.scheduling.On("CancelRequest", mock.Anything, id, customer).Return(&models.SchedulingRequest{ID: id, Status: models.RequestStatusCancelled}, nil)

	w := f.do(t, http.MethodDelete, "/api/v1/customer/requests/"+id.String(), &customer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"Cancelled"`)
}

func TestRoutes(t *testing.T) {
	f := newAPIFixture(t)
	routeID, stopID := uuid.New(), uuid.New()
	orderID := uuid.New()

	f.routing.On("AutoRoute", mock.Anything, services.RouteInput{DriverName: "Ion"}).
		Return(&services.RoutePlan{Route: &models.Route{ID: routeID, DriverName: "Ion"}, DistanceKm: 12.5}, nil)
	f.routing.On("CreateRoute", mock.Anything, services.RouteInput{DriverName: "Ion", OrderIDs: []uuid.UUID{orderID}}).
		Return(nil, services.ErrOrderOnRoute)
	f.routing.On("DeleteRoute", mock.Anything, routeID).Return(nil)
	f.routing.On("CompleteStop", mock.Anything, routeID, stopID).Return(&models.RouteStop{ID: stopID, IsCompleted: true}, nil)

	w := f.do(t, http.MethodPost, "/api/v1/routes/auto", &clerk, services.RouteInput{DriverName: "Ion"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"distance_km":12.5`)

	w = f.do(t, http.MethodPost, "/api/v1/routes", &clerk, services.RouteInput{DriverName: "Ion", OrderIDs: []uuid.UUID{orderID}})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/v1/routes/"+routeID.String()+"/stops/"+stopID.String()+"/complete", &clerk, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodDelete, "/api/v1/routes/"+routeID.String(), &manager, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	f.routing.AssertExpectations(t)
}

func TestDriverLocation(t *testing.T) {
	f := newAPIFixture(t)
	f.routing.On("UpdateDriverLocation", mock.Anything, "Ion", services.LocationInput{Latitude: 44.43, Longitude: 26.1}).
		Return(&models.DriverLocation{DriverName: "Ion", Latitude: 44.43, Longitude: 26.1}, nil)
	f.routing.On("DriverLocation", mock.Anything, "Vasile").Return(nil, services.ErrNotFound)

	w := f.do(t, http.MethodPut, "/api/v1/drivers/Ion/location", &clerk, services.LocationInput{Latitude: 44.43, Longitude: 26.1})
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/v1/drivers/Vasile/location", &clerk, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
