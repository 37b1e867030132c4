package api

import (
	"strconv"
	"time"

	"example.com/backstage/services/laundry/internal/models"
	"example.com/backstage/services/laundry/internal/repositories"
	"example.com/backstage/services/laundry/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const dateLayout = "2006-01-02"

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, errors.Errorf("invalid %s %q", name, c.Param(name)))
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}

func queryDate(c *gin.Context, name string) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.Local)
	if err != nil {
		return nil, errors.Errorf("invalid %s %q, expected YYYY-MM-DD", name, raw)
	}
	return &t, nil
}

// orderFilter reads the list filters. The to date is inclusive.
func orderFilter(c *gin.Context) (repositories.OrderFilter, error) {
	filter := repositories.OrderFilter{
		Status:      models.OrderStatus(c.Query("status")),
		ServiceType: models.ServiceType(c.Query("service_type")),
		Phone:       validation.NormalizePhone(c.Query("phone")),
		Query:       c.Query("q"),
	}

	var err error
	if filter.From, err = queryDate(c, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = queryDate(c, "to"); err != nil {
		return filter, err
	}
	if filter.To != nil {
		next := filter.To.AddDate(0, 0, 1)
		filter.To = &next
	}
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}
