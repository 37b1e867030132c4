package repositories

import (
	"testing"

	"example.com/backstage/services/laundry/internal/models"

	"github.com/stretchr/testify/require"
)

func TestNextSchedulingStatus(t *testing.T) {
	tests := []struct {
		name      string
		current   models.SchedulingStatus
		change    requestChange
		confirmed int64
		pending   int64
		want      models.SchedulingStatus
	}{
		{"first request", models.SchedulingStatusNone, requestCreated, 0, 0, models.SchedulingStatusRequested},
		{"request after delivery", models.SchedulingStatusCompleted, requestCreated, 0, 0, models.SchedulingStatusRequested},
		{"request on confirmed order", models.SchedulingStatusConfirmed, requestCreated, 0, 0, models.SchedulingStatusConfirmed},
		{"request on started route", models.SchedulingStatusInProgress, requestCreated, 0, 0, models.SchedulingStatusInProgress},
		{"confirm", models.SchedulingStatusRequested, requestConfirmed, 0, 0, models.SchedulingStatusConfirmed},
		{"confirm on started route", models.SchedulingStatusInProgress, requestConfirmed, 0, 0, models.SchedulingStatusInProgress},
		{"last request closed", models.SchedulingStatusRequested, requestClosed, 0, 0, models.SchedulingStatusNone},
		{"closed with another pending", models.SchedulingStatusRequested, requestClosed, 0, 1, models.SchedulingStatusRequested},
		{"closed with another confirmed", models.SchedulingStatusRequested, requestClosed, 1, 1, models.SchedulingStatusConfirmed},
		{"closed on confirmed order", models.SchedulingStatusConfirmed, requestClosed, 1, 0, models.SchedulingStatusConfirmed},
		{"closed on started route", models.SchedulingStatusInProgress, requestClosed, 0, 0, models.SchedulingStatusInProgress},
		{"closed after delivery", models.SchedulingStatusCompleted, requestClosed, 0, 0, models.SchedulingStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, nextSchedulingStatus(tt.current, tt.change, tt.confirmed, tt.pending))
		})
	}
}
