package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"example.com/backstage/services/laundry/internal/auth"
	"example.com/backstage/services/laundry/internal/poll"
	"example.com/backstage/services/laundry/internal/services"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var trackCmd = &cobra.Command{
	Use:   "track <order-id>",
	Short: "Follow the delivery estimate of an order",
	Long: `Poll the tracking endpoint of an order with the stored bearer token and print every
change of status or ETA until interrupted`,
	Args: cobra.ExactArgs(1),
	RunE: runTrack,
}

func init() {
	rootCmd.AddCommand(trackCmd)
}

func runTrack(cmd *cobra.Command, args []string) error {
	orderID, err := uuid.Parse(args[0])
	if err != nil {
		return errors.Wrap(err, "invalid order id")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	session, err := sessionFor(cfg.Client)
	if err != nil {
		return err
	}
	identity, ok := session.Identity()
	if !ok {
		return errors.New("not signed in, run login first")
	}

	path := "/api/v1/orders/" + orderID.String() + "/tracking"
	if identity.Role == auth.RoleCustomer {
		path = "/api/v1/customer/orders/" + orderID.String() + "/tracking"
	}
	client := newTrackingClient(strings.TrimRight(cfg.Client.APIURL, "/")+path, session.Token())

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	var last string
	poller := poll.New("tracking", cfg.Tracking.LocationPollInterval, client.fetch,
		func(t *services.Tracking) {
			line := describeTracking(t)
			if line == last {
				return
			}
			last = line
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", time.Now().Format("15:04:05"), line)
		})
	return poller.Run(ctx)
}

type trackingClient struct {
	url    string
	token  string
	client *http.Client
}

// newTrackingClient creates a client without a request timeout; a request ends when its poll is
// cancelled
func newTrackingClient(url, token string) *trackingClient {
	return &trackingClient{url: url, token: token, client: &http.Client{}}
}

func (c *trackingClient) fetch(ctx context.Context) (*services.Tracking, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build tracking request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call tracking endpoint")
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		log.Debug().Int("status", res.StatusCode).Str("body", string(body)).Msg("Tracking request rejected")
		return nil, errors.Errorf("tracking endpoint returned %d", res.StatusCode)
	}

	var tracking services.Tracking
	if err := json.NewDecoder(res.Body).Decode(&tracking); err != nil {
		return nil, errors.Wrap(err, "failed to decode tracking response")
	}
	return &tracking, nil
}

func describeTracking(t *services.Tracking) string {
	s := fmt.Sprintf("order %s: %s", t.OrderNumber, t.Status)
	if t.DriverName != "" {
		s += ", driver " + t.DriverName
	}
	if t.EtaMinutes != nil {
		s += fmt.Sprintf(", %d stops before, ETA %d min", t.StopsBefore, *t.EtaMinutes)
	}
	return s
}
