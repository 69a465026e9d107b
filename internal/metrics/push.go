package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// PushJob is the Pushgateway job name for refresh runs.
const PushJob = "healthkit_refresh"

// Push sends the default registry to a Pushgateway. The pipeline is a
// batch job, so metrics are pushed at the end of a run rather than scraped
// from a long-lived process.
func Push(gatewayURL, runID string) error {
	err := push.New(gatewayURL, PushJob).
		Gatherer(prometheus.DefaultGatherer).
		Grouping("run_id", runID).
		Push()
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
