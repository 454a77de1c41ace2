package agentconfig

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/raider-go/pkg/actions"
	"github.com/lisanmuaddib/raider-go/pkg/chat"
)

type ActionConfig struct {
	Updates actions.UpdateSource
	Router  actions.CommandRouter
	Gateway chat.Gateway
	Logger  *logrus.Logger

	// MetricsAddr enables the metrics endpoint when set
	MetricsAddr string
	Gatherer    prometheus.Gatherer
}

// ConfigureActions sets up all agent actions
func ConfigureActions(config ActionConfig) ([]actions.Action, error) {
	if config.Updates == nil || config.Router == nil || config.Gateway == nil {
		return nil, fmt.Errorf("updates source, router and gateway are required")
	}

	updatesAction := actions.NewUpdatesHandler(
		config.Updates,
		config.Router,
		config.Gateway,
		config.Logger,
		actions.UpdatesOptions{
			RetryDelay:    actions.DefaultRetryDelay,
			MaxRetryDelay: actions.DefaultMaxRetryDelay,
		},
	)
	configured := []actions.Action{updatesAction}

	if config.MetricsAddr != "" {
		if config.Gatherer == nil {
			return nil, fmt.Errorf("metrics endpoint %s needs a gatherer", config.MetricsAddr)
		}
		configured = append(configured, actions.NewMetricsServer(config.MetricsAddr, config.Gatherer, config.Logger))
	}

	return configured, nil
}
