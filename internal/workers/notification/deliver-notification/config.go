// internal/workers/notification/deliver-notification/config.go
package delivernotification

import (
	"time"

	"greencrew/internal/common/config"
)

type Config struct {
	EmailEnabled bool
	SMSEnabled   bool
	FromEmail    string
	SMSSenderID  string
	Timeout      time.Duration
}

// LoadConfig reads the delivery settings. A channel is enabled only when both
// the notification switch and its AWS integration are on.
func LoadConfig(cfg *config.Config) *Config {
	from := cfg.Notifications.Email.FromEmail
	if from == "" {
		from = cfg.Integrations.AWS.SES.FromEmail
	}
	timeout := config.GetDuration(config.GetWorkerConfig(cfg, TaskType).Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{
		EmailEnabled: cfg.Notifications.Email.Enabled && cfg.Integrations.AWS.SES.Enabled,
		SMSEnabled:   cfg.Notifications.SMS.Enabled && cfg.Integrations.AWS.SNS.Enabled,
		FromEmail:    from,
		SMSSenderID:  cfg.Integrations.AWS.SNS.DefaultSMSSenderID,
		Timeout:      timeout,
	}
}
