/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5401"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"HOOKGUARD_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"HOOKGUARD_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"HOOKGUARD_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"HOOKGUARD_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns           string `json:"dns" envconfig:"HOOKGUARD_REDIS_DNS"`
	SkipTLSVerify bool   `json:"skip_tls_verify" envconfig:"HOOKGUARD_REDIS_SKIP_TLS_VERIFY"`
}

// ServiceConfig holds the shared secret and tolerance window for one
// webhook provider. A tolerance of 0 means the provider's scheme is not
// time-bound.
type ServiceConfig struct {
	Secret           string `json:"secret"`
	ToleranceSeconds int64  `json:"tolerance_seconds"`
}

type RetryConfig struct {
	Enabled       bool    `json:"enabled" envconfig:"HOOKGUARD_RETRY_ENABLED"`
	MaxAttempts   int     `json:"max_attempts" envconfig:"HOOKGUARD_RETRY_MAX_ATTEMPTS"`
	DelaysSeconds []int64 `json:"delays_seconds" envconfig:"HOOKGUARD_RETRY_DELAYS_SECONDS"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type MailConfig struct {
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	From     string   `json:"from"`
	To       []string `json:"to"`
}

// AlertingConfig gates the failure detector and the outbound channels.
// Threshold, window and cooldown are deliberately configuration values,
// never hardcoded in the detector.
type AlertingConfig struct {
	Enabled          bool         `json:"enabled" envconfig:"HOOKGUARD_ALERTING_ENABLED"`
	FailureThreshold int          `json:"failure_threshold" envconfig:"HOOKGUARD_ALERTING_FAILURE_THRESHOLD"`
	WindowMinutes    int          `json:"window_minutes" envconfig:"HOOKGUARD_ALERTING_WINDOW_MINUTES"`
	CooldownMinutes  int          `json:"cooldown_minutes" envconfig:"HOOKGUARD_ALERTING_COOLDOWN_MINUTES"`
	DashboardUrl     string       `json:"dashboard_url" envconfig:"HOOKGUARD_ALERTING_DASHBOARD_URL"`
	Slack            SlackWebhook `json:"slack"`
	Mail             MailConfig   `json:"mail"`
}

type QueueConfig struct {
	RetryQueue     string `json:"retry_queue" envconfig:"HOOKGUARD_QUEUE_RETRY"`
	AlertQueue     string `json:"alert_queue" envconfig:"HOOKGUARD_QUEUE_ALERT"`
	MonitoringPort string `json:"monitoring_port" envconfig:"HOOKGUARD_QUEUE_MONITORING_PORT"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"HOOKGUARD_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"HOOKGUARD_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"HOOKGUARD_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type Configuration struct {
	ProjectName string                   `json:"project_name" envconfig:"HOOKGUARD_PROJECT_NAME"`
	Server      ServerConfig             `json:"server"`
	DataSource  DataSourceConfig         `json:"data_source"`
	Redis       RedisConfig              `json:"redis"`
	Services    map[string]ServiceConfig `json:"services"`
	Retry       RetryConfig              `json:"retry"`
	Alerting    AlertingConfig           `json:"alerting"`
	Queue       QueueConfig              `json:"queue"`
	RateLimit   RateLimitConfig          `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("hookguard", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called hookguard.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Hookguard Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Retry.MaxAttempts <= 0 {
		cnf.Retry.MaxAttempts = 3
	}
	if len(cnf.Retry.DelaysSeconds) == 0 {
		cnf.Retry.DelaysSeconds = []int64{60, 300, 900}
	}

	if cnf.Alerting.FailureThreshold <= 0 {
		cnf.Alerting.FailureThreshold = 3
	}
	if cnf.Alerting.WindowMinutes <= 0 {
		cnf.Alerting.WindowMinutes = 30
	}
	if cnf.Alerting.CooldownMinutes <= 0 {
		cnf.Alerting.CooldownMinutes = 30
	}

	if cnf.Queue.RetryQueue == "" {
		cnf.Queue.RetryQueue = "webhook_retry"
	}
	if cnf.Queue.AlertQueue == "" {
		cnf.Queue.AlertQueue = "webhook_alert"
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5402"
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// Service returns the configuration for a named provider, if present.
func (cnf *Configuration) Service(name string) (ServiceConfig, bool) {
	svc, ok := cnf.Services[name]
	return svc, ok
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	if mockConfig.Retry.MaxAttempts == 0 {
		mockConfig.Retry.MaxAttempts = 3
	}
	if mockConfig.Queue.RetryQueue == "" {
		mockConfig.Queue.RetryQueue = "webhook_retry"
	}
	if mockConfig.Queue.AlertQueue == "" {
		mockConfig.Queue.AlertQueue = "webhook_alert"
	}
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
