package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"social-dashboard/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	App          App          `json:"app"`
	Database     Database     `json:"database"`
	Pubsub       Pubsub       `json:"pubsub"`
	ServiceBus   ServiceBus   `json:"serviceBus"`
	RedisClient  RedisClient  `json:"redisClient"`
	Logger       Logger       `json:"logger"`
	Retry        Retry        `json:"retry"`
	RateLimit    RateLimit    `json:"rateLimit"`
	Monitoring   Monitoring   `json:"monitoring"`
	Notification Notification `json:"notification"`
	Platforms    Platforms    `json:"platforms"`
}

type App struct {
	Port        int    `json:"port"`
	SecretKey   string `json:"secretKey"`
	TLSEnabled  bool   `json:"tlsEnabled"`
	TLSCertFile string `json:"tlsCertFile"`
	TLSKeyFile  string `json:"tlsKeyFile"`
	// AllowedOrigins for CORS; empty keeps the local development origins
	AllowedOrigins []string `json:"allowedOrigins"`
}

type Database struct {
	Psql  Db `json:"psql"`
	MySql Db `json:"mysql"`
	Mongo Db `json:"mongo"`
	Mssql Db `json:"mssql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type Pubsub struct {
	ProjectID       string `json:"projectID"`
	CredentialsFile string `json:"credentialsFile"`
	AlertTopic      string `json:"alertTopic"`
}

type ServiceBus struct {
	Namespace  string `json:"namespace"`
	EmailQueue string `json:"emailQueue"`
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

type Logger struct {
	Level string `json:"level"`
}

// Retry overrides the built-in per-platform backoff table
type Retry struct {
	Platforms map[string]RetryPolicy `json:"platforms"`
}

type RetryPolicy struct {
	MaxAttempts    int     `json:"maxAttempts"`
	InitialDelayMs int     `json:"initialDelayMs"`
	MaxDelayMs     int     `json:"maxDelayMs"`
	BackoffFactor  float64 `json:"backoffFactor"`
}

// RateLimit overrides category defaults (email, notification, alert)
type RateLimit struct {
	Categories map[string]RateLimitPolicy `json:"categories"`
}

type RateLimitPolicy struct {
	WindowSeconds int `json:"windowSeconds"`
	MaxRequests   int `json:"maxRequests"`
}

type Monitoring struct {
	SampleIntervalSeconds int `json:"sampleIntervalSeconds"`
	MetricWindowMinutes   int `json:"metricWindowMinutes"`
	FailureWindowMinutes  int `json:"failureWindowMinutes"`
}

type Notification struct {
	FromAddress  string `json:"fromAddress"`
	DashboardURL string `json:"dashboardURL"`
}

// Platforms holds credentials for the platform clients that are wired in-process
type Platforms struct {
	Enabled  []string     `json:"enabled"`
	Facebook FacebookPage `json:"facebook"`
}

type FacebookPage struct {
	PageID          string `json:"pageId"`
	PageAccessToken string `json:"pageAccessToken"`
	GraphVersion    string `json:"graphVersion"`
}

var C Config

func init() {
	Reload()
}

// Reload rebuilds C from the config file and the current environment.
func Reload() {
	C = Config{}
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initDefaults(&C)
	logger.SetLevel(C.Logger.Level)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	if env := os.Getenv("ENV"); env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	C.Database.Psql.Name = getConfigValue(C.Database.Psql.Name, "DB_NAME", "")
	C.Database.Psql.Host = getConfigValue(C.Database.Psql.Host, "DB_HOST", "localhost")
	C.Database.Psql.Port = getConfigValue(C.Database.Psql.Port, "DB_PORT", "5432")
	C.Database.Psql.User = getConfigValue(C.Database.Psql.User, "DB_USER", "")
	C.Database.Psql.Password = getConfigValue(C.Database.Psql.Password, "DB_PASSWORD", "")

	C.Database.MySql.Name = getConfigValue(C.Database.MySql.Name, "MYSQL_DB_NAME", "")
	C.Database.MySql.Host = getConfigValue(C.Database.MySql.Host, "MYSQL_HOST", "localhost")
	C.Database.MySql.Port = getConfigValue(C.Database.MySql.Port, "MYSQL_PORT", "3306")
	C.Database.MySql.User = getConfigValue(C.Database.MySql.User, "MYSQL_USER", "")
	C.Database.MySql.Password = getConfigValue(C.Database.MySql.Password, "MYSQL_PASSWORD", "")

	C.Database.Mssql.Name = getConfigValue(C.Database.Mssql.Name, "MSSQL_DB_NAME", "")
	C.Database.Mssql.Host = getConfigValue(C.Database.Mssql.Host, "MSSQL_HOST", "localhost")
	C.Database.Mssql.Port = getConfigValue(C.Database.Mssql.Port, "MSSQL_PORT", "1433")
	C.Database.Mssql.User = getConfigValue(C.Database.Mssql.User, "MSSQL_USER", "")
	C.Database.Mssql.Password = getConfigValue(C.Database.Mssql.Password, "MSSQL_PASSWORD", "")

	C.Database.Mongo.Name = getConfigValue(C.Database.Mongo.Name, "MONGO_DB_NAME", "social_dashboard")
	C.Database.Mongo.Host = getConfigValue(C.Database.Mongo.Host, "MONGO_HOST", "")
	C.Database.Mongo.Port = getConfigValue(C.Database.Mongo.Port, "MONGO_PORT", "27017")
	C.Database.Mongo.User = getConfigValue(C.Database.Mongo.User, "MONGO_USER", "")
	C.Database.Mongo.Password = getConfigValue(C.Database.Mongo.Password, "MONGO_PASSWORD", "")

	C.RedisClient.Host = getConfigValue(C.RedisClient.Host, "REDIS_HOST", "")
	C.RedisClient.Port = getConfigValue(C.RedisClient.Port, "REDIS_PORT", "6379")
	C.RedisClient.Password = getConfigValue(C.RedisClient.Password, "REDIS_PASSWORD", "")
}

func initApp(C *Config) {
	// SECRET_KEY overrides the config file for JWT verification
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order (env overrides config): APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true":
			C.App.TLSEnabled = true
		case "0", "false":
			C.App.TLSEnabled = false
		}
	}
	C.App.TLSCertFile = getConfigValue(C.App.TLSCertFile, "TLS_CERT_FILE", "")
	C.App.TLSKeyFile = getConfigValue(C.App.TLSKeyFile, "TLS_KEY_FILE", "")
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initDefaults(C *Config) {
	C.Pubsub.ProjectID = getConfigValue(C.Pubsub.ProjectID, "PUBSUB_PROJECT_ID", "")
	C.Pubsub.CredentialsFile = getConfigValue(C.Pubsub.CredentialsFile, "GOOGLE_APPLICATION_CREDENTIALS", "")
	C.Pubsub.AlertTopic = getConfigValue(C.Pubsub.AlertTopic, "PUBSUB_ALERT_TOPIC", "monitoring-alerts")
	C.ServiceBus.Namespace = getConfigValue(C.ServiceBus.Namespace, "SERVICEBUS_NAMESPACE", "")
	C.ServiceBus.EmailQueue = getConfigValue(C.ServiceBus.EmailQueue, "SERVICEBUS_EMAIL_QUEUE", "outbound-email")
	C.Notification.FromAddress = getConfigValue(C.Notification.FromAddress, "NOTIFICATION_FROM", "alerts@localhost")

	if C.Monitoring.SampleIntervalSeconds <= 0 {
		C.Monitoring.SampleIntervalSeconds = 300
	}
	if C.Monitoring.MetricWindowMinutes <= 0 {
		C.Monitoring.MetricWindowMinutes = 60
	}
	if C.Monitoring.FailureWindowMinutes <= 0 {
		C.Monitoring.FailureWindowMinutes = 15
	}
	if len(C.Platforms.Enabled) == 0 {
		C.Platforms.Enabled = []string{"facebook", "instagram", "twitter", "linkedin"}
	}
	if C.Platforms.Facebook.GraphVersion == "" {
		C.Platforms.Facebook.GraphVersion = "v19.0"
	}
}

func (m Monitoring) SampleInterval() time.Duration {
	return time.Duration(m.SampleIntervalSeconds) * time.Second
}

func (m Monitoring) MetricWindow() time.Duration {
	return time.Duration(m.MetricWindowMinutes) * time.Minute
}

func (m Monitoring) FailureWindow() time.Duration {
	return time.Duration(m.FailureWindowMinutes) * time.Minute
}

// getConfigValue prefers the environment, then a non-placeholder config value, then the default
func getConfigValue(configValue, envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}
