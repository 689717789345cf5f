package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port     string `mapstructure:"port"`
	GRPCPort string `mapstructure:"grpc_port"`

	MongoSQL   DatabaseConfig  `mapstructure:"mongo"`
	PostgreSQL DatabaseConfig  `mapstructure:"pg"`
	Redis      RedisConfig     `mapstructure:"redis"`
	MinIO      MinIOConfig     `mapstructure:"minio"`
	Auth       AuthConfig      `mapstructure:"auth"`
	Directory  DirectoryConfig `mapstructure:"directory"`
	Messaging  MessagingConfig `mapstructure:"messaging"`
}

// IdentityGateway definition identity_gateway YAML structure
type IdentityGateway struct {
	Port          string        `mapstructure:"port"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	ChatService   ServiceConfig `mapstructure:"chat"`
	RabbitMQ      QueueConfig   `mapstructure:"rabbitmq"`
	Kafka         KafkaConfig   `mapstructure:"kafka"`
	NotifyTimeout time.Duration `mapstructure:"notify_timeout"`
}

// NotifyWorker definition notify_worker YAML structure
type NotifyWorker struct {
	RabbitMQ      QueueConfig `mapstructure:"rabbitmq"`
	SMTP          SMTPConfig  `mapstructure:"smtp"`
	OperatorEmail string      `mapstructure:"operator_email"`
}

// ServiceConfig definition service port & name
type ServiceConfig struct {
	Port string `mapstructure:"service_port"`
	Name string `mapstructure:"service_name"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB  int           `mapstructure:"redis_db"`
	URLCache time.Duration `mapstructure:"url_cache_ttl"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// MinIOConfig definition blob storage setting
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	User          string        `mapstructure:"user"`
	Password      string        `mapstructure:"password"`
	BucketName    string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PublicURL     string        `mapstructure:"public_url"`
	UploadExpiry  time.Duration `mapstructure:"upload_expiry"`
	RetryInterval int           `mapstructure:"retry_interval"`
	RetryCount    int           `mapstructure:"retry_count"`
}

// AuthConfig definition caller token verification
type AuthConfig struct {
	JWKSURL    string `mapstructure:"jwks_url"`
	HMACSecret string `mapstructure:"hmac_secret"`
	Issuer     string `mapstructure:"issuer"`
}

// DirectoryConfig definition user directory setting
type DirectoryConfig struct {
	MaxUsernameSuffix int `mapstructure:"max_username_suffix"`
	SearchLimit       int `mapstructure:"search_limit"`
}

// MessagingConfig definition conversation / message setting
type MessagingConfig struct {
	FanOutLimit       int     `mapstructure:"fan_out_limit"`
	MessagesPerSecond float64 `mapstructure:"messages_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// QueueConfig definition rabbitmq setting
type QueueConfig struct {
	URL           string `mapstructure:"url"`
	Queue         string `mapstructure:"queue"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// KafkaConfig definition kafka setting, empty brokers disable the writer
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// SMTPConfig definition mail server setting
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}
