package config

import "time"

// Config 配置主体
type Config struct {
	Server             ServerConfig       `mapstructure:"server"`
	DB                 DBConfig           `mapstructure:"database"`
	Redis              RedisConfig        `mapstructure:"redis"`
	MinIO              MinIOConfig        `mapstructure:"minio"`
	Kafka              KafkaConfig        `mapstructure:"kafka"`
	KafkaEventConsumer KafkaEventConsumer `mapstructure:"kafka_event_consumer"`
	WeChat             WeChatConfig       `mapstructure:"wechat"`
	JWT                JWTConfig          `mapstructure:"jwt"`
	Chat               ChatConfig         `mapstructure:"chat"`
	IPGeo              IPGeoConfig        `mapstructure:"ipgeo"`
	Logstash           LogstashConfig     `mapstructure:"logstash"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	InternalEndpoint string `mapstructure:"internal_endpoint"`
	ExternalEndpoint string `mapstructure:"external_endpoint"`
	AccessKey        string `mapstructure:"access_key"`
	SecretKey        string `mapstructure:"secret_key"`
	MainBucket       string `mapstructure:"main_bucket"`
	InternalUseSSL   bool   `mapstructure:"internal_use_ssl"`
	ExternalUseSSL   bool   `mapstructure:"external_use_ssl"`
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

type KafkaEventConsumer struct {
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// WeChatConfig 公众号配置
type WeChatConfig struct {
	AppID       string `mapstructure:"app_id"`
	Secret      string `mapstructure:"secret"`
	Token       string `mapstructure:"token"`
	BaseURL     string `mapstructure:"base_url"`
	RedirectURI string `mapstructure:"redirect_uri"`
	TemplateID  string `mapstructure:"template_id"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

// ChatConfig 聊天核心参数
type ChatConfig struct {
	LoginCodeExpire    int           `mapstructure:"login_code_expire"`
	RecallWindow       time.Duration `mapstructure:"recall_window"`
	MarkBadgeThreshold int64         `mapstructure:"mark_badge_threshold"`
	GapJumpLimit       int           `mapstructure:"gap_jump_limit"`
	WorkerCount        int           `mapstructure:"worker_count"`
	QueueSize          int           `mapstructure:"queue_size"`
	LockWait           time.Duration `mapstructure:"lock_wait"`
	LockExpire         time.Duration `mapstructure:"lock_expire"`
	WsIdleTimeout      time.Duration `mapstructure:"ws_idle_timeout"`
	WsPingInterval     time.Duration `mapstructure:"ws_ping_interval"`
	EventBus           string        `mapstructure:"event_bus"`
}

type IPGeoConfig struct {
	URL           string `mapstructure:"url"`
	AccessKey     string `mapstructure:"access_key"`
	MaxRetries    int    `mapstructure:"max_retries"`
	RatePerSecond int    `mapstructure:"rate_per_second"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}
