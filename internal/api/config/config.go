package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Cfg 全局可访问的配置实例
var Cfg *Config

// LoadConfig 从文件加载配置并填充到 Cfg
func LoadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file not found: %w", err)
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	Cfg = &cfg

	return nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)

	viper.SetDefault("database.max_idle", 10)
	viper.SetDefault("database.max_open", 100)
	viper.SetDefault("database.max_lifetime", 60)

	viper.SetDefault("redis.pool_size", 50)

	viper.SetDefault("kafka.consumer.session_timeout", 30)
	viper.SetDefault("kafka.consumer.heartbeat_interval", 3)
	viper.SetDefault("kafka.consumer.rebalance_timeout", 60)
	viper.SetDefault("kafka.consumer.max_processing_time", 10)
	viper.SetDefault("kafka_event_consumer.topic", "mallchat-event")
	viper.SetDefault("kafka_event_consumer.group_id", "mallchat-fanout")

	viper.SetDefault("wechat.base_url", "https://api.weixin.qq.com")

	viper.SetDefault("jwt.secret", "mallchat")
	viper.SetDefault("jwt.access_ttl", "2h")
	viper.SetDefault("jwt.refresh_ttl", "168h")

	viper.SetDefault("chat.login_code_expire", 60)
	viper.SetDefault("chat.recall_window", "2m")
	viper.SetDefault("chat.mark_badge_threshold", 10)
	viper.SetDefault("chat.gap_jump_limit", 100)
	viper.SetDefault("chat.worker_count", 8)
	viper.SetDefault("chat.queue_size", 4096)
	viper.SetDefault("chat.lock_wait", "10s")
	viper.SetDefault("chat.lock_expire", "60s")
	viper.SetDefault("chat.ws_idle_timeout", "90s")
	viper.SetDefault("chat.ws_ping_interval", "30s")
	viper.SetDefault("chat.event_bus", "local")

	viper.SetDefault("ipgeo.url", "https://ip.taobao.com/outGetIpInfo")
	viper.SetDefault("ipgeo.access_key", "alibaba-inc")
	viper.SetDefault("ipgeo.max_retries", 5)
	viper.SetDefault("ipgeo.rate_per_second", 1)

	viper.SetDefault("logstash.index", "logstash-mallchat")
}
