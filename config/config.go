package config

import (
	"os"
	"strconv"

	"github.com/kelseyhightower/envconfig"
)

// Config 应用配置（从环境变量加载）
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	JWT      JWTConfig
	Upload   UploadConfig
}

// KafkaConfig 订单事件Kafka配置，Brokers为空时禁用
type KafkaConfig struct {
	Brokers string `envconfig:"KAFKA_BROKERS" default:""`
	Topic   string `envconfig:"KAFKA_ORDER_TOPIC" default:"order-events"`
}

// UploadConfig 图片上传配置
type UploadConfig struct {
	Path        string `envconfig:"UPLOAD_PATH" default:"./uploads"`
	MaxFileSize int64  `envconfig:"UPLOAD_MAX_BYTES" default:"10485760"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetEnv 获取环境变量，如果不存在则返回默认值
func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvInt 获取环境变量（整型）
func GetEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// GetEnvBool 获取环境变量（布尔型）
func GetEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
