package config

// Config 配置主体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	DB         DBConfig         `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Cloudflare CloudflareConfig `mapstructure:"cloudflare"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Staging    StagingConfig    `mapstructure:"staging"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	Registry   RegistryConfig   `mapstructure:"registry"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Logstash   LogstashConfig   `mapstructure:"logstash"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
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
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// CloudflareConfig Cloudflare Images / Stream 凭据
type CloudflareConfig struct {
	APIBaseURL          string `mapstructure:"api_base_url"`
	AccountID           string `mapstructure:"account_id"`
	AccountHash         string `mapstructure:"account_hash"`
	APIToken            string `mapstructure:"api_token"`
	AuthEmail           string `mapstructure:"auth_email"`
	SigningKey          string `mapstructure:"signing_key"`
	ImageDeliveryOrigin string `mapstructure:"image_delivery_origin"`
	VideoDeliveryOrigin string `mapstructure:"video_delivery_origin"`
	Timeout             int    `mapstructure:"timeout"` // 秒
}

// UploadConfig 上传限制
type UploadConfig struct {
	MaxFileSize      int64 `mapstructure:"max_file_size"`
	MaxVideoDuration int   `mapstructure:"max_video_duration"`
	PreviewSize      int   `mapstructure:"preview_size"`
}

// StagingConfig 上传暂存区，driver 为 disk 或 minio
type StagingConfig struct {
	Driver string `mapstructure:"driver"`
	Dir    string `mapstructure:"dir"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	TempBucket string `mapstructure:"temp_bucket"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// RegistryConfig 资源登记表
type RegistryConfig struct {
	PendingTTL    int    `mapstructure:"pending_ttl"`    // 分钟
	TaskRetention int    `mapstructure:"task_retention"` // 分钟，终态任务在内存索引中的保留时长
	CleanCron     string `mapstructure:"clean_cron"`
}

type CacheConfig struct {
	ImageSize int `mapstructure:"image_size"`
	ImageTTL  int `mapstructure:"image_ttl"` // 秒
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

type KafkaConfig struct {
	Brokers     []string   `mapstructure:"brokers"`
	Sasl        SaslConfig `mapstructure:"sasl"`
	UploadTopic string     `mapstructure:"upload_topic"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}
