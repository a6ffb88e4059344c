package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig 从文件与环境变量加载配置
// 环境变量以 "." → "_" 的方式覆盖配置项，例如 CLOUDFLARE_API_TOKEN
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./configs"}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)

	v.SetDefault("cloudflare.api_base_url", "https://api.cloudflare.com/client/v4")
	v.SetDefault("cloudflare.image_delivery_origin", "https://imagedelivery.net")
	v.SetDefault("cloudflare.video_delivery_origin", "https://videodelivery.net")
	v.SetDefault("cloudflare.timeout", 120)
	// 环境变量覆盖依赖 key 已知，敏感项也需要注册默认值
	v.SetDefault("cloudflare.account_id", "")
	v.SetDefault("cloudflare.account_hash", "")
	v.SetDefault("cloudflare.api_token", "")
	v.SetDefault("cloudflare.auth_email", "")
	v.SetDefault("cloudflare.signing_key", "")

	v.SetDefault("upload.max_file_size", 200*1024*1024)
	v.SetDefault("upload.max_video_duration", 3600)
	v.SetDefault("upload.preview_size", 200)

	v.SetDefault("staging.driver", "disk")
	v.SetDefault("staging.dir", "./data/staging")

	v.SetDefault("registry.pending_ttl", 30)
	v.SetDefault("registry.task_retention", 24*60)
	v.SetDefault("registry.clean_cron", "0 */5 * * * *")

	v.SetDefault("cache.image_size", 1024)
	v.SetDefault("cache.image_ttl", 30)

	v.SetDefault("kafka.upload_topic", "waypoint.upload.events")
}
