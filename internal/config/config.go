package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env string `yaml:"env" env:"MULTICHAT_ENV" env-default:"local"`
	Api struct {
		BaseURL string        `yaml:"base_url" env:"MULTICHAT_API_URL" env-default:"http://localhost:8000"`
		Timeout time.Duration `yaml:"timeout" env:"MULTICHAT_API_TIMEOUT" env-default:"30s"`
	} `yaml:"api"`
	Session struct {
		Path     string `yaml:"path" env:"MULTICHAT_SESSION_PATH" env-default:"session.json"`
		Email    string `yaml:"email" env:"MULTICHAT_EMAIL" env-default:""`
		Password string `yaml:"password" env:"MULTICHAT_PASSWORD" env-default:""`
	} `yaml:"session"`
	Realtime struct {
		ReconnectDelay time.Duration `yaml:"reconnect_delay" env-default:"5s"`
		Buffer         int           `yaml:"buffer" env-default:"64"`
	} `yaml:"realtime"`
	Board struct {
		PageSize int `yaml:"page_size" env-default:"100"`
	} `yaml:"board"`
	Heartbeat struct {
		Enabled  bool          `yaml:"enabled" env-default:"true"`
		Interval time.Duration `yaml:"interval" env-default:"2m"`
	} `yaml:"heartbeat"`
	Notify struct {
		Sound bool `yaml:"sound" env-default:"true"`
	} `yaml:"notify"`
	Widget struct {
		CdnURL string `yaml:"cdn_url" env-default:"https://cdn.multichat.io/widget.js"`
	} `yaml:"widget"`
	Telegram struct {
		ApiKey  string `yaml:"api_key" env:"MULTICHAT_TELEGRAM_KEY" env-default:""`
		AdminId int64  `yaml:"admin_id" env-default:"0"`
		BotName string `yaml:"bot_name" env-default:"MultiChatHubBot"`
		Enabled bool   `yaml:"enabled" env-default:"false"`
		// ToastsPerMinute caps notifications forwarded to the admin chat.
		ToastsPerMinute int `yaml:"toasts_per_minute" env-default:"20"`
	} `yaml:"telegram"`
	Listen struct {
		BindIP string `yaml:"bind_ip" env-default:"127.0.0.1"`
		Port   string `yaml:"port" env-default:"9100"`
		ApiKey string `yaml:"key" env:"MULTICHAT_CONSOLE_KEY" env-default:""`
	} `yaml:"listen"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		// .env is optional, real environment wins
		_ = godotenv.Load()

		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("%s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}

// Default returns a config populated only from defaults and the environment.
func Default() (*Config, error) {
	conf := &Config{}
	if err := cleanenv.ReadEnv(conf); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	return conf, nil
}
