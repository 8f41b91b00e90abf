package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `yaml:"env" env:"ENV" env-default:"local"`
	Telegram struct {
		ApiKey  string `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
		AdminId int64  `yaml:"admin_id" env:"TELEGRAM_ADMIN_ID" env-default:"0"`
		BotName string `yaml:"bot_name" env-default:"LeadDeskBot"`
		Enabled bool   `yaml:"enabled" env-default:"false"`
	} `yaml:"telegram"`
	Backend struct {
		DSN       string `yaml:"dsn" env:"BACKEND_DSN" env-default:""`
		Prefix    string `yaml:"prefix" env:"PROJECT_PREFIX" env-default:"imoveis_milionarios"`
		JwtSecret string `yaml:"jwt_secret" env:"BACKEND_JWT_SECRET" env-default:""`
		MaxConns  int32  `yaml:"max_conns" env-default:"10"`
		Migrate   bool   `yaml:"migrate" env-default:"false"`
	} `yaml:"backend"`
	Gateway struct {
		BaseURL  string        `yaml:"base_url" env:"GATEWAY_URL" env-default:""`
		Instance string        `yaml:"instance" env:"GATEWAY_INSTANCE" env-default:""`
		ApiKey   string        `yaml:"api_key" env:"GATEWAY_API_KEY" env-default:""`
		Timeout  time.Duration `yaml:"timeout" env-default:"30s"`
	} `yaml:"gateway"`
	Chatbot struct {
		WebhookURL   string        `yaml:"webhook_url" env:"CHATBOT_WEBHOOK_URL" env-default:""`
		InstanceName string        `yaml:"instance_name" env-default:"manychat"`
		Timeout      time.Duration `yaml:"timeout" env-default:"30s"`
	} `yaml:"chatbot"`
	Redis struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"127.0.0.1:6379"`
		Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
		DB       int    `yaml:"db" env-default:"0"`
	} `yaml:"redis"`
	Mongo struct {
		Enabled  bool   `yaml:"enabled" env-default:"false"`
		Host     string `yaml:"host" env-default:"127.0.0.1"`
		Port     string `yaml:"port" env-default:"27017"`
		User     string `yaml:"user" env-default:"admin"`
		Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:"pass"`
		Database string `yaml:"database" env-default:"leaddesk"`
	} `yaml:"mongo"`
	ReadStatus struct {
		TTL           time.Duration `yaml:"ttl" env-default:"30s"`
		BatchSize     int           `yaml:"batch_size" env-default:"50"`
		Concurrency   int           `yaml:"concurrency" env-default:"3"`
		PriorityCount int           `yaml:"priority_count" env-default:"20"`
		PriorityDelay time.Duration `yaml:"priority_delay" env-default:"1s"`
	} `yaml:"read_status"`
	Files struct {
		// SigningKey signs archived image links; the backend jwt secret is used when empty.
		SigningKey string        `yaml:"signing_key" env:"FILES_SIGNING_KEY" env-default:""`
		LinkTTL    time.Duration `yaml:"link_ttl" env-default:"1h"`
	} `yaml:"files"`
	Live struct {
		PollInterval time.Duration `yaml:"poll_interval" env-default:"5s"`
	} `yaml:"live"`
	Listen struct {
		BindIP      string   `yaml:"bind_ip" env-default:"127.0.0.1"`
		Port        string   `yaml:"port" env:"PORT" env-default:"9100"`
		CorsOrigins []string `yaml:"cors_origins" env-default:"*"`
	} `yaml:"listen"`
}

var instance *Config
var once sync.Once

// Load reads the optional .env file, then the yaml file, then env overrides.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	conf := &Config{}
	if err := cleanenv.ReadConfig(path, conf); err != nil {
		desc, _ := cleanenv.GetDescription(conf, nil)
		return nil, fmt.Errorf("%s; %s", err, desc)
	}
	return conf, nil
}

func MustLoad(path string) *Config {
	once.Do(func() {
		conf, err := Load(path)
		if err != nil {
			log.Fatal(err)
		}
		instance = conf
	})
	return instance
}
