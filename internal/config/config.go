package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string            `yaml:"env" env-default:"local"`
	DSN         string            `yaml:"dsn" env-required:"true"`
	HTTP        HTTPConfig        `yaml:"http"`
	FileStorage FileStorageConfig `yaml:"file_storage"`
	Redis       RedisConf         `yaml:"redis"`
	Archive     ArchiveConfig     `yaml:"archive"`
	ShareToken  ShareTokenConfig  `yaml:"share_token"`
}

type HTTPConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port" env-default:"8080"`
}

type FileStorageConfig struct {
	BaseDir        string `yaml:"base_dir"`
	BaseURL        string `yaml:"base_url"`
	MaxSize        int64  `yaml:"max_size"`
	ThumbnailWidth int    `yaml:"thumbnail_width" env-default:"640"`
}

type RedisConf struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

type ArchiveConfig struct {
	FetchConcurrency int           `yaml:"fetch_concurrency" env-default:"4"`
	ProgressTTL      time.Duration `yaml:"progress_ttl" env-default:"15m"`
}

type ShareTokenConfig struct {
	Secret string        `yaml:"secret" env:"SHARE_TOKEN_SECRET"`
	TTL    time.Duration `yaml:"ttl" env-default:"720h"`
}

func MustLoad() *Config {
	path := fetchConfigPath()
	if path == "" {
		panic("config path is empty")
	}

	return MustLoadPath(path)
}

func MustLoadPath(configPath string) *Config {
	// check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}

func fetchConfigPath() string {
	var res string

	// --config="path/to/config.yaml"
	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	return res
}
