package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		// TTL кэша сводок в секундах; 0 = без TTL,
		// инвалидация только по пересчету
		SummaryTTL int `yaml:"summary_ttl"`
	} `yaml:"redis"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"`
	} `yaml:"jwt"`

	Eligibility struct {
		PassScore       float64 `yaml:"pass_score"`        // порог weighted overall score
		BatchWorkers    int     `yaml:"batch_workers"`     // параллелизм batch-пересчета
		EventQueueSize  int     `yaml:"event_queue_size"`  // буфер шины доменных событий
		EventWorkers    int     `yaml:"event_workers"`     // consumers шины
		CoreSkillGate   float64 `yaml:"core_skill_gate"`   // минимум покрытия core-скиллов, %
		OptionalBonus   float64 `yaml:"optional_bonus"`    // бонус за каждый optional-скилл
		PlatformFeeRate float64 `yaml:"platform_fee_rate"` // доля платформы при расчете payout
	} `yaml:"eligibility"`

	Email struct {
		SMTPHost     string `yaml:"smtp_host"`
		SMTPPort     int    `yaml:"smtp_port"`
		SMTPUsername string `yaml:"smtp_user"`
		SMTPPassword string `yaml:"smtp_password"`
		FromEmail    string `yaml:"from_email"`
		FromName     string `yaml:"from_name"`
		Enabled      bool   `yaml:"enabled"`
	} `yaml:"email"`
}

var AppConfig *Config

func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		log.Println("Загрузка из config.yaml")

		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	log.Println("Загрузка конфигурации из переменных окружения (режим теста)")

	cfg.Database.DSN = dbURL
	cfg.Server.Env = os.Getenv("SERVER_ENV")
	cfg.Server.Port, _ = strconv.Atoi(os.Getenv("SERVER_PORT"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60
	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Eligibility.PassScore == 0 {
		cfg.Eligibility.PassScore = 70.0
	}
	if cfg.Eligibility.BatchWorkers == 0 {
		cfg.Eligibility.BatchWorkers = 8
	}
	if cfg.Eligibility.EventQueueSize == 0 {
		cfg.Eligibility.EventQueueSize = 256
	}
	if cfg.Eligibility.EventWorkers == 0 {
		cfg.Eligibility.EventWorkers = 4
	}
	if cfg.Eligibility.CoreSkillGate == 0 {
		cfg.Eligibility.CoreSkillGate = 80.0
	}
	if cfg.Eligibility.OptionalBonus == 0 {
		cfg.Eligibility.OptionalBonus = 5.0
	}
	if cfg.Eligibility.PlatformFeeRate == 0 {
		cfg.Eligibility.PlatformFeeRate = 0.15
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
