package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/wagerbook/internal/domain"
)

// Config es la configuración completa del servicio.
type Config struct {
	Escrow  EscrowConfig  `yaml:"escrow"`
	Arbiter ArbiterConfig `yaml:"arbiter"`
	Judges  JudgesConfig  `yaml:"judges"`
	Pools   PoolsConfig   `yaml:"pools"`
	HTTP    HTTPConfig    `yaml:"http"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// EscrowConfig controla el ciclo de vida de las bets.
type EscrowConfig struct {
	DisputeWindow time.Duration `yaml:"dispute_window" validate:"gt=0"`
	MaxRiskScore  int           `yaml:"max_risk_score" validate:"gte=0,lte=100"`
}

// ArbiterConfig controla la asignación de jueces.
type ArbiterConfig struct {
	SelectionSeed uint64   `yaml:"selection_seed"`
	Selector      string   `yaml:"selector" validate:"oneof=reputation round_robin"`
	Admins        []string `yaml:"admins" validate:"dive,required"` // pueden reportar misconduct
}

// JudgesConfig es el JudgeConfig del registro. Los importes van como string
// decimal para no pasar por float64.
type JudgesConfig struct {
	MinStake               string        `yaml:"min_stake" validate:"required,numeric"`
	MinReputation          int           `yaml:"min_reputation" validate:"gte=0,lte=10000"`
	InitialReputation      int           `yaml:"initial_reputation" validate:"gte=0,lte=10000"`
	ReputationStep         int           `yaml:"reputation_step" validate:"gte=0"`
	SlashPercentage        int           `yaml:"slash_percentage" validate:"gte=0,lte=100"`
	SlashReputationPenalty int           `yaml:"slash_reputation_penalty" validate:"gte=0"`
	LockPeriod             time.Duration `yaml:"lock_period" validate:"gt=0"`
	VerdictTimeout         time.Duration `yaml:"verdict_timeout" validate:"gt=0"`
}

// PoolsConfig elige el matcher de house bets: el servicio remoto si hay
// api_base, si no la lista estática.
type PoolsConfig struct {
	APIBase    string       `yaml:"api_base" validate:"omitempty,url"`
	RatePerSec float64      `yaml:"rate_per_sec" validate:"gte=0"`
	Static     []PoolConfig `yaml:"static" validate:"dive"`
}

// PoolConfig es un pool de la lista estática.
type PoolConfig struct {
	ID                 string `yaml:"id" validate:"required"`
	Category           string `yaml:"category" validate:"required"`
	Operator           string `yaml:"operator" validate:"required"`
	AvailableLiquidity string `yaml:"available_liquidity" validate:"required,numeric"`
	RiskScore          int    `yaml:"risk_score" validate:"gte=0,lte=100"`
}

// HTTPConfig controla el servidor HTTP.
type HTTPConfig struct {
	Addr              string        `yaml:"addr" validate:"required"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" validate:"gt=0"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn" validate:"required"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	return Parse(data)
}

// Parse aplica overrides, defaults y validación sobre un documento YAML.
func Parse(data []byte) (*Config, error) {
	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate comprueba los tags de validación y que los importes parseen.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config.Validate: %w", err)
	}
	if _, err := c.JudgeConfig(); err != nil {
		return fmt.Errorf("config.Validate: judges: %w", err)
	}
	if _, err := c.StaticPools(); err != nil {
		return fmt.Errorf("config.Validate: pools: %w", err)
	}
	return nil
}

// JudgeConfig construye la configuración inmutable del registro.
func (c *Config) JudgeConfig() (domain.JudgeConfig, error) {
	minStake, err := domain.ParseAmount(c.Judges.MinStake)
	if err != nil {
		return domain.JudgeConfig{}, err
	}
	jc := domain.JudgeConfig{
		MinStake:               minStake,
		MinReputation:          c.Judges.MinReputation,
		InitialReputation:      c.Judges.InitialReputation,
		ReputationStep:         c.Judges.ReputationStep,
		SlashPercentage:        c.Judges.SlashPercentage,
		SlashReputationPenalty: c.Judges.SlashReputationPenalty,
		LockPeriod:             c.Judges.LockPeriod,
		VerdictTimeout:         c.Judges.VerdictTimeout,
	}
	return jc, jc.Validate()
}

// StaticPools convierte la lista estática a domain.Pool.
func (c *Config) StaticPools() ([]domain.Pool, error) {
	pools := make([]domain.Pool, 0, len(c.Pools.Static))
	for _, p := range c.Pools.Static {
		liq, err := domain.ParseAmount(p.AvailableLiquidity)
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", p.ID, err)
		}
		pools = append(pools, domain.Pool{
			ID:                 domain.PoolID(p.ID),
			Category:           p.Category,
			Operator:           domain.Party(p.Operator),
			AvailableLiquidity: liq,
			RiskScore:          p.RiskScore,
		})
	}
	return pools, nil
}

// AdminParties devuelve los admins del arbiter como identidades.
func (c *Config) AdminParties() []domain.Party {
	out := make([]domain.Party, 0, len(c.Arbiter.Admins))
	for _, a := range c.Arbiter.Admins {
		out = append(out, domain.Party(a))
	}
	return out
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("WAGERBOOK_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("WAGERBOOK_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("WAGERBOOK_POOLS_API"); v != "" {
		cfg.Pools.APIBase = v
	}
	if v := os.Getenv("WAGERBOOK_SELECTION_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Arbiter.SelectionSeed = seed
		}
	}
	if v := os.Getenv("WAGERBOOK_ADMINS"); v != "" {
		cfg.Arbiter.Admins = strings.Split(v, ",")
	}
}

// defaults devuelve la configuración base. Parse decodifica el YAML encima,
// así que solo las keys ausentes conservan estos valores y un 0 explícito se
// respeta.
func defaults() Config {
	def := domain.DefaultJudgeConfig()
	return Config{
		Escrow: EscrowConfig{
			DisputeWindow: domain.DefaultDisputeWindow,
			MaxRiskScore:  70,
		},
		Arbiter: ArbiterConfig{Selector: "reputation"},
		Judges: JudgesConfig{
			MinStake:               def.MinStake.String(),
			MinReputation:          def.MinReputation,
			InitialReputation:      def.InitialReputation,
			ReputationStep:         def.ReputationStep,
			SlashPercentage:        def.SlashPercentage,
			SlashReputationPenalty: def.SlashReputationPenalty,
			LockPeriod:             def.LockPeriod,
			VerdictTimeout:         def.VerdictTimeout,
		},
		HTTP: HTTPConfig{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{DSN: "wagerbook.db"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}
