package config

import (
	"time"

	"github.com/nrebei2/lunarhaze/game/ai"
	"github.com/nrebei2/lunarhaze/game/collision"
	"github.com/nrebei2/lunarhaze/game/world"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Game      GameConfig      `mapstructure:"game"`
	AI        AIConfig        `mapstructure:"ai"`
	Collision CollisionConfig `mapstructure:"collision"`
	Security  SecurityConfig  `mapstructure:"security"`
}

type ServerConfig struct {
	Port     int      `mapstructure:"port"`
	Debug    bool     `mapstructure:"debug"`
	AdminKey string   `mapstructure:"admin_key"`
	AdminIPs []string `mapstructure:"admin_ips"` // empty = any address
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
	// SlowQuery is the statement duration above which GORM logs a warning.
	SlowQuery time.Duration `mapstructure:"slow_query"`
	// EncounterRetention is how long journalled events are kept. Zero keeps
	// them forever.
	EncounterRetention time.Duration `mapstructure:"encounter_retention"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"` // empty = in-process cache
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
	LevelTTL        time.Duration `mapstructure:"level_ttl"`
}

type GameConfig struct {
	TickMs             int           `mapstructure:"tick_ms"`
	// TickSeconds is the simulated time one tick advances, independent of TickMs.
	TickSeconds        float64       `mapstructure:"tick_seconds"`
	LevelsDir          string        `mapstructure:"levels_dir"`
	MaxSessions        int           `mapstructure:"max_sessions"`
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
	ReapInterval       time.Duration `mapstructure:"reap_interval"`

	StealthTicks    int `mapstructure:"stealth_ticks"`
	TransitionTicks int `mapstructure:"transition_ticks"`

	PlayerHP             int     `mapstructure:"player_hp"`
	PlayerSpeed          float64 `mapstructure:"player_speed"`
	PlayerRadius         float64 `mapstructure:"player_radius"`
	RunMultiplier        float64 `mapstructure:"run_multiplier"`
	PlayerDamage         int     `mapstructure:"player_damage"`
	PlayerAttackRange    float64 `mapstructure:"player_attack_range"`
	PlayerAttackCooldown int     `mapstructure:"player_attack_cooldown"`
	MaxMoonlight         int     `mapstructure:"max_moonlight"`
	MoonlightPerBonus    int     `mapstructure:"moonlight_per_bonus"`

	EnemyHP             int     `mapstructure:"enemy_hp"`
	EnemySpeed          float64 `mapstructure:"enemy_speed"`
	EnemyRadius         float64 `mapstructure:"enemy_radius"`
	EnemyDamage         int     `mapstructure:"enemy_damage"`
	EnemyAttackCooldown int     `mapstructure:"enemy_attack_cooldown"`
}

type AIConfig struct {
	DetectDist          float64 `mapstructure:"detect_dist"`
	DetectDistMoonlight float64 `mapstructure:"detect_dist_moonlight"`
	ChaseDist           float64 `mapstructure:"chase_dist"`
	AttackDist          int     `mapstructure:"attack_dist"`
	AttackWindow        int     `mapstructure:"attack_window"`
	RecomputeInterval   int     `mapstructure:"recompute_interval"`
}

type CollisionConfig struct {
	GridParameter int     `mapstructure:"grid_parameter"`
	Epsilon       float64 `mapstructure:"epsilon"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTL         time.Duration `mapstructure:"jwt_ttl"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// InputRateRPS bounds POST /input per session, on top of the per-IP limit.
	InputRateRPS   float64 `mapstructure:"input_rate_rps"`
	InputRateBurst int     `mapstructure:"input_rate_burst"`
	// AllowedOrigins lists the WebSocket/SSE origins that are permitted.
	// An empty slice allows all origins (useful for local development only).
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file overrides anything.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func setDefaults(v *viper.Viper) {
	gs := world.DefaultSettings()
	ap := ai.DefaultParams()

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/lunarhaze.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("database.slow_query", "200ms")
	v.SetDefault("database.encounter_retention", "168h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("cache.level_ttl", "10m")

	v.SetDefault("game.tick_ms", 50)
	v.SetDefault("game.tick_seconds", gs.TickSeconds)
	v.SetDefault("game.levels_dir", "./levels")
	v.SetDefault("game.max_sessions", 64)
	v.SetDefault("game.session_idle_timeout", "5m")
	v.SetDefault("game.reap_interval", "30s")
	v.SetDefault("game.stealth_ticks", gs.StealthTicks)
	v.SetDefault("game.transition_ticks", gs.TransitionTicks)
	v.SetDefault("game.player_hp", gs.PlayerHP)
	v.SetDefault("game.player_speed", gs.PlayerSpeed)
	v.SetDefault("game.player_radius", gs.PlayerRadius)
	v.SetDefault("game.run_multiplier", gs.RunMultiplier)
	v.SetDefault("game.player_damage", gs.PlayerDamage)
	v.SetDefault("game.player_attack_range", gs.PlayerAttackRange)
	v.SetDefault("game.player_attack_cooldown", gs.PlayerAttackCooldown)
	v.SetDefault("game.max_moonlight", gs.MaxMoonlight)
	v.SetDefault("game.moonlight_per_bonus", gs.MoonlightPerBonus)
	v.SetDefault("game.enemy_hp", gs.EnemyHP)
	v.SetDefault("game.enemy_speed", gs.EnemySpeed)
	v.SetDefault("game.enemy_radius", gs.EnemyRadius)
	v.SetDefault("game.enemy_damage", gs.EnemyDamage)
	v.SetDefault("game.enemy_attack_cooldown", gs.EnemyAttackCooldown)

	v.SetDefault("ai.detect_dist", ap.DetectDist)
	v.SetDefault("ai.detect_dist_moonlight", ap.DetectDistMoonlight)
	v.SetDefault("ai.chase_dist", ap.ChaseDist)
	v.SetDefault("ai.attack_dist", ap.AttackDist)
	v.SetDefault("ai.attack_window", ap.AttackWindow)
	v.SetDefault("ai.recompute_interval", ap.RecomputeInterval)

	v.SetDefault("collision.grid_parameter", collision.DefaultGridParameter)
	v.SetDefault("collision.epsilon", collision.DefaultEpsilon)

	v.SetDefault("security.jwt_ttl", "24h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("security.input_rate_rps", 60)
	v.SetDefault("security.input_rate_burst", 30)
}

// TickInterval is the wall-clock period of one room tick.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Game.TickMs) * time.Millisecond
}

// Settings converts the game, ai and collision sections into gameplay tunables.
func (c *Config) Settings() world.Settings {
	g := c.Game
	tick := g.TickSeconds
	if tick <= 0 {
		tick = world.DefaultSettings().TickSeconds
	}
	return world.Settings{
		TickSeconds:          tick,
		StealthTicks:         g.StealthTicks,
		TransitionTicks:      g.TransitionTicks,
		PlayerHP:             g.PlayerHP,
		PlayerSpeed:          g.PlayerSpeed,
		PlayerRadius:         g.PlayerRadius,
		RunMultiplier:        g.RunMultiplier,
		PlayerDamage:         g.PlayerDamage,
		PlayerAttackRange:    g.PlayerAttackRange,
		PlayerAttackCooldown: g.PlayerAttackCooldown,
		MaxMoonlight:         g.MaxMoonlight,
		MoonlightPerBonus:    g.MoonlightPerBonus,
		EnemyHP:              g.EnemyHP,
		EnemySpeed:           g.EnemySpeed,
		EnemyRadius:          g.EnemyRadius,
		EnemyDamage:          g.EnemyDamage,
		EnemyAttackCooldown:  g.EnemyAttackCooldown,
		AI: ai.Params{
			DetectDist:          c.AI.DetectDist,
			DetectDistMoonlight: c.AI.DetectDistMoonlight,
			ChaseDist:           c.AI.ChaseDist,
			AttackDist:          c.AI.AttackDist,
			AttackWindow:        c.AI.AttackWindow,
			RecomputeInterval:   c.AI.RecomputeInterval,
		},
		Collision: collision.Config{
			GridParameter: c.Collision.GridParameter,
			Epsilon:       c.Collision.Epsilon,
		},
	}
}
