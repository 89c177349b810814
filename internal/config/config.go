package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Server struct {
	ListenAddr      string        `env:"LISTEN_ADDR, default=:8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT, default=10s"`
}

type Storage struct {
	DBPath        string `env:"DB_PATH, default=pipeline.db"`
	OutputDir     string `env:"OUTPUT_DIR, default=outputs"`
	ModuleDir     string `env:"MODULE_DIR, default=modules"`
	RepositoryDir string `env:"REPOSITORY_DIR, default=repositories"`
	// InputDir confines file inputs.
	InputDir string `env:"INPUT_DIR, default=inputs"`
}

type Pipelines struct {
	// DefinitionsDir holds extra YAML definitions loaded next to the
	// built-in ones.
	DefinitionsDir string `env:"DEFINITIONS_DIR"`
}

type Bridge struct {
	Interpreter string        `env:"INTERPRETER, default=python3"`
	ScriptDir   string        `env:"SCRIPT_DIR, default=scripts"`
	ScratchDir  string        `env:"SCRATCH_DIR"`
	Timeout     time.Duration `env:"TIMEOUT, default=30s"`
}

type TextGen struct {
	URL       string        `env:"URL"`
	Token     string        `env:"TOKEN"`
	Timeout   time.Duration `env:"TIMEOUT, default=15s"`
	MaxTokens int           `env:"MAX_TOKENS, default=256"`
}

type Log struct {
	Level  string `env:"LEVEL, default=info"`
	Format string `env:"FORMAT, default=console"`
}

type Repository struct {
	AuthorName  string `env:"AUTHOR_NAME, default=pipeline-engine"`
	AuthorEmail string `env:"AUTHOR_EMAIL, default=pipeline-engine@localhost"`
}

type Config struct {
	Server     Server     `env:",prefix=PIPELINE_SERVER_"`
	Storage    Storage    `env:",prefix=PIPELINE_STORAGE_"`
	Pipelines  Pipelines  `env:",prefix=PIPELINE_PIPELINES_"`
	Bridge     Bridge     `env:",prefix=PIPELINE_BRIDGE_"`
	TextGen    TextGen    `env:",prefix=PIPELINE_TEXTGEN_"`
	Log        Log        `env:",prefix=PIPELINE_LOG_"`
	Repository Repository `env:",prefix=PIPELINE_REPOSITORY_"`
}

func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	})
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
