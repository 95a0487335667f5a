package config

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, SourceFile, cfg.Corpus.Source)
	assert.Equal(t, 50, cfg.Search.DefaultLimit)
	assert.True(t, cfg.Search.PrefixBackoff)
	assert.True(t, cfg.Index.ArticleStemming)
	assert.True(t, cfg.Normalization.RemoveTashkeel)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Empty(t, cfg.Redis.Addr)
	assert.True(t, cfg.Server.RateLimit.Enabled())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: 9000
  rateLimit:
    requests: 0
corpus:
  source: postgres
  table: ayat
index:
  workers: 8
  articleStemming: false
normalization:
  removeTashkeel: true
  normalizeYa: false
search:
  defaultLimit: 20
redis:
  addr: localhost:6379
  cacheTTL: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.False(t, cfg.Server.RateLimit.Enabled())
	assert.Equal(t, SourcePostgres, cfg.Corpus.Source)
	assert.Equal(t, "ayat", cfg.Corpus.Table)
	assert.Equal(t, 8, cfg.Index.Workers)
	assert.False(t, cfg.Index.ArticleStemming)
	assert.False(t, cfg.Normalization.NormalizeYa)
	assert.True(t, cfg.Normalization.NormalizeAlif, "unset keys keep their default")
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, 5432, cfg.Postgres.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QS_SERVER_PORT", "7070")
	t.Setenv("QS_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("QS_CORPUS_PATH", "/srv/quran.json")
	t.Setenv("QS_INDEX_WORKERS", "2")
	t.Setenv("QS_LOGGING_LEVEL", "debug")
	t.Setenv("QS_SERVER_RATE_LIMIT", "5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "/srv/quran.json", cfg.Corpus.Path)
	assert.Equal(t, 2, cfg.Index.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.Server.RateLimit.Requests)
}

func TestTrustedProxies(t *testing.T) {
	t.Setenv("QS_SERVER_TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1,::1")

	cfg, err := Load("")
	require.NoError(t, err)

	proxies, err := cfg.Server.RateLimit.Proxies()
	require.NoError(t, err)
	require.Len(t, proxies, 3)
	assert.Equal(t, netip.MustParsePrefix("10.0.0.0/8"), proxies[0])
	assert.Equal(t, netip.MustParsePrefix("192.0.2.1/32"), proxies[1])
	assert.Equal(t, netip.MustParsePrefix("::1/128"), proxies[2])

	none, err := defaultConfig().Server.RateLimit.Proxies()
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown source", mutate: func(c *Config) { c.Corpus.Source = "s3" }},
		{name: "file without path", mutate: func(c *Config) { c.Corpus.Path = "" }},
		{name: "postgres without table", mutate: func(c *Config) {
			c.Corpus.Source = SourcePostgres
			c.Corpus.Table = ""
		}},
		{name: "no workers", mutate: func(c *Config) { c.Index.Workers = 0 }},
		{name: "negative limit", mutate: func(c *Config) { c.Search.DefaultLimit = -1 }},
		{name: "limit above max", mutate: func(c *Config) { c.Search.DefaultLimit = 1000 }},
		{name: "bad trusted proxy", mutate: func(c *Config) { c.Server.RateLimit.TrustedProxies = []string{"proxy.local"} }},
		{name: "bad trusted range", mutate: func(c *Config) { c.Server.RateLimit.TrustedProxies = []string{"10.0.0.0/33"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, defaultConfig().Validate())
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "q", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=q sslmode=disable", p.DSN())
}
