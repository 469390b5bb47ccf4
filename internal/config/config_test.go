package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "docchat", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
	assert.Equal(t, "document.index", cfg.RabbitMQ.IndexQueue)
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.Equal(t, 1024, cfg.OCR.MinWidth)
	assert.Equal(t, 5, cfg.LLM.SearchTopK)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("LLM_CHAT_TEMPERATURE", "0.7")
	t.Setenv("OCR_LANGUAGE", "deu")
	t.Setenv("REDIS_HISTORY_TTL_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, 0.7, cfg.LLM.ChatTemperature)
	assert.Equal(t, "deu", cfg.OCR.Language)
	assert.Equal(t, 60, cfg.Redis.HistoryTTLSeconds, "unparsable values fall back to the default")
}

func TestMySQLDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.MySQL.User = "app"
	cfg.MySQL.Password = "secret"
	cfg.MySQL.Host = "db"
	cfg.MySQL.DB = "docchat_test"

	assert.Equal(t, "app:secret@tcp(db:3306)/docchat_test?parseTime=true&loc=Local&charset=utf8mb4", cfg.MySQLDSN())
}
