package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDerivesCognitoEndpoints(t *testing.T) {
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("USER_POOL_ID", "eu-west-1_abc")
	t.Setenv("CATALOG_BACKEND", "Memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://cognito-idp.eu-west-1.amazonaws.com/eu-west-1_abc", cfg.Auth.Issuer)
	assert.Equal(t, cfg.Auth.Issuer+"/.well-known/jwks.json", cfg.Auth.JWKSURL)
	assert.Equal(t, "memory", cfg.Catalog.Backend)
	assert.Equal(t, "*", cfg.Server.CORSAllowedOrigins)
	assert.True(t, cfg.Server.RunWorker)
}

func TestLoadWorkerFlag(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev")
	t.Setenv("CATALOG_BACKEND", "postgres")
	t.Setenv("RUN_WORKER", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Server.RunWorker)

	t.Setenv("RUN_WORKER", "true")
	cfg, err = Load()
	require.NoError(t, err)
	assert.True(t, cfg.Server.RunWorker)
}

func TestLoadRequiresVerificationKey(t *testing.T) {
	t.Setenv("USER_POOL_ID", "")
	t.Setenv("COGNITO_ISSUER", "")
	t.Setenv("COGNITO_JWKS_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("JWT_SECRET", "dev")
	t.Setenv("CATALOG_BACKEND", "dynamo")

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "vod", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/vod?sslmode=disable", c.DSN())

	c.URL = "postgres://elsewhere/vod"
	assert.Equal(t, "postgres://elsewhere/vod", c.DSN())
}
