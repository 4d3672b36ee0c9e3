package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"voice-resume-backend/internal/shared/config"
)

func TestLambdaConfigMovesLocalOutputToTmp(t *testing.T) {
	cfg := lambdaConfig(config.Config{ObjectStoreType: "local", OutputDir: "./output"})
	assert.Equal(t, "/tmp/output", cfg.OutputDir)

	cfg = lambdaConfig(config.Config{ObjectStoreType: "local", OutputDir: "/tmp/custom"})
	assert.Equal(t, "/tmp/custom", cfg.OutputDir)

	cfg = lambdaConfig(config.Config{ObjectStoreType: "s3", OutputDir: "./output"})
	assert.Equal(t, "./output", cfg.OutputDir)
}
