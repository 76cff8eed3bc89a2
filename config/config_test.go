package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyDebug(t *testing.T) {
	c := AppConfig{LogLevel: "info", GinMode: "release"}
	applyDebug(&c)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "release", c.GinMode)

	c.Debug = true
	applyDebug(&c)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "debug", c.GinMode)
}

func TestClampBounds(t *testing.T) {
	c := AppConfig{MaxPerChannel: 1, PermissionThreshold: 9, StaticTransferMode: "carrier-pigeon"}
	clampBounds(&c)
	assert.Equal(t, 5, c.MaxPerChannel)
	assert.Equal(t, 5, c.PermissionThreshold)
	assert.Equal(t, TransferEmbedded, c.StaticTransferMode)

	c = AppConfig{MaxPerChannel: 500, PermissionThreshold: 0, AnimatedTransferMode: "inline"}
	clampBounds(&c)
	assert.Equal(t, 100, c.MaxPerChannel)
	assert.Equal(t, 1, c.PermissionThreshold)
	assert.Equal(t, TransferNamedFile, c.AnimatedTransferMode)
}
