package main

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenthands/kwmerge/internal/config"
)

func memoryConfig(port string) *config.Config {
	cfg := config.Default()
	cfg.Store.Driver = "memory"
	cfg.Server.Port = port
	return cfg
}

func TestServe_ListenErrorIsReturned(t *testing.T) {
	busy, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer busy.Close()
	port := strconv.Itoa(busy.Addr().(*net.TCPAddr).Port)

	done := make(chan error, 1)
	go func() { done <- serve(context.Background(), memoryConfig(port), zerolog.Nop()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), port)
	case <-time.After(5 * time.Second):
		t.Fatal("serve kept running on a port that is already taken")
	}
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, serve(ctx, memoryConfig("0"), zerolog.Nop()))
}

func TestServe_UnknownDriver(t *testing.T) {
	cfg := memoryConfig("0")
	cfg.Store.Driver = "cassandra"

	err := serve(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "unsupported store driver")
}
