package config

import (
	"strings"
	"testing"
	"time"
)

// setRequired sets the two environment variables without which Load
// refuses to start.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("LOG_STORE_ADDRESS", "logstore.internal:4100")
	t.Setenv("AWS_LAMBDA_RUNTIME_API", "127.0.0.1:9001")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.LogStoreAddress != "logstore.internal:4100" {
		t.Fatalf("expected address from env, got %q", cfg.LogStoreAddress)
	}
	if cfg.QueueCapacity != 1024 {
		t.Fatalf("expected default queue capacity 1024, got %d", cfg.QueueCapacity)
	}
	if cfg.ListenerPort != 8254 {
		t.Fatalf("expected default listener port 8254, got %d", cfg.ListenerPort)
	}
	if cfg.DialTimeout != 5*time.Second {
		t.Fatalf("expected default dial timeout 5s, got %v", cfg.DialTimeout)
	}
	if cfg.ExtensionName != "logship" {
		t.Fatalf("expected default extension name, got %q", cfg.ExtensionName)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.LogLevel)
	}
}

func TestLoad_BufferingDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Buffering.TimeoutMS != 25 {
		t.Fatalf("expected buffering timeout 25ms, got %d", cfg.Buffering.TimeoutMS)
	}
	if cfg.Buffering.MaxBytes != 262144 {
		t.Fatalf("expected buffering max bytes 262144, got %d", cfg.Buffering.MaxBytes)
	}
	if cfg.Buffering.MaxItems != 1000 {
		t.Fatalf("expected buffering max items 1000, got %d", cfg.Buffering.MaxItems)
	}
}

func TestLoad_MissingAddressIsFatal(t *testing.T) {
	t.Setenv("AWS_LAMBDA_RUNTIME_API", "127.0.0.1:9001")
	t.Setenv("LOG_STORE_ADDRESS", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when LOG_STORE_ADDRESS is unset")
	}
	if !strings.Contains(err.Error(), "LOG_STORE_ADDRESS") {
		t.Fatalf("expected error to name LOG_STORE_ADDRESS, got: %v", err)
	}
}

func TestLoad_AddressMustBeHostPort(t *testing.T) {
	setRequired(t)
	t.Setenv("LOG_STORE_ADDRESS", "no-port-here")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for address without a port")
	}
	if !strings.Contains(err.Error(), "no-port-here") {
		t.Fatalf("expected error to quote the bad address, got: %v", err)
	}
}

func TestLoad_MissingRuntimeAPIIsFatal(t *testing.T) {
	t.Setenv("LOG_STORE_ADDRESS", "logstore.internal:4100")
	t.Setenv("AWS_LAMBDA_RUNTIME_API", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when AWS_LAMBDA_RUNTIME_API is unset")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("LOGSHIP_QUEUE_CAPACITY", "256")
	t.Setenv("LOGSHIP_LISTENER_PORT", "9300")
	t.Setenv("LOGSHIP_LOG_LEVEL", "debug")
	t.Setenv("LOGSHIP_BUFFERING_MAX_ITEMS", "500")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.QueueCapacity != 256 {
		t.Fatalf("expected queue capacity 256, got %d", cfg.QueueCapacity)
	}
	if cfg.ListenerPort != 9300 {
		t.Fatalf("expected listener port 9300, got %d", cfg.ListenerPort)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level debug, got %q", cfg.LogLevel)
	}
	if cfg.Buffering.MaxItems != 500 {
		t.Fatalf("expected buffering max items 500, got %d", cfg.Buffering.MaxItems)
	}
}

func TestLoad_BadListenerPort(t *testing.T) {
	setRequired(t)
	t.Setenv("LOGSHIP_LISTENER_PORT", "70000")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestLoad_BadQueueCapacity(t *testing.T) {
	setRequired(t)
	t.Setenv("LOGSHIP_QUEUE_CAPACITY", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero queue capacity")
	}
}
