package configs

import (
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("WS_HOST", "")
	t.Setenv("WS_PORT", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("MAX_CONNECTIONS", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want development", cfg.Environment)
	}
	if cfg.WSAddr() != "0.0.0.0:8080" {
		t.Errorf("WSAddr() = %q, want 0.0.0.0:8080", cfg.WSAddr())
	}
	if cfg.HTTPPort != 8081 {
		t.Errorf("HTTPPort = %d, want 8081", cfg.HTTPPort)
	}
	if cfg.MaxConnections != 1024 {
		t.Errorf("MaxConnections = %d, want 1024", cfg.MaxConnections)
	}
	if cfg.JWTSecret == "" {
		t.Error("JWTSecret empty; development must fall back to the insecure default")
	}
	if cfg.DatabaseDSN == "" {
		t.Error("DatabaseDSN empty; development must fall back to the local default")
	}
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"Bad ws port", map[string]string{"WS_PORT": "not-a-port"}},
		{"Privileged ws port", map[string]string{"WS_PORT": "80"}},
		{"Port collision", map[string]string{"WS_PORT": "9000", "HTTP_PORT": "9000"}},
		{"Bad max connections", map[string]string{"MAX_CONNECTIONS": "0"}},
		{"Production without secret", map[string]string{"ENVIRONMENT": "production", "DATABASE_URL": "postgres://x"}},
		{"Production without database", map[string]string{"ENVIRONMENT": "production", "JWT_SECRET": "s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "")
			t.Setenv("WS_PORT", "")
			t.Setenv("HTTP_PORT", "")
			t.Setenv("MAX_CONNECTIONS", "")
			t.Setenv("JWT_SECRET", "")
			t.Setenv("DATABASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			if _, err := LoadConfig(); err == nil {
				t.Error("LoadConfig() accepted an invalid configuration")
			}
		})
	}
}

func TestLoadConfigAllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "https://estate.example.com, https://m.estate.example.com ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	want := []string{"https://estate.example.com", "https://m.estate.example.com"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, want)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Errorf("AllowedOrigins[%d] = %q, want %q", i, cfg.AllowedOrigins[i], want[i])
		}
	}
}
