package qdrant

import (
	"errors"
	"testing"
	"time"
)

func TestResolveConfigFromEnvValid(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "handbook")
	t.Setenv("QDRANT_NAMESPACE", "prod")
	t.Setenv("QDRANT_VECTOR_DIM", "1536")
	t.Setenv("QDRANT_CREATE_COLLECTION", "true")
	t.Setenv("QDRANT_TIMEOUT_SECONDS", "3")

	cfg, err := ResolveConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	want := Config{
		URL:              "http://qdrant:6333",
		Collection:       "handbook",
		Namespace:        "prod",
		VectorDim:        1536,
		CreateCollection: true,
		Timeout:          3 * time.Second,
	}
	if cfg != want {
		t.Fatalf("config: want=%+v got=%+v", want, cfg)
	}
}

func TestResolveConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant:6333")
	t.Setenv("QDRANT_COLLECTION", "")
	t.Setenv("QDRANT_NAMESPACE", "")
	t.Setenv("QDRANT_VECTOR_DIM", "1536")

	cfg, err := ResolveConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	if cfg.Collection != "docindex" || cfg.Namespace != "docs" {
		t.Fatalf("defaults: collection=%q namespace=%q", cfg.Collection, cfg.Namespace)
	}
}

func TestResolveConfigFromEnvErrors(t *testing.T) {
	cases := []struct {
		name string
		url  string
		dim  string
		code ConfigErrorCode
	}{
		{"missing url", "", "1536", ConfigErrorMissingURL},
		{"relative url", "qdrant:6333", "1536", ConfigErrorInvalidURL},
		{"missing dim", "http://qdrant:6333", "", ConfigErrorMissingVectorDim},
		{"zero dim", "http://qdrant:6333", "0", ConfigErrorInvalidVectorDim},
		{"garbage dim", "http://qdrant:6333", "wide", ConfigErrorInvalidVectorDim},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("QDRANT_URL", tc.url)
			t.Setenv("QDRANT_VECTOR_DIM", tc.dim)

			_, err := ResolveConfigFromEnv()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected *ConfigError, got=%T (%v)", err, err)
			}
			if cfgErr.Code != tc.code {
				t.Fatalf("code: want=%q got=%q", tc.code, cfgErr.Code)
			}
		})
	}
}

func TestValidateConfigMissingCollection(t *testing.T) {
	err := ValidateConfig(Config{URL: "http://qdrant:6333", VectorDim: 3}, true)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Code != ConfigErrorMissingCollection {
		t.Fatalf("want missing collection, got %v", err)
	}
}
