// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"testing"
)

func TestSourceConfig_IsValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     SourceConfig
		wantErr error
	}{
		{"dir", SourceConfig{Kind: SourceDir, Dir: "/srv/registry"}, nil},
		{"dir missing path", SourceConfig{Kind: SourceDir}, ErrInvalidSourceConfig},
		{"git", SourceConfig{Kind: SourceGit, Git: GitSourceConfig{URLTemplate: "https://h/{name}.git"}}, nil},
		{"git no placeholder", SourceConfig{Kind: SourceGit, Git: GitSourceConfig{URLTemplate: "https://h/x.git"}}, ErrInvalidSourceConfig},
		{"s3", SourceConfig{Kind: SourceS3, S3: S3SourceConfig{Bucket: "b"}}, nil},
		{"s3 no bucket", SourceConfig{Kind: SourceS3}, ErrInvalidSourceConfig},
		{"unknown kind", SourceConfig{Kind: "ftp"}, ErrInvalidSourceKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			valid, errs := tt.src.IsValid()
			if tt.wantErr == nil {
				if !valid {
					t.Errorf("IsValid() = false, %v", errs)
				}
				return
			}
			if valid || len(errs) != 1 || !errors.Is(errs[0], tt.wantErr) {
				t.Errorf("IsValid() = %v, %v; want %v", valid, errs, tt.wantErr)
			}
		})
	}
}

func TestConfig_IsValid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.DepsDir = "a/b"
	cfg.Concurrency = 0
	cfg.Extensions = []string{"js"}
	cfg.Log.Level = "loud"

	valid, errs := cfg.IsValid()
	if valid {
		t.Fatal("IsValid() = true, want false")
	}
	var cfgErr *InvalidConfigError
	if !errors.As(errs[0], &cfgErr) {
		t.Fatalf("error = %T, want *InvalidConfigError", errs[0])
	}
	if len(cfgErr.FieldErrors) != 4 {
		t.Errorf("FieldErrors = %v, want 4 entries", cfgErr.FieldErrors)
	}
	if !errors.Is(errs[0], ErrInvalidConfig) {
		t.Error("error should wrap ErrInvalidConfig")
	}
}

func TestEnumValidation(t *testing.T) {
	t.Parallel()

	if valid, _ := ColorSchemeDark.IsValid(); !valid {
		t.Error("dark should be a valid color scheme")
	}
	if _, errs := ColorScheme("neon").IsValid(); len(errs) == 0 || !errors.Is(errs[0], ErrInvalidColorScheme) {
		t.Errorf("neon: %v", errs)
	}
	if _, errs := LogLevel("trace").IsValid(); len(errs) == 0 || !errors.Is(errs[0], ErrInvalidLogLevel) {
		t.Errorf("trace: %v", errs)
	}
	if ColorScheme("").GlamourStyle() != "auto" {
		t.Error("empty scheme should map to the auto style")
	}
}
