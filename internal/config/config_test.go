package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Portal: PortalConfig{
			BaseURL:    "https://open.canada.ca/data/en",
			ResourceID: "abc-123",
			Timeout:    30 * time.Second,
		},
		Output: OutputConfig{Path: "./data/flagged_contracts.jsonl"},
		Export: ExportConfig{
			Endpoint:  "s3.amazonaws.com",
			AccessKey: "key",
			SecretKey: "secret",
			Bucket:    "reports",
		},
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing portal base url",
			mutate:  func(c *Config) { c.Portal.BaseURL = "" },
			wantErr: "portal.base_url",
		},
		{
			name:    "missing resource id",
			mutate:  func(c *Config) { c.Portal.ResourceID = "" },
			wantErr: "portal.resource_id",
		},
		{
			name:    "missing output path",
			mutate:  func(c *Config) { c.Output.Path = "" },
			wantErr: "output.path",
		},
		{
			name:   "export disabled ignores export settings",
			mutate: func(c *Config) { c.Export = ExportConfig{} },
		},
		{
			name: "export enabled requires bucket",
			mutate: func(c *Config) {
				c.Export.Enabled = true
				c.Export.Bucket = ""
			},
			wantErr: "export.bucket",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestValidateExport(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing bucket",
			mutate:  func(c *Config) { c.Export.Bucket = "" },
			wantErr: "export.bucket",
		},
		{
			name:    "missing endpoint",
			mutate:  func(c *Config) { c.Export.Endpoint = "" },
			wantErr: "export.endpoint",
		},
		{
			name:    "missing access key",
			mutate:  func(c *Config) { c.Export.AccessKey = "" },
			wantErr: "credentials",
		},
		{
			name:    "missing secret key",
			mutate:  func(c *Config) { c.Export.SecretKey = "" },
			wantErr: "credentials",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)

			// Applies regardless of the enabled flag: the -export CLI flag
			// can request an upload the config file does not enable.
			err := cfg.ValidateExport()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantErr, err)
			}
		})
	}
}
