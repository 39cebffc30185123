package contract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/smellscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// validInput returns the smallest raw input that passes validation.
func validInput() *ConfigRawInput {
	return &ConfigRawInput{
		Workers:        4,
		Format:         "json",
		Color:          "no",
		CacheBackend:   "none",
		HistoryBackend: "none",
	}
}

func TestProcessAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*ConfigRawInput)
		expectError bool
		check       func(*testing.T, *Config)
	}{
		{
			name: "valid minimal config",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 4, cfg.Workers)
				assert.Equal(t, schema.JSONOut, cfg.Output)
				assert.Equal(t, DefaultFileTimeout, cfg.FileTimeout)
				assert.Equal(t, DefaultScanTimeout, cfg.Timeout)
				assert.Len(t, cfg.Rules.LayerRules, len(DefaultLayerPatterns))
				assert.Equal(t, 0.7, cfg.Rules.Clustering.Distance)
			},
		},
		{
			name:        "invalid format",
			mutate:      func(in *ConfigRawInput) { in.Format = "xml" },
			expectError: true,
		},
		{
			name:        "zero workers",
			mutate:      func(in *ConfigRawInput) { in.Workers = 0 },
			expectError: true,
		},
		{
			name:        "invalid color",
			mutate:      func(in *ConfigRawInput) { in.Color = "sometimes" },
			expectError: true,
		},
		{
			name:        "invalid cache backend",
			mutate:      func(in *ConfigRawInput) { in.CacheBackend = "redis" },
			expectError: true,
		},
		{
			name: "mysql without tcp",
			mutate: func(in *ConfigRawInput) {
				in.HistoryBackend = "mysql"
				in.HistoryDBConnect = "root@localhost/db"
			},
			expectError: true,
		},
		{
			name: "same sqlite file for both stores",
			mutate: func(in *ConfigRawInput) {
				in.CacheBackend = "sqlite"
				in.HistoryBackend = "sqlite"
				in.CacheDBConnect = "/tmp/same.db"
				in.HistoryDBConnect = "/tmp/same.db"
			},
			expectError: true,
		},
		{
			name:   "timeouts",
			mutate: func(in *ConfigRawInput) { in.FileTimeout = "500ms"; in.Timeout = "5s" },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 500*time.Millisecond, cfg.FileTimeout)
				assert.Equal(t, 5*time.Second, cfg.Timeout)
			},
		},
		{
			name:        "bad timeout",
			mutate:      func(in *ConfigRawInput) { in.Timeout = "soon" },
			expectError: true,
		},
		{
			name:   "skip by name and code",
			mutate: func(in *ConfigRawInput) { in.Skip = "longmethod, C2,LongMethod" },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []schema.SmellType{schema.LongMethod, schema.IncompleteTicket}, cfg.Skip)
				assert.True(t, cfg.ShouldSkip(schema.IncompleteTicket))
				assert.False(t, cfg.ShouldSkip(schema.GodTicket))
			},
		},
		{
			name: "custom layer rules replace defaults",
			mutate: func(in *ConfigRawInput) {
				in.Layers = []LayerRuleRawInput{{Pattern: `^web/`, Layer: "UI"}}
				in.DefaultLayer = "domain"
			},
			check: func(t *testing.T, cfg *Config) {
				require.Len(t, cfg.Rules.LayerRules, 1)
				assert.Equal(t, schema.UILayer, cfg.Rules.LayerRules[0].Layer)
				assert.Equal(t, schema.DomainLayer, cfg.Rules.DefaultLayer)
			},
		},
		{
			name:        "bad layer pattern",
			mutate:      func(in *ConfigRawInput) { in.Layers = []LayerRuleRawInput{{Pattern: `([`, Layer: "ui"}} },
			expectError: true,
		},
		{
			name:        "bad layer name",
			mutate:      func(in *ConfigRawInput) { in.Layers = []LayerRuleRawInput{{Pattern: `x`, Layer: "infra"}} },
			expectError: true,
		},
		{
			name: "threshold overrides",
			mutate: func(in *ConfigRawInput) {
				in.Thresholds = ThresholdsRawInput{LargeClassLines: intPtr(500), GodTicketHours: floatPtr(24)}
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 500, cfg.Rules.Thresholds.LargeClassLines)
				assert.Equal(t, 24.0, cfg.Rules.Thresholds.GodTicketHours)
				assert.Equal(t, 15, cfg.Rules.Thresholds.LargeClassPublicMethods)
			},
		},
		{
			name:        "negative threshold",
			mutate:      func(in *ConfigRawInput) { in.Thresholds = ThresholdsRawInput{ShotgunFiles: intPtr(-1)} },
			expectError: true,
		},
		{
			name:   "intimacy risk floor raised",
			mutate: func(in *ConfigRawInput) { in.Thresholds = ThresholdsRawInput{IntimacyRiskFloor: intPtr(5)} },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5, cfg.Rules.Thresholds.IntimacyRiskFloor)
			},
		},
		{
			name:        "intimacy risk floor of 1",
			mutate:      func(in *ConfigRawInput) { in.Thresholds = ThresholdsRawInput{IntimacyRiskFloor: intPtr(1)} },
			expectError: true,
		},
		{
			name:        "intimacy risk floor of 3",
			mutate:      func(in *ConfigRawInput) { in.Thresholds = ThresholdsRawInput{IntimacyRiskFloor: intPtr(3)} },
			expectError: true,
		},
		{
			name: "criticality",
			mutate: func(in *ConfigRawInput) {
				in.Criticality = CriticalityRawInput{
					Layers: map[string]int{"ui": 2},
					Paths:  []PathCriticalityRawInput{{Prefix: "lib/payments/", Risk: 5}},
				}
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 2, cfg.Rules.Criticality.Layers[schema.UILayer])
				assert.Equal(t, 5, cfg.Rules.Criticality.Layers[schema.DomainLayer])
				assert.Equal(t, []PathCriticality{{Prefix: "lib/payments/", Risk: 5}}, cfg.Rules.Criticality.Paths)
			},
		},
		{
			name:        "criticality out of range",
			mutate:      func(in *ConfigRawInput) { in.Criticality = CriticalityRawInput{Layers: map[string]int{"ui": 9}} },
			expectError: true,
		},
		{
			name:        "clustering distance out of range",
			mutate:      func(in *ConfigRawInput) { in.Clustering = ClusteringRawInput{Distance: floatPtr(1.5)} },
			expectError: true,
		},
		{
			name:   "history window",
			mutate: func(in *ConfigRawInput) { in.History.Window = "30 days" },
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 30*24*time.Hour, cfg.Rules.HistoryWindow)
			},
		},
		{
			name: "keyword lists are normalized",
			mutate: func(in *ConfigRawInput) {
				in.BannedKeywords = []string{" SQL ", "", "Http"}
				in.TestPatterns = []string{`_spec\.rb$`}
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"sql", "http"}, cfg.Rules.BannedKeywords)
				assert.True(t, cfg.Rules.IsTestFile("spec/user_spec.rb"))
				assert.False(t, cfg.Rules.IsTestFile("lib/user_test.go"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			if tt.mutate != nil {
				tt.mutate(input)
			}
			cfg := &Config{}
			err := ProcessAndValidate(cfg, input)

			if tt.expectError {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrConfig), "expected ErrConfig, got %v", err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestProcessSkipListSuggestion(t *testing.T) {
	input := validInput()
	input.Skip = "GodTiket"
	err := ProcessAndValidate(&Config{}, input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Did you mean GodTicket?")
}

func TestProcessChangeSetSource(t *testing.T) {
	dir := t.TempDir()
	descriptor := filepath.Join(dir, "cs.json")
	require.NoError(t, os.WriteFile(descriptor, []byte(`{"id":"T-1","files":[]}`), 0o644))

	t.Run("descriptor", func(t *testing.T) {
		cfg := &Config{}
		err := ProcessChangeSetSource(context.Background(), cfg, new(MockGitClient), &ConfigRawInput{ChangeSet: descriptor})
		require.NoError(t, err)
		assert.Equal(t, descriptor, cfg.ChangeSetPath)
	})

	t.Run("missing source", func(t *testing.T) {
		err := ProcessChangeSetSource(context.Background(), &Config{}, new(MockGitClient), &ConfigRawInput{})
		assert.ErrorIs(t, err, ErrConfig)
	})

	t.Run("two sources", func(t *testing.T) {
		err := ProcessChangeSetSource(context.Background(), &Config{}, new(MockGitClient), &ConfigRawInput{ChangeSet: descriptor, Diff: descriptor})
		assert.ErrorIs(t, err, ErrConfig)
	})

	t.Run("unreadable descriptor", func(t *testing.T) {
		err := ProcessChangeSetSource(context.Background(), &Config{}, new(MockGitClient), &ConfigRawInput{ChangeSet: filepath.Join(dir, "nope.json")})
		assert.ErrorIs(t, err, ErrConfig)
	})

	t.Run("git refs", func(t *testing.T) {
		ctx := context.Background()
		workDir, err := filepath.Abs(".")
		require.NoError(t, err)

		client := new(MockGitClient)
		client.On("GetRepoRoot", ctx, workDir).Return("/mock/repo/root", nil)

		cfg := &Config{}
		err = ProcessChangeSetSource(ctx, cfg, client, &ConfigRawInput{BaseRef: "main"})
		require.NoError(t, err)
		assert.Equal(t, "/mock/repo/root", cfg.RepoPath)
		assert.Equal(t, "HEAD", cfg.TargetRef)
		client.AssertExpectations(t)
	})

	t.Run("target without base", func(t *testing.T) {
		err := ProcessChangeSetSource(context.Background(), &Config{}, new(MockGitClient), &ConfigRawInput{TargetRef: "feature"})
		assert.ErrorIs(t, err, ErrConfig)
	})
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ProcessAndValidate(cfg, validInput()))
	cfg.Skip = []schema.SmellType{schema.DeadCode}

	clone := cfg.Clone()
	clone.Skip[0] = schema.GodTicket
	clone.Rules.BannedKeywords[0] = "changed"
	clone.Rules.Criticality.Layers[schema.UILayer] = 5

	assert.Equal(t, schema.DeadCode, cfg.Skip[0])
	assert.Equal(t, DefaultBannedKeywords[0], cfg.Rules.BannedKeywords[0])
	assert.Equal(t, 1, cfg.Rules.Criticality.Layers[schema.UILayer])
}

func TestValidateDatabaseConnectionString(t *testing.T) {
	tests := []struct {
		backend schema.DatabaseBackend
		conn    string
		wantErr bool
	}{
		{schema.SQLiteBackend, "", false},
		{schema.NoneBackend, "", false},
		{schema.MySQLBackend, "user:pass@tcp(localhost:3306)/smellscan", false},
		{schema.MySQLBackend, "", true},
		{schema.MySQLBackend, "user:pass@localhost", true},
		{schema.PostgreSQLBackend, "host=localhost dbname=smellscan", false},
		{schema.PostgreSQLBackend, "dbname=smellscan", true},
		{schema.PostgreSQLBackend, "host=localhost", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend)+"/"+tt.conn, func(t *testing.T) {
			err := ValidateDatabaseConnectionString(tt.backend, tt.conn)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
