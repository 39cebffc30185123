package contract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/smellscan/schema"
	"github.com/sahilm/fuzzy"
)

// Default values for configuration.
const (
	DefaultFileTimeout = 2 * time.Second
	DefaultScanTimeout = 60 * time.Second
	MaxWorkers         = 256
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// LayerRuleRawInput is one classification rule from the YAML config file.
type LayerRuleRawInput struct {
	Pattern string `mapstructure:"pattern"`
	Layer   string `mapstructure:"layer"`
}

// ThresholdsRawInput holds detector limits from the YAML config file.
// Use pointers so that a missing key keeps the default.
type ThresholdsRawInput struct {
	ShotgunFiles            *int     `mapstructure:"shotgun-files"`
	ShotgunLayers           *int     `mapstructure:"shotgun-layers"`
	FeatureEnvyAccesses     *int     `mapstructure:"feature-envy-accesses"`
	LargeClassLines         *int     `mapstructure:"large-class-lines"`
	LargeClassPublicMethods *int     `mapstructure:"large-class-public-methods"`
	LargeClassFields        *int     `mapstructure:"large-class-fields"`
	LongMethodLines         *int     `mapstructure:"long-method-lines"`
	LongMethodNesting       *int     `mapstructure:"long-method-nesting"`
	LongMethodBlocks        *int     `mapstructure:"long-method-blocks"`
	GodTicketFiles          *int     `mapstructure:"god-ticket-files"`
	GodTicketLayers         *int     `mapstructure:"god-ticket-layers"`
	GodTicketHours          *float64 `mapstructure:"god-ticket-hours"`
	IntimacyRiskFloor       *int     `mapstructure:"intimacy-risk-floor"`
}

// PathCriticalityRawInput is one path-prefix risk entry from the YAML config file.
type PathCriticalityRawInput struct {
	Prefix string `mapstructure:"prefix"`
	Risk   int    `mapstructure:"risk"`
}

// CriticalityRawInput holds the feature-criticality map from the YAML config file.
type CriticalityRawInput struct {
	Layers map[string]int            `mapstructure:"layers"`
	Paths  []PathCriticalityRawInput `mapstructure:"paths"`
}

// ClusteringRawInput holds the divergent-change clustering knobs from the YAML config file.
type ClusteringRawInput struct {
	Distance       *float64 `mapstructure:"distance"`
	MinClusters    *int     `mapstructure:"min-clusters"`
	MinClusterSize *int     `mapstructure:"min-cluster-size"`
}

// HistoryRawInput holds the velocity window from the YAML config file.
type HistoryRawInput struct {
	Window string `mapstructure:"window"`
}

// Config holds the runtime configuration for a scan.
// This struct remains the "final, validated" config.
type Config struct {
	ChangeSetPath    string
	DiffPath         string
	DiffContent      bool
	TicketPath       string
	RepoPath         string
	BaseRef          string
	TargetRef        string
	UnusedFeedPath   string
	CoverageFeedPath string

	Workers     int
	FileTimeout time.Duration
	Timeout     time.Duration
	Output      schema.OutputMode
	OutputFile  string
	FailOnHigh  bool
	Skip        []schema.SmellType
	Excludes    []string
	Width       int // Terminal width override (0 = auto-detect)
	UseColors   bool
	Verbose     bool

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext

	// Rules is the read-only rule set handed to the engine.
	Rules Rules
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Workers          int    `mapstructure:"workers"`
	OutputFile       string `mapstructure:"output-file"`
	Format           string `mapstructure:"format"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	Verbose          bool   `mapstructure:"verbose"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`

	// --- Fields from scanCmd.Flags() ---
	ChangeSet    string `mapstructure:"changeset"`
	Diff         string `mapstructure:"diff"`
	DiffContent  bool   `mapstructure:"diff-content"`
	Ticket       string `mapstructure:"ticket"`
	Repo         string `mapstructure:"repo"`
	BaseRef      string `mapstructure:"base-ref"`
	TargetRef    string `mapstructure:"target-ref"`
	UnusedFeed   string `mapstructure:"unused-feed"`
	CoverageFeed string `mapstructure:"coverage-feed"`
	FailOnHigh   bool   `mapstructure:"fail-on-high"`
	Skip         string `mapstructure:"skip"`
	Exclude      string `mapstructure:"exclude"`
	FileTimeout  string `mapstructure:"file-timeout"`
	Timeout      string `mapstructure:"timeout"`

	// --- Rule set from config file ---
	Layers         []LayerRuleRawInput `mapstructure:"layers"`
	DefaultLayer   string              `mapstructure:"default-layer"`
	Thresholds     ThresholdsRawInput  `mapstructure:"thresholds"`
	BannedKeywords []string            `mapstructure:"banned-keywords"`
	CompoundVerbs  []string            `mapstructure:"compound-verbs"`
	PhaseMarkers   []string            `mapstructure:"phase-markers"`
	TestPatterns   []string            `mapstructure:"test-patterns"`
	Criticality    CriticalityRawInput `mapstructure:"criticality"`
	Clustering     ClusteringRawInput  `mapstructure:"clustering"`
	History        HistoryRawInput     `mapstructure:"history"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Skip = slices.Clone(c.Skip)
	clone.Excludes = slices.Clone(c.Excludes)
	clone.Rules = c.Rules.Clone()
	return &clone
}

// ShouldSkip reports whether a detector was disabled with --skip.
func (c *Config) ShouldSkip(smell schema.SmellType) bool {
	return slices.Contains(c.Skip, smell)
}

// configErrorf builds an error wrapping ErrConfig.
func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct. Every failure wraps ErrConfig.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processTimeouts(cfg, input); err != nil {
		return err
	}
	if err := processSkipList(cfg, input); err != nil {
		return err
	}
	if err := processRules(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return configErrorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return configErrorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return configErrorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return configErrorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return configErrorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return configErrorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.CacheBackend]; !ok {
		return configErrorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- History Backend Validation ---
	cfg.HistoryBackend = schema.DatabaseBackend(strings.ToLower(input.HistoryBackend))
	if cfg.HistoryBackend == "" {
		cfg.HistoryBackend = schema.NoneBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.HistoryBackend]; !ok {
		return configErrorf("invalid history backend '%s'. must be sqlite, mysql, postgresql, none", input.HistoryBackend)
	}
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	// Validate that cache and history use different SQLite files
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		historyDBPath := cfg.HistoryDBConnect
		if historyDBPath == "" {
			historyDBPath = GetHistoryDBFilePath()
		}
		if cacheDBPath == historyDBPath {
			return configErrorf("cache and history storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}

	return nil
}

// validateSimpleInputs processes and validates all scalar fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width
	cfg.FailOnHigh = input.FailOnHigh
	cfg.Verbose = input.Verbose
	cfg.DiffContent = input.DiffContent
	cfg.UnusedFeedPath = strings.TrimSpace(input.UnusedFeed)
	cfg.CoverageFeedPath = strings.TrimSpace(input.CoverageFeed)

	// Parse color flag
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return configErrorf("invalid --color value: %v", err)
	}
	cfg.UseColors = colors

	// --- 1. Workers Validation ---
	if input.Workers <= 0 || input.Workers > MaxWorkers {
		return configErrorf("workers must be greater than 0 and cannot exceed %d (received %d)", MaxWorkers, input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 2. Output Validation ---
	cfg.Output = schema.OutputMode(strings.ToLower(input.Format))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return configErrorf("invalid output format '%s'. must be text, json, csv, markdown, sarif", input.Format)
	}

	// --- 3. Backend Validation ---
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}

	// --- 4. Excludes Processing ---
	cfg.Excludes = nil
	if input.Exclude != "" {
		for p := range strings.SplitSeq(input.Exclude, ",") {
			if trimmedP := strings.TrimSpace(p); trimmedP != "" {
				cfg.Excludes = append(cfg.Excludes, trimmedP)
			}
		}
	}

	return nil
}

// processTimeouts parses the per-file and per-ChangeSet deadlines.
func processTimeouts(cfg *Config, input *ConfigRawInput) error {
	cfg.FileTimeout = DefaultFileTimeout
	cfg.Timeout = DefaultScanTimeout

	if input.FileTimeout != "" {
		d, err := time.ParseDuration(input.FileTimeout)
		if err != nil || d <= 0 {
			return configErrorf("invalid --file-timeout '%s'. Expected a positive duration like 2s", input.FileTimeout)
		}
		cfg.FileTimeout = d
	}
	if input.Timeout != "" {
		d, err := time.ParseDuration(input.Timeout)
		if err != nil || d <= 0 {
			return configErrorf("invalid --timeout '%s'. Expected a positive duration like 60s", input.Timeout)
		}
		cfg.Timeout = d
	}
	return nil
}

// processSkipList resolves the --skip entries onto cfg.
func processSkipList(cfg *Config, input *ConfigRawInput) error {
	skip, err := ParseSkipList(input.Skip)
	if err != nil {
		return err
	}
	cfg.Skip = skip
	return nil
}

// ParseSkipList resolves a comma-separated list of detectors. Entries may be smell names or
// catalogue codes (A1..C3). Typos get a suggestion.
func ParseSkipList(list string) ([]schema.SmellType, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}

	names := make([]string, 0, len(schema.SmellCatalogue))
	for _, info := range schema.SmellCatalogue {
		names = append(names, string(info.Type))
	}

	var skip []schema.SmellType
	for part := range strings.SplitSeq(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		smell, ok := resolveSmellName(part)
		if !ok {
			if matches := fuzzy.Find(part, names); len(matches) > 0 {
				return nil, configErrorf("unknown detector '%s' in --skip. Did you mean %s?", part, matches[0].Str)
			}
			return nil, configErrorf("unknown detector '%s' in --skip. Run 'smellscan smells' for the list", part)
		}
		if !slices.Contains(skip, smell) {
			skip = append(skip, smell)
		}
	}
	return skip, nil
}

// resolveSmellName maps a smell name or code to a smell type, case-insensitively.
func resolveSmellName(name string) (schema.SmellType, bool) {
	for _, info := range schema.SmellCatalogue {
		if strings.EqualFold(name, string(info.Type)) || strings.EqualFold(name, info.Code) {
			return info.Type, true
		}
	}
	return "", false
}

// processRules builds the read-only rule set from defaults and config file overrides.
func processRules(cfg *Config, input *ConfigRawInput) error {
	rules := DefaultRules()

	// --- 1. Layer Rules ---
	if len(input.Layers) > 0 {
		rules.LayerRules = make([]LayerRule, 0, len(input.Layers))
		for i, raw := range input.Layers {
			layer := schema.Layer(strings.ToLower(strings.TrimSpace(raw.Layer)))
			if _, ok := schema.ValidLayers[layer]; !ok {
				return configErrorf("layers[%d]: invalid layer '%s'", i, raw.Layer)
			}
			re, err := regexp.Compile(raw.Pattern)
			if err != nil {
				return configErrorf("layers[%d]: invalid pattern %q: %v", i, raw.Pattern, err)
			}
			rules.LayerRules = append(rules.LayerRules, LayerRule{Pattern: re, Layer: layer})
		}
	}

	if input.DefaultLayer != "" {
		layer := schema.Layer(strings.ToLower(strings.TrimSpace(input.DefaultLayer)))
		if _, ok := schema.ValidLayers[layer]; !ok {
			return configErrorf("invalid default-layer '%s'", input.DefaultLayer)
		}
		rules.DefaultLayer = layer
	}

	// --- 2. Thresholds ---
	if err := processThresholds(&rules.Thresholds, input.Thresholds); err != nil {
		return err
	}

	// --- 3. Keyword Lists ---
	if len(input.BannedKeywords) > 0 {
		rules.BannedKeywords = normalizeWords(input.BannedKeywords)
	}
	if len(input.CompoundVerbs) > 0 {
		rules.CompoundVerbs = normalizeWords(input.CompoundVerbs)
	}
	if len(input.PhaseMarkers) > 0 {
		rules.PhaseMarkers = normalizeWords(input.PhaseMarkers)
	}
	for i, p := range input.TestPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return configErrorf("test-patterns[%d]: invalid pattern %q: %v", i, p, err)
		}
		rules.TestPatterns = append(rules.TestPatterns, re)
	}

	// --- 4. Criticality ---
	for name, risk := range input.Criticality.Layers {
		layer := schema.Layer(strings.ToLower(name))
		if _, ok := schema.ValidLayers[layer]; !ok {
			return configErrorf("criticality.layers: invalid layer '%s'", name)
		}
		if risk < schema.MinSubScore || risk > schema.MaxSubScore {
			return configErrorf("criticality.layers.%s must be between 1 and 5 (received %d)", name, risk)
		}
		rules.Criticality.Layers[layer] = risk
	}
	for i, p := range input.Criticality.Paths {
		if strings.TrimSpace(p.Prefix) == "" {
			return configErrorf("criticality.paths[%d]: prefix is required", i)
		}
		if p.Risk < schema.MinSubScore || p.Risk > schema.MaxSubScore {
			return configErrorf("criticality.paths[%d] must have a risk between 1 and 5 (received %d)", i, p.Risk)
		}
		rules.Criticality.Paths = append(rules.Criticality.Paths, PathCriticality{Prefix: p.Prefix, Risk: p.Risk})
	}

	// --- 5. Clustering ---
	if c := input.Clustering; c.Distance != nil {
		if *c.Distance <= 0 || *c.Distance > 1 {
			return configErrorf("clustering.distance must be in (0, 1] (received %.2f)", *c.Distance)
		}
		rules.Clustering.Distance = *c.Distance
	}
	if c := input.Clustering; c.MinClusters != nil {
		if *c.MinClusters < 2 {
			return configErrorf("clustering.min-clusters must be at least 2 (received %d)", *c.MinClusters)
		}
		rules.Clustering.MinClusters = *c.MinClusters
	}
	if c := input.Clustering; c.MinClusterSize != nil {
		if *c.MinClusterSize < 1 {
			return configErrorf("clustering.min-cluster-size must be at least 1 (received %d)", *c.MinClusterSize)
		}
		rules.Clustering.MinClusterSize = *c.MinClusterSize
	}

	// --- 6. History Window ---
	if input.History.Window != "" {
		window, err := ParseWindowDuration(input.History.Window)
		if err != nil {
			return configErrorf("invalid history.window: %v", err)
		}
		rules.HistoryWindow = window
	}

	cfg.Rules = rules
	return nil
}

// processThresholds overrides the default limits with the provided ones.
func processThresholds(t *Thresholds, raw ThresholdsRawInput) error {
	ints := []struct {
		name string
		src  *int
		dst  *int
	}{
		{"shotgun-files", raw.ShotgunFiles, &t.ShotgunFiles},
		{"shotgun-layers", raw.ShotgunLayers, &t.ShotgunLayers},
		{"feature-envy-accesses", raw.FeatureEnvyAccesses, &t.FeatureEnvyAccesses},
		{"large-class-lines", raw.LargeClassLines, &t.LargeClassLines},
		{"large-class-public-methods", raw.LargeClassPublicMethods, &t.LargeClassPublicMethods},
		{"large-class-fields", raw.LargeClassFields, &t.LargeClassFields},
		{"long-method-lines", raw.LongMethodLines, &t.LongMethodLines},
		{"long-method-nesting", raw.LongMethodNesting, &t.LongMethodNesting},
		{"long-method-blocks", raw.LongMethodBlocks, &t.LongMethodBlocks},
		{"god-ticket-files", raw.GodTicketFiles, &t.GodTicketFiles},
		{"god-ticket-layers", raw.GodTicketLayers, &t.GodTicketLayers},
	}
	for _, entry := range ints {
		if entry.src == nil {
			continue
		}
		if *entry.src < 0 {
			return configErrorf("thresholds.%s cannot be negative (received %d)", entry.name, *entry.src)
		}
		*entry.dst = *entry.src
	}

	if raw.GodTicketHours != nil {
		if *raw.GodTicketHours < 0 {
			return configErrorf("thresholds.god-ticket-hours cannot be negative (received %.1f)", *raw.GodTicketHours)
		}
		t.GodTicketHours = *raw.GodTicketHours
	}
	if raw.IntimacyRiskFloor != nil {
		if *raw.IntimacyRiskFloor < DefaultIntimacyRiskFloor || *raw.IntimacyRiskFloor > schema.MaxSubScore {
			return configErrorf("thresholds.intimacy-risk-floor must be between %d and %d (received %d)",
				DefaultIntimacyRiskFloor, schema.MaxSubScore, *raw.IntimacyRiskFloor)
		}
		t.IntimacyRiskFloor = *raw.IntimacyRiskFloor
	}
	return nil
}

// ProcessChangeSetSource checks that exactly one ChangeSet source was given and resolves the repo.
// Only the scan command needs a source, so it runs after ProcessAndValidate.
func ProcessChangeSetSource(ctx context.Context, cfg *Config, client GitClient, input *ConfigRawInput) error {
	cfg.ChangeSetPath = strings.TrimSpace(input.ChangeSet)
	cfg.DiffPath = strings.TrimSpace(input.Diff)
	cfg.TicketPath = strings.TrimSpace(input.Ticket)
	cfg.BaseRef = strings.TrimSpace(input.BaseRef)
	cfg.TargetRef = strings.TrimSpace(input.TargetRef)

	sources := 0
	if cfg.ChangeSetPath != "" {
		sources++
	}
	if cfg.DiffPath != "" {
		sources++
	}
	if cfg.BaseRef != "" || cfg.TargetRef != "" {
		sources++
	}
	if sources == 0 {
		return configErrorf("one of --changeset, --diff or --base-ref is required")
	}
	if sources > 1 {
		return configErrorf("--changeset, --diff and --base-ref are mutually exclusive")
	}

	for _, p := range []string{cfg.ChangeSetPath, cfg.DiffPath, cfg.TicketPath, cfg.UnusedFeedPath, cfg.CoverageFeedPath} {
		if p == "" || p == "-" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return configErrorf("cannot read %q: %v", p, err)
		}
	}

	if cfg.BaseRef == "" && cfg.TargetRef == "" {
		return nil
	}
	if cfg.BaseRef == "" {
		return configErrorf("must specify --base-ref when --target-ref is set")
	}
	if cfg.TargetRef == "" {
		cfg.TargetRef = "HEAD"
	}

	repo := input.Repo
	if repo == "" {
		repo = "."
	}
	absRepo, err := filepath.Abs(repo)
	if err != nil {
		return configErrorf("invalid --repo %q: %v", repo, err)
	}
	root, err := client.GetRepoRoot(ctx, filepath.Clean(absRepo))
	if err != nil {
		return configErrorf("resolving repository root: %v", err)
	}
	cfg.RepoPath = root
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// normalizeWords lowercases and trims a word list, dropping blanks.
func normalizeWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			out = append(out, w)
		}
	}
	return out
}
