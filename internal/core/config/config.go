package config

import (
	_ "embed"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/getAsterisk/stackwalk/internal/core/errors"
	"github.com/getAsterisk/stackwalk/internal/shared/util"
)

//go:embed defaults.toml
var defaultsTOML string

const (
	DefaultFileName  = "stackwalk.toml"
	defaultCacheSize = 4096
)

type Config struct {
	Version          int                 `toml:"version"`
	DefaultLanguages *bool               `toml:"default_languages"`
	Languages        map[string]Language `toml:"languages"`
	Index            Index               `toml:"index"`
	Exclude          Exclude             `toml:"exclude"`
	Resolution       Resolution          `toml:"resolution"`
	Output           Output              `toml:"output"`
	DB               Database            `toml:"db"`
	Watch            Watch               `toml:"watch"`
	Observability    Observability       `toml:"observability"`
}

// Language describes how files of one language are recognised and which
// grammar node kinds play which role during indexing.
type Language struct {
	Enabled          *bool            `toml:"enabled"`
	Grammar          string           `toml:"grammar"`
	Extensions       []string         `toml:"extensions"`
	Matchers         map[string]Kinds `toml:"matchers"`
	Separators       []string         `toml:"separators"`
	Receivers        []string         `toml:"receivers"`
	IndexFiles       []string         `toml:"index_files"`
	RelativePrefixes []string         `toml:"relative_prefixes"`
	DirectoryModules bool             `toml:"directory_modules"`
}

type Index struct {
	Workers          int   `toml:"workers"`
	CacheSize        int   `toml:"cache_size"`
	RespectGitignore *bool `toml:"respect_gitignore"`
	MaxFileBytes     int64 `toml:"max_file_bytes"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Resolution struct {
	// SiblingFiles lets calls resolve to module-scope callables of files in
	// the same directory without an import.
	SiblingFiles bool `toml:"sibling_files"`
}

type Output struct {
	Dir     string `toml:"dir"`
	Project string `toml:"project"`
	JSON    bool   `toml:"json"`
	YAML    bool   `toml:"yaml"`
	DOT     bool   `toml:"dot"`
	Mermaid bool   `toml:"mermaid"`
	TSV     bool   `toml:"tsv"`
}

type Database struct {
	Enabled     bool          `toml:"enabled"`
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

type Watch struct {
	Debounce         time.Duration `toml:"debounce"`
	MaxRunsPerMinute int           `toml:"max_runs_per_minute"`
}

type Observability struct {
	MetricsAddr   string `toml:"metrics_addr"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
	ServiceName   string `toml:"service_name"`
}

func (l Language) IsEnabled() bool {
	if l.Enabled == nil {
		return true
	}
	return *l.Enabled
}

func (i Index) GitignoreEnabled() bool {
	if i.RespectGitignore == nil {
		return true
	}
	return *i.RespectGitignore
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load reads a TOML file and layers it over the built-in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "config file not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read config"), errors.CtxPath, path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return cfg, nil
}

// Parse decodes data over the built-in defaults, then normalizes and
// validates the result. A nil or empty data yields the defaults.
func Parse(data []byte) (*Config, error) {
	var defaults Config
	if _, err := toml.Decode(defaultsTOML, &defaults); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "decode embedded defaults")
	}

	var user Config
	if _, err := toml.Decode(string(data), &user); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode config")
	}

	// Decoding twice keeps scalar defaults for keys the user file omits.
	cfg := defaults
	cfg.Languages = nil
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode config")
	}

	useDefaults := user.DefaultLanguages == nil || *user.DefaultLanguages
	cfg.Languages = mergeLanguages(defaults.Languages, user.Languages, useDefaults)

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid config")
	}
	return &cfg, nil
}

func mergeLanguages(defaults, user map[string]Language, useDefaults bool) map[string]Language {
	out := make(map[string]Language, len(defaults)+len(user))
	if useDefaults {
		for name, lang := range defaults {
			out[name] = lang
		}
	}
	for name, override := range user {
		base, ok := out[name]
		if !ok {
			out[name] = override
			continue
		}
		out[name] = mergeLanguage(base, override)
	}
	return out
}

func mergeLanguage(base, override Language) Language {
	merged := base
	if override.Enabled != nil {
		merged.Enabled = override.Enabled
	}
	if strings.TrimSpace(override.Grammar) != "" {
		merged.Grammar = override.Grammar
	}
	if len(override.Extensions) > 0 {
		merged.Extensions = override.Extensions
	}
	if len(override.Separators) > 0 {
		merged.Separators = override.Separators
	}
	if len(override.Receivers) > 0 {
		merged.Receivers = override.Receivers
	}
	if len(override.IndexFiles) > 0 {
		merged.IndexFiles = override.IndexFiles
	}
	if len(override.RelativePrefixes) > 0 {
		merged.RelativePrefixes = override.RelativePrefixes
	}
	merged.DirectoryModules = base.DirectoryModules || override.DirectoryModules

	matchers := make(map[string]Kinds, len(base.Matchers)+len(override.Matchers))
	for role, kinds := range base.Matchers {
		matchers[role] = kinds
	}
	for role, kinds := range override.Matchers {
		matchers[role] = kinds
	}
	merged.Matchers = matchers
	return merged
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if cfg.Index.Workers <= 0 {
		cfg.Index.Workers = runtime.NumCPU()
	}
	if cfg.Index.CacheSize <= 0 {
		cfg.Index.CacheSize = defaultCacheSize
	}
	if strings.TrimSpace(cfg.Output.Dir) == "" {
		cfg.Output.Dir = "."
	}
	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = ".stackwalk/index.db"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.MaxRunsPerMinute <= 0 {
		cfg.Watch.MaxRunsPerMinute = 12
	}
	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "stackwalk"
	}

	for name, lang := range cfg.Languages {
		if strings.TrimSpace(lang.Grammar) == "" {
			lang.Grammar = name
		}
		if len(lang.Separators) == 0 {
			lang.Separators = []string{"."}
		}
		cfg.Languages[name] = lang
	}
}

func normalize(cfg *Config) {
	for name, lang := range cfg.Languages {
		lang.Grammar = strings.ToLower(strings.TrimSpace(lang.Grammar))

		exts := make([]string, 0, len(lang.Extensions))
		for _, ext := range lang.Extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext != "" && !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			exts = append(exts, ext)
		}
		lang.Extensions = exts

		matchers := make(map[string]Kinds, len(lang.Matchers))
		for role, kinds := range lang.Matchers {
			matchers[strings.TrimSpace(role)] = kinds.normalized()
		}
		lang.Matchers = matchers

		// Longer separators first so "::" wins over ":".
		seps := append([]string(nil), lang.Separators...)
		sort.SliceStable(seps, func(i, j int) bool { return len(seps[i]) > len(seps[j]) })
		lang.Separators = seps

		cfg.Languages[name] = lang
	}
}

func validate(cfg *Config) error {
	if err := validateVersion(cfg); err != nil {
		return err
	}
	if err := validateLanguages(cfg); err != nil {
		return err
	}
	if err := validateExclude(cfg); err != nil {
		return err
	}
	if err := validateIndex(cfg); err != nil {
		return err
	}
	if err := validateDatabase(cfg); err != nil {
		return err
	}
	return validateObservability(cfg)
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateLanguages(cfg *Config) error {
	owners := make(map[string]string)
	for _, name := range EnabledLanguageNames(cfg) {
		lang := cfg.Languages[name]
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("languages key must not be empty")
		}
		if len(lang.Extensions) == 0 {
			return fmt.Errorf("languages.%s.extensions must not be empty", name)
		}
		for _, ext := range lang.Extensions {
			if ext == "" {
				return fmt.Errorf("languages.%s.extensions must not include empty values", name)
			}
			if owner, ok := owners[ext]; ok {
				return fmt.Errorf("extension %q is claimed by both languages.%s and languages.%s", ext, owner, name)
			}
			owners[ext] = name
		}
		for role, kinds := range lang.Matchers {
			if role == "" {
				return fmt.Errorf("languages.%s.matchers has an empty role name", name)
			}
			if len(kinds) == 0 {
				return fmt.Errorf("languages.%s.matchers.%s must name at least one node kind", name, role)
			}
		}
		for _, sep := range lang.Separators {
			if sep == "" {
				return fmt.Errorf("languages.%s.separators must not include empty values", name)
			}
		}
	}
	return nil
}

func validateExclude(cfg *Config) error {
	_, err := util.CompileExcludes(append(append([]string(nil), cfg.Exclude.Dirs...), cfg.Exclude.Files...))
	return err
}

func validateIndex(cfg *Config) error {
	if cfg.Index.MaxFileBytes < 0 {
		return fmt.Errorf("index.max_file_bytes must be >= 0, got %d", cfg.Index.MaxFileBytes)
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if cfg.DB.Enabled && strings.TrimSpace(cfg.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty when db.enabled=true")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.EnableTracing && strings.TrimSpace(cfg.Observability.OTLPEndpoint) == "" {
		return fmt.Errorf("observability.enable_tracing requires observability.otlp_endpoint")
	}
	return nil
}

// EnabledLanguageNames returns the enabled language ids in sorted order.
func EnabledLanguageNames(cfg *Config) []string {
	names := make([]string, 0, len(cfg.Languages))
	for name, lang := range cfg.Languages {
		if lang.IsEnabled() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
