// =============================================================================
// 📦 Gateway 配置加载器
// =============================================================================
// 统一配置加载，支持 YAML 文件 + 环境变量覆盖
//
// 使用方法:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("config.yaml").
//	    WithEnvPrefix("GATEWAY").
//	    Load()
//
// 配置优先级: 默认值 → YAML 文件 → 环境变量
// =============================================================================
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config is the gateway's complete configuration.
type Config struct {
	// Server HTTP 服务配置
	Server ServerConfig `yaml:"server" env:"SERVER"`

	// Providers 各供应商凭据与端点
	Providers ProvidersConfig `yaml:"providers" env:"PROVIDERS"`

	// Router 路由模型目录与默认策略
	Router RouterConfig `yaml:"router" env:"ROUTER"`

	// Breaker 熔断器阈值
	Breaker BreakerConfig `yaml:"breaker" env:"BREAKER"`

	// Cache 精确/语义缓存边界
	Cache CacheConfig `yaml:"cache" env:"CACHE"`

	// Tenant 新建租户的默认配额
	Tenant TenantConfig `yaml:"tenant" env:"TENANT"`

	// Store 持久化存储配置
	Store StoreConfig `yaml:"store" env:"STORE"`

	// Log 日志配置
	Log LogConfig `yaml:"log" env:"LOG"`

	// Telemetry 遥测配置
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTP 端口
	HTTPPort int `yaml:"http_port" env:"HTTP_PORT"`
	// Metrics 端口
	MetricsPort int `yaml:"metrics_port" env:"METRICS_PORT"`
	// 读取超时
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	// 写入超时
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	// 优雅关闭超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// 默认每分钟请求数上限：用于匿名调用方（按 IP）及未设置自身 RateLimitRPM 的租户
	RateLimitRPM int `yaml:"rate_limit_rpm" env:"RATE_LIMIT_RPM"`
	// 单实例同时在途请求数上限
	MaxConcurrency int `yaml:"max_concurrency" env:"MAX_CONCURRENCY"`
	// 鉴权请求头名（X-API-Key 风格）。鉴权中间件不读取此字段，
	// 始终检查 Authorization 与 X-API-Key 两个请求头。
	AuthHeader string `yaml:"auth_header" env:"AUTH_HEADER"`
	// 允许跨域访问的来源列表；留空时 CORS 中间件拒绝一切跨域请求
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS"`
}

// ProviderConfig configures a single upstream LLM vendor adapter. All
// five vendor packages (openai, anthropic, gemini, cohere, groq) share
// this shape.
type ProviderConfig struct {
	// API Key（留空则该供应商不会被注册；所有供应商均留空时网关退化为 mock 模式）
	APIKey string `yaml:"api_key" env:"API_KEY"`
	// 基础 URL（留空使用供应商默认值）
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
	// 默认模型（留空使用供应商默认值）
	Model string `yaml:"model" env:"MODEL"`
	// 请求超时
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// ProvidersConfig groups every vendor's credentials.
type ProvidersConfig struct {
	OpenAI    ProviderConfig `yaml:"openai" env:"OPENAI"`
	Anthropic ProviderConfig `yaml:"anthropic" env:"ANTHROPIC"`
	Gemini    ProviderConfig `yaml:"gemini" env:"GEMINI"`
	Cohere    ProviderConfig `yaml:"cohere" env:"COHERE"`
	Groq      ProviderConfig `yaml:"groq" env:"GROQ"`
}

// RouterConfig 路由配置
type RouterConfig struct {
	// 模型目录 YAML 文件路径
	CatalogPath string `yaml:"catalog_path" env:"CATALOG_PATH"`
	// 默认路由策略: cost-first, green-first, performance-first, balanced
	DefaultStrategy string `yaml:"default_strategy" env:"DEFAULT_STRATEGY"`
}

// BreakerConfig mirrors breaker.Config; see that package for semantics.
type BreakerConfig struct {
	Window               time.Duration `yaml:"window" env:"WINDOW"`
	MinSamples           int           `yaml:"min_samples" env:"MIN_SAMPLES"`
	ErrorRateThreshold   float64       `yaml:"error_rate_threshold" env:"ERROR_RATE_THRESHOLD"`
	TimeoutRateThreshold float64       `yaml:"timeout_rate_threshold" env:"TIMEOUT_RATE_THRESHOLD"`
	P95Threshold         time.Duration `yaml:"p95_threshold" env:"P95_THRESHOLD"`
	BaseCooldown         time.Duration `yaml:"base_cooldown" env:"BASE_COOLDOWN"`
	MaxCooldown          time.Duration `yaml:"max_cooldown" env:"MAX_COOLDOWN"`
}

// CacheConfig mirrors cache.Config; see that package for semantics.
type CacheConfig struct {
	MaxSize                     int           `yaml:"max_size" env:"MAX_SIZE"`
	TTL                         time.Duration `yaml:"ttl" env:"TTL"`
	SimilarityThreshold         float64       `yaml:"similarity_threshold" env:"SIMILARITY_THRESHOLD"`
	MinEntriesForEmbedding      int           `yaml:"min_entries_for_embedding" env:"MIN_ENTRIES_FOR_EMBEDDING"`
	AutoDisableAfterLookups     int           `yaml:"auto_disable_after_lookups" env:"AUTO_DISABLE_AFTER_LOOKUPS"`
	AutoDisableHitRateThreshold float64       `yaml:"auto_disable_hit_rate_threshold" env:"AUTO_DISABLE_HIT_RATE_THRESHOLD"`
}

// TenantConfig holds default quotas for newly issued tenants. No package
// outside config reads it: tenant issuance does not apply these values.
type TenantConfig struct {
	// 月度预算上限（美元），0 表示不限
	DefaultBudgetLimitMonth float64 `yaml:"default_budget_limit_month" env:"DEFAULT_BUDGET_LIMIT_MONTH"`
	// 默认每分钟请求数限制
	DefaultRateLimitRPM int `yaml:"default_rate_limit_rpm" env:"DEFAULT_RATE_LIMIT_RPM"`
	// 默认每分钟 Token 限制
	DefaultRateLimitTPM int `yaml:"default_rate_limit_tpm" env:"DEFAULT_RATE_LIMIT_TPM"`
	// 默认路由策略（空字符串表示沿用全局默认）
	DefaultStrategy string `yaml:"default_strategy" env:"DEFAULT_STRATEGY"`
}

// StoreConfig 持久化存储配置
type StoreConfig struct {
	// sqlite 数据库文件路径
	Path string `yaml:"path" env:"PATH"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	// 是否启用
	Enabled bool `yaml:"enabled" env:"ENABLED"`
	// OTLP 端点
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	// 服务名称
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	// 采样率
	SampleRate float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// =============================================================================
// 🔧 配置加载器
// =============================================================================

// Loader 配置加载器（Builder 模式）
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader 创建新的配置加载器
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  "GATEWAY",
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath 设置配置文件路径
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix 设置环境变量前缀
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator 添加配置验证器
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load 加载配置
// 优先级: 默认值 → YAML 文件 → 环境变量
func (l *Loader) Load() (*Config, error) {
	// 1. 从默认值开始
	cfg := DefaultConfig()

	// 2. 如果指定了配置文件，从文件加载
	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// 3. 从环境变量覆盖
	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	// 4. 运行验证器
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile 从 YAML 文件加载配置
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			// 文件不存在，使用默认值
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// loadFromEnv 从环境变量加载配置
func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv 递归设置结构体字段
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		// 获取 env tag
		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		// 如果是结构体，递归处理
		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		// 获取环境变量值
		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		// 设置字段值
		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

// setFieldValue 设置字段值
func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		// 特殊处理 time.Duration
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// 支持逗号分隔的字符串切片
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}

// =============================================================================
// 🔍 辅助函数
// =============================================================================

// MustLoad 加载配置，失败时 panic
func MustLoad(path string) *Config {
	cfg, err := NewLoader().WithConfigPath(path).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// LoadFromEnv 仅从环境变量加载配置
func LoadFromEnv() (*Config, error) {
	return NewLoader().Load()
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		errs = append(errs, "invalid HTTP port")
	}
	if c.Router.DefaultStrategy == "" {
		errs = append(errs, "router default_strategy must not be empty")
	}
	if c.Breaker.MinSamples <= 0 {
		errs = append(errs, "breaker min_samples must be positive")
	}
	if c.Cache.MaxSize <= 0 {
		errs = append(errs, "cache max_size must be positive")
	}
	if c.Store.Path == "" {
		errs = append(errs, "store path must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
