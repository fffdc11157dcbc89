// =============================================================================
// 📦 Gateway 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		Providers: ProvidersConfig{},
		Router:    DefaultRouterConfig(),
		Breaker:   DefaultBreakerConfig(),
		Cache:     DefaultCacheConfig(),
		Tenant:    DefaultTenantConfig(),
		Store:     DefaultStoreConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    5 * time.Minute, // streaming completions can run long
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPM:    600,
		MaxConcurrency:  100,
		AuthHeader:      "X-API-Key",
	}
}

// DefaultRouterConfig 返回默认路由配置
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CatalogPath:     "catalog.yaml",
		DefaultStrategy: "cost-first",
	}
}

// DefaultBreakerConfig 返回默认熔断器配置，与 breaker.DefaultConfig 对齐
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Window:               60 * time.Second,
		MinSamples:           5,
		ErrorRateThreshold:   0.5,
		TimeoutRateThreshold: 0.3,
		P95Threshold:         30 * time.Second,
		BaseCooldown:         10 * time.Second,
		MaxCooldown:          120 * time.Second,
	}
}

// DefaultCacheConfig 返回默认缓存配置，与 cache.DefaultConfig 对齐
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxSize:                     10_000,
		TTL:                         time.Hour,
		SimilarityThreshold:         0.92,
		MinEntriesForEmbedding:      100,
		AutoDisableAfterLookups:     50,
		AutoDisableHitRateThreshold: 0.15,
	}
}

// DefaultTenantConfig 返回新建租户的默认配额
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		DefaultBudgetLimitMonth: 0, // unlimited
		DefaultRateLimitRPM:     120,
		DefaultRateLimitTPM:     100_000,
		DefaultStrategy:         "",
	}
}

// DefaultStoreConfig 返回默认存储配置
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Path: "gateway.db",
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "agentflow-gateway",
		SampleRate:   0.1,
	}
}
