// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package config 提供网关的配置加载功能。

# 概述

config 包负责网关配置的加载与校验，按
"默认值 -> YAML 文件 -> 环境变量" 的优先级合并。网关没有
运行时热重载需求：配置在启动时加载一次，变更需要重启进程。

# 核心结构

  - Config: 顶层配置聚合，涵盖 Server、Providers（各供应商
    凭据）、Router（模型目录与默认策略）、Breaker、Cache、
    Tenant（新租户默认配额）、Store、Log、Telemetry
  - Loader: 配置加载器，支持 Builder 模式链式设置
    文件路径、环境变量前缀与自定义验证器

# 使用示例

	cfg, err := config.NewLoader().
		WithConfigPath("config.yaml").
		WithEnvPrefix("GATEWAY").
		Load()
*/
package config
