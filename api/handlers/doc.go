// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 AgentFlow HTTP API 的请求处理器实现。

# 概述

handlers 包实现了网关所有 HTTP 端点的请求处理逻辑，
包括聊天补全、模型目录、仪表盘统计、租户、反馈、健康检查以及统一的错误信封。
所有 Handler 均遵循标准 net/http 接口。

# 核心类型

  - ChatHandler       — 聊天补全处理器，支持同步与 SSE 流式响应
  - ModelsHandler     — OpenAI 形状的模型目录（/v1/models）
  - DashboardHandler  — /api/stats、/api/config、/api/benchmarks
  - TenantsHandler    — 租户创建与列表（/api/tenants）
  - FeedbackHandler   — 奖励信号提交（/api/feedback）
  - HealthHandler     — 服务健康检查（/health, /healthz, /ready）
  - ResponseWriter    — 包装 http.ResponseWriter 以捕获状态码
  - HealthCheck       — 可插拔健康检查接口（如 DatabaseHealthCheck）

# 主要能力

  - 统一响应格式：WriteJSON / WriteError / WriteErrorMessage 辅助函数
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）、ValidateContentType
  - ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - SSE 流式输出：ChatHandler.HandleCompletion 在 stream=true 时输出 text/event-stream
  - 可扩展健康检查：RegisterCheck 注册自定义 HealthCheck 实现
*/
package handlers
