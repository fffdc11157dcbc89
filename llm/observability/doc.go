// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 observability 提供 LLM 调用的成本核算能力。

# 概述

本包按模型价格与请求实际返回的 Token 数计算每次调用的美元成本，
并支持会话级的成本汇总。本包不包含指标采集或分布式追踪。

# 核心类型

  - CostCalculator：成本计算器。创建时价格表为空，由 SeedFromCatalog
    从路由模型目录填充，可通过 SetPrice/UpdatePrices 更新；
    未定价模型的成本计为 0。
  - ModelPrice：单个模型的输入/输出价格。
  - CostTracker：会话级成本追踪器，汇总 Token 与费用统计。
  - CostSummary：CostTracker 的汇总结果。

# 主要能力

  - 成本核算：价格表从路由模型目录按需填充（每百万 token 计价），
    支持批量更新与会话级汇总。
*/
package observability
