// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package router selects a model for a classified request. It scores the
model catalog on six weighted factors (cost, quality, latency, energy,
reliability, RL) under one of four strategy profiles, after filtering
candidates by tenant allowlist, circuit-breaker state, and a
tier-appropriate quality floor, and blends live benchmark observations
into the static catalog baseline.
*/
package router
