// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package breaker implements a per-provider three-state circuit breaker
(CLOSED, OPEN, HALF_OPEN) driven by a sliding window of recent call
outcomes rather than a simple consecutive-failure counter. A provider
trips OPEN the moment a window evaluation finds its error rate, timeout
rate, or p95 latency over threshold; it recovers through a single
HALF_OPEN probe admitted once the cooldown elapses, with the cooldown
doubling on every failed probe up to a cap.
*/
package breaker
