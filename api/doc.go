// Package api defines the gateway's external HTTP contract: request and
// response bodies for every endpoint below, plus the error envelope
// rendered for every non-2xx response.
//
// # Endpoints
//
//	GET  /health                   readiness, queue depth, breaker snapshot
//	POST /v1/chat/completions      main inference (streaming via body.stream)
//	GET  /v1/models                catalog in OpenAI shape
//	GET  /api/stats                dashboard aggregates
//	GET  /api/config               strategies + model catalog
//	GET  /api/benchmarks           benchmark snapshot
//	POST /api/tenants              create tenant
//	GET  /api/tenants              list tenants (no keys)
//	POST /api/feedback             submit reward signal
//
// # Authentication
//
// Authorization: Bearer <key> or x-api-key: <key>. Tenant-issued keys are
// prefixed fra_; upstream vendor keys (sk-, ant-) pass through without a
// tenant. See api/middleware for enforcement.
//
// # Error envelope
//
// Every non-2xx response is {"error": {"message", "type", "code", "requestId"}},
// rendered by api/handlers.WriteError from a *types.Error keyed off its
// HTTPStatus.
package api
