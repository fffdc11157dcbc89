// Package orchestrator implements the gateway's request pipeline: the hot
// path that takes an incoming chat completion, classifies it, routes it to
// a model, dispatches it (with fallback across providers), and records the
// side effects — cache, benchmark, bandit feedback, and the async log
// queue — around the client response.
package orchestrator
