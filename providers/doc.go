// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package providers defines the uniform contract every upstream model
provider adapter implements, plus the shared HTTP retry/backoff core and
error-mapping helpers those adapters build on. Per-vendor adapters live
in subpackages (openai, anthropic, gemini, groq, cohere).
*/
package providers
