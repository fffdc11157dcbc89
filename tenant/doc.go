// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package tenant issues and authenticates gateway API keys. Keys are
generated as random 32-byte hex strings prefixed with "fra_"; only their
hash is ever persisted, and the plaintext is returned exactly once, at
issuance. Authenticated tenants are cached in-process keyed by hash and
invalidated on usage update.
*/
package tenant
