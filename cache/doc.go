// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package cache implements the gateway's gated semantic cache: an exact
prompt-hash lookup backed by an O(1) LRU doubly linked list, with an
optional embedding-similarity fallback scan that auto-disables itself if
it isn't pulling its weight. There is no vector database here — the
embedding side is a bounded in-memory list scanned linearly, by design.
*/
package cache
