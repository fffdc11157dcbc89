// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package bandit implements the gateway's Thompson-sampling routing
posteriors: one Beta(α,β) per (tenant|global) × model, sampled with a
normal approximation and an exploration floor so a cold or unlucky model
never gets zeroed out of consideration. Global posteriors are rebuilt
from stored feedback on a timer; tenant posteriors only move through
live Update calls.
*/
package bandit
