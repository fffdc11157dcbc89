// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package classifier extracts a complexity tier and an intent category from
a raw prompt string. Both paths are pure functions: given the same prompt
they always return the same result. The heuristic path is a fixed-weight
sum over a 15-value feature vector; an optional Predictor can be wired in
to replace the heuristic tier computation with a learned 5-way
distribution, falling back silently to the heuristic on any error.
*/
package classifier
