// Package errors defines error types for the fsbridge protocol layer.
//
// This package provides structured error types covering the failure modes of
// the sandbox, codec, registry, server loop, and client connector. All error
// types support unwrapping and can be checked with errors.Is, errors.As, and
// errors.AsType.
package errors
