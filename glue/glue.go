// Package glue synthesizes the auxiliary shaders that bridge
// independently compiled pipeline stages into one executable pipeline.
//
// Each glue shader exposes a deterministic fingerprint of everything
// that influences its generated code. The external build orchestrator
// uses the fingerprint as a cache key so identical glue code is
// compiled at most once; distinct fingerprints may be compiled on
// parallel workers. Fingerprint computation is pure and memoized,
// which is what makes that at-most-once contract safe to implement
// outside this package.
package glue

import (
	"github.com/gogpu/lgc/ir"
	"github.com/gogpu/lgc/pipeline"
)

// Shader is a generator for one glue shader.
type Shader interface {
	// Fingerprint returns a stable byte sequence summarizing all
	// generator inputs. Two generators with identical configuration
	// return identical bytes; any configuration difference that could
	// change the emitted code changes the bytes.
	Fingerprint() []byte

	// MainShaderName returns the symbol name of the main shader this
	// glue shader is the prolog or epilog for, used by the external
	// linker to locate the companion function.
	MainShaderName() string

	// Generate builds the glue shader into a fresh standalone module.
	// It is deterministic for identical inputs and has no side effects
	// outside the returned module.
	Generate() (*ir.Module, error)
}

// VertexFetcher lowers one vertex-attribute fetch to target load
// instructions. It is an external collaborator: implementations emit
// the load sequence at the builder's insertion point and return a
// value of the requested type, leaving placeholder calls (prefixed
// pipeline.NameSpecialUserData or pipeline.NameShaderInput) for any
// special inputs they need; the caller patches those afterwards.
type VertexFetcher interface {
	FetchVertex(b *ir.Builder, ty ir.Type, desc *pipeline.VertexInputDescription, location, component uint32) (ir.Value, error)
}
