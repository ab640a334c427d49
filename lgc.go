// Package lgc links independently compiled GPU pipeline stages.
//
// lgc generates the glue code that turns a set of separately compiled
// shader stages into one executable pipeline:
//   - fetch shaders: prologs that load vertex attributes and hand them
//     to a fetchless vertex shader (glue package)
//   - copy shaders: hardware vertex shaders that read geometry-shader
//     output back from the GS-VS ring and re-export it (copyshader
//     package)
//
// Generators are constructed against a pipeline.State describing the
// target and the pipeline's interfaces, and build their output into a
// fresh ir.Module.
//
// Example usage (fetch shader):
//
//	state := pipeline.NewState(pipeline.TargetInfo{
//	    GfxIP: pipeline.GfxIPVersion{Major: 10, Minor: 3},
//	})
//	state.SetVertexInputDescriptions(descs)
//	shader := glue.NewFetchShader(state, fetcher, fetches, regInfo)
//	key := shader.Fingerprint() // cache key; look up before generating
//	module, err := shader.Generate()
//
// For copy-shader generation, run the pass over the pipeline module:
//
//	changed, err := lgc.GenerateCopyShader(module, state)
package lgc

import (
	"github.com/gogpu/lgc/copyshader"
	"github.com/gogpu/lgc/glue"
	"github.com/gogpu/lgc/ir"
	"github.com/gogpu/lgc/pipeline"
)

// GenerateFetchShader builds the vertex-fetch glue shader for a
// fetchless vertex shader into a fresh module.
//
// This is the simplest entry point. To consult a shader cache first,
// construct the generator with glue.NewFetchShader and use its
// Fingerprint before calling Generate.
func GenerateFetchShader(state *pipeline.State, fetcher glue.VertexFetcher, fetches []glue.VertexFetchInfo, regInfo glue.VsEntryRegInfo) (*ir.Module, error) {
	return glue.NewFetchShader(state, fetcher, fetches, regInfo).Generate()
}

// GenerateCopyShader runs copy-shader generation over a pipeline
// module. It reports whether the module changed: false means the
// module has no geometry shader and needs no copy shader.
func GenerateCopyShader(m *ir.Module, state *pipeline.State) (bool, error) {
	return copyshader.New().RunOnModule(m, state)
}
