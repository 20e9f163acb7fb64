// Package shaders holds the GLSL sources of the sprite pipeline. The renderer
// reads the compiled SPIR-V from this directory at startup.
package shaders

//go:generate glslc -o sprite.vert.spv sprite.vert
//go:generate glslc -o sprite.frag.spv sprite.frag
