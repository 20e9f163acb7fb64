package render

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/core/v3/core1_0"
)

// UniformBlock is written into the uniform buffer of the swapchain image
// being recorded, once per frame.
type UniformBlock struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
}

var uniformBlockSize = int(unsafe.Sizeof(UniformBlock{}))

// vulkanClip converts GL-style clip space (y up, z in [-1, 1]) to Vulkan's
// (y down, z in [0, 1]).
var vulkanClip = mgl32.Mat4{
	1, 0, 0, 0,
	0, -1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Camera describes the orthographic view onto the sprite plane.
type Camera struct {
	Position mgl32.Vec2
	// Zoom scales the view; values <= 0 are treated as 1.
	Zoom float32
	// ViewHeight is the number of world units visible vertically at zoom 1.
	ViewHeight float32
}

func (c Camera) uniformBlock(extent core1_0.Extent2D) UniformBlock {
	zoom := c.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	viewHeight := c.ViewHeight
	if viewHeight <= 0 {
		viewHeight = 10
	}

	aspect := float32(1)
	if extent.Height > 0 {
		aspect = float32(extent.Width) / float32(extent.Height)
	}

	halfHeight := viewHeight / (2 * zoom)
	halfWidth := halfHeight * aspect

	return UniformBlock{
		Model: mgl32.Ident4(),
		View:  mgl32.Translate3D(-c.Position.X(), -c.Position.Y(), 0),
		Proj:  vulkanClip.Mul4(mgl32.Ortho(-halfWidth, halfWidth, -halfHeight, halfHeight, -1, 1)),
	}
}

// SpriteDraw is one sprite as seen by the renderer for a single frame.
type SpriteDraw struct {
	Position mgl32.Vec2
	// Rotation in radians, counter-clockwise.
	Rotation float32
	Scale    mgl32.Vec2
	// Layer in [-1, 1]; higher layers draw on top.
	Layer float32

	Texture   TextureHandle
	Subsprite int
}

func (d SpriteDraw) ModelMatrix() mgl32.Mat4 {
	translate := mgl32.Translate3D(d.Position.X(), d.Position.Y(), d.Layer)
	rotate := mgl32.HomogRotate3DZ(d.Rotation)
	scale := mgl32.Scale3D(d.Scale.X(), d.Scale.Y(), 1)
	return translate.Mul4(rotate).Mul4(scale)
}

// spriteConstants matches the push constant block of sprite.vert. The mat3
// is laid out as three vec4-aligned columns.
type spriteConstants struct {
	Model mgl32.Mat4
	UV    [3]mgl32.Vec4
}

var spriteConstantsSize = int(unsafe.Sizeof(spriteConstants{}))

func newSpriteConstants(model mgl32.Mat4, uv mgl32.Mat3) spriteConstants {
	return spriteConstants{
		Model: model,
		UV: [3]mgl32.Vec4{
			uv.Col(0).Vec4(0),
			uv.Col(1).Vec4(0),
			uv.Col(2).Vec4(0),
		},
	}
}
