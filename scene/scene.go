// Package scene holds the objects a game moves around and flattens them into
// per-frame draw records.
package scene

import (
	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/sprites/handle"
	"github.com/vkngwrapper/sprites/render"
)

const (
	MaxObjects = 500
	MaxSprites = 100
)

type Transform struct {
	Position mgl32.Vec2
	// Rotation in radians.
	Rotation float32
	Size     mgl32.Vec2
}

func NewTransform() Transform {
	return Transform{Size: mgl32.Vec2{1, 1}}
}

func (t *Transform) Move(distance mgl32.Vec2) {
	t.Position = t.Position.Add(distance)
}

func (t *Transform) SetUniformSize(size float32) {
	t.Size = mgl32.Vec2{size, size}
}

// Sprite is the look of an object. Several objects may share one sprite.
type Sprite struct {
	// Texture is the atlas to draw from; the zero handle falls back to the
	// world's default texture.
	Texture   render.TextureHandle
	Subsprite int
	Layer     float32
}

type (
	TransformHandle = handle.Handle[*Transform]
	SpriteHandle    = handle.Handle[*Sprite]
	ObjectHandle    = handle.Handle[*Object]
)

type Object struct {
	Transform TransformHandle
	Sprite    SpriteHandle

	ownsSprite bool
}

type World struct {
	// DefaultTexture is used by sprites without a texture of their own.
	DefaultTexture render.TextureHandle

	transforms *handle.Registry[*Transform]
	sprites    *handle.Registry[*Sprite]
	objects    *handle.Registry[*Object]
}

func NewWorld() *World {
	return &World{
		transforms: handle.NewRegistry[*Transform](MaxObjects),
		sprites:    handle.NewRegistry[*Sprite](MaxSprites),
		objects:    handle.NewRegistry[*Object](MaxObjects),
	}
}

func (w *World) NewSprite() (SpriteHandle, error) {
	h, err := w.sprites.Insert(&Sprite{})
	if err != nil {
		return h, errors.Wrap(err, "new sprite")
	}
	return h, nil
}

// NewObject creates an object with a fresh transform. It draws with sprite,
// or with a new sprite of its own when sprite is the zero handle.
func (w *World) NewObject(sprite SpriteHandle) (ObjectHandle, error) {
	object := &Object{Sprite: sprite}

	if sprite.IsZero() {
		h, err := w.NewSprite()
		if err != nil {
			return ObjectHandle{}, err
		}
		object.Sprite = h
		object.ownsSprite = true
	} else if !w.sprites.Contains(sprite) {
		return ObjectHandle{}, errors.AssertionFailedf("new object with stale sprite %s", sprite)
	}

	transform := NewTransform()
	th, err := w.transforms.Insert(&transform)
	if err != nil {
		w.releaseSprite(object)
		return ObjectHandle{}, errors.Wrap(err, "new object transform")
	}
	object.Transform = th

	h, err := w.objects.Insert(object)
	if err != nil {
		w.transforms.Remove(th)
		w.releaseSprite(object)
		return ObjectHandle{}, errors.Wrap(err, "new object")
	}
	return h, nil
}

func (w *World) releaseSprite(object *Object) {
	if object.ownsSprite {
		w.sprites.Remove(object.Sprite)
	}
}

// RemoveObject removes the object, its transform and, if the object created
// it, its sprite.
func (w *World) RemoveObject(h ObjectHandle) bool {
	object, ok := w.objects.Remove(h)
	if !ok {
		return false
	}
	w.transforms.Remove(object.Transform)
	w.releaseSprite(object)
	return true
}

func (w *World) Object(h ObjectHandle) (*Object, bool) {
	return w.objects.Get(h)
}

// Transform returns the transform of an object.
func (w *World) Transform(h ObjectHandle) (*Transform, bool) {
	object, ok := w.objects.Get(h)
	if !ok {
		return nil, false
	}
	return w.transforms.Get(object.Transform)
}

func (w *World) Sprite(h SpriteHandle) (*Sprite, bool) {
	return w.sprites.Get(h)
}

// ObjectSprite returns the sprite an object draws with.
func (w *World) ObjectSprite(h ObjectHandle) (*Sprite, bool) {
	object, ok := w.objects.Get(h)
	if !ok {
		return nil, false
	}
	return w.sprites.Get(object.Sprite)
}

func (w *World) Len() int {
	return w.objects.Len()
}

// Sprites appends one draw record per object to dst, in object creation slot
// order.
func (w *World) Sprites(dst []render.SpriteDraw) []render.SpriteDraw {
	w.objects.Each(func(_ ObjectHandle, object *Object) bool {
		transform, ok := w.transforms.Get(object.Transform)
		if !ok {
			return true
		}
		sprite, ok := w.sprites.Get(object.Sprite)
		if !ok {
			return true
		}

		texture := sprite.Texture
		if texture.IsZero() {
			texture = w.DefaultTexture
		}

		dst = append(dst, render.SpriteDraw{
			Position:  transform.Position,
			Rotation:  transform.Rotation,
			Scale:     transform.Size,
			Layer:     sprite.Layer,
			Texture:   texture,
			Subsprite: sprite.Subsprite,
		})
		return true
	})
	return dst
}
