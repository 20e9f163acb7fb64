package main

import (
	"image"
	"image/color"

	"github.com/cockroachdb/errors"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/vkngwrapper/sprites/engine"
	"github.com/vkngwrapper/sprites/render"
	"github.com/vkngwrapper/sprites/scene"
)

const (
	atlasColumns = 8
	atlasRows    = 15
	cellSize     = 16

	playerSubsprite = 2
	enemySubsprite  = 112
	moveSpeed       = 2
)

type gameOptions struct {
	texture       string
	columns, rows int
	enemies       int
	seed          int64
}

type game struct {
	opts  gameOptions
	world *scene.World
	rng   *scene.RNG

	player  scene.ObjectHandle
	enemies []scene.ObjectHandle
}

func newGame(opts gameOptions) *game {
	return &game{
		opts:  opts,
		world: scene.NewWorld(),
		rng:   scene.NewRNG(opts.seed),
	}
}

func (g *game) Initialize(e *engine.Engine) error {
	texture, err := g.loadAtlas(e.Renderer())
	if err != nil {
		return err
	}
	g.world.DefaultTexture = texture

	g.player, err = g.world.NewObject(scene.SpriteHandle{})
	if err != nil {
		return err
	}
	sprite, _ := g.world.ObjectSprite(g.player)
	sprite.Subsprite = playerSubsprite
	sprite.Layer = 0.5

	enemySprite, err := g.world.NewSprite()
	if err != nil {
		return err
	}
	sprite, _ = g.world.Sprite(enemySprite)
	sprite.Subsprite = enemySubsprite

	for i := 0; i < g.opts.enemies; i++ {
		enemy, err := g.world.NewObject(enemySprite)
		if err != nil {
			return errors.Wrapf(err, "enemy %d", i)
		}
		transform, _ := g.world.Transform(enemy)
		transform.Position = mgl32.Vec2{g.rng.Float(-4, 4), g.rng.Float(-4, 4)}
		transform.SetUniformSize(0.75)
		g.enemies = append(g.enemies, enemy)
	}

	e.Logger().Info("scene ready", "objects", g.world.Len())
	return nil
}

func (g *game) loadAtlas(r *render.Renderer) (render.TextureHandle, error) {
	if g.opts.texture != "" {
		return r.LoadTexture(g.opts.texture, g.opts.columns, g.opts.rows)
	}
	return r.LoadTextureImage("generated atlas", generateAtlas(atlasColumns, atlasRows), atlasColumns, atlasRows)
}

// generateAtlas draws a grid of distinctly coloured cells with a transparent
// border, one cell per sub-sprite.
func generateAtlas(columns, rows int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, columns*cellSize, rows*cellSize))
	for row := 0; row < rows; row++ {
		for col := 0; col < columns; col++ {
			c := color.NRGBA{
				R: uint8(255 * col / max(columns-1, 1)),
				G: uint8(255 * row / max(rows-1, 1)),
				B: uint8(255 - 255*(row*columns+col)/(rows*columns)),
				A: 255,
			}
			for y := 1; y < cellSize-1; y++ {
				for x := 1; x < cellSize-1; x++ {
					img.SetNRGBA(col*cellSize+x, row*cellSize+y, c)
				}
			}
		}
	}
	return img
}

func (g *game) Update(e *engine.Engine) error {
	transform, ok := g.world.Transform(g.player)
	if !ok {
		return errors.AssertionFailedf("player object is gone")
	}

	move := e.Input().Movement()
	transform.Move(move.Mul(moveSpeed * float32(e.Clock().Delta())))
	return nil
}

func (g *game) Shutdown(e *engine.Engine) error {
	for _, enemy := range g.enemies {
		g.world.RemoveObject(enemy)
	}
	g.world.RemoveObject(g.player)
	g.enemies = nil
	return nil
}

func (g *game) Sprites(dst []render.SpriteDraw) []render.SpriteDraw {
	return g.world.Sprites(dst)
}

func (g *game) Camera() render.Camera {
	return render.Camera{Zoom: 1}
}
