package engine

import (
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/sprites/render"
)

type Config struct {
	Title         string
	Width, Height int

	Validation        bool
	ShaderDir         string
	PipelineCachePath string
	ClearColor        [4]float32

	MaxTextures int
	MaxSprites  int
	// ViewHeight is the number of world units visible vertically.
	ViewHeight float32

	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Title:       "sprites",
		Width:       800,
		Height:      600,
		ShaderDir:   "shaders",
		ClearColor:  [4]float32{0, 0, 0, 1},
		MaxTextures: 100,
		MaxSprites:  1024,
		ViewHeight:  10,
		Logger:      slog.Default(),
	}
}

func (c Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.Newf("window size %dx%d must be positive", c.Width, c.Height)
	}
	if c.ViewHeight <= 0 {
		return errors.Newf("view height %g must be positive", c.ViewHeight)
	}
	if c.MaxTextures <= 0 || c.MaxSprites <= 0 {
		return errors.Newf("limits must be positive: %d textures, %d sprites", c.MaxTextures, c.MaxSprites)
	}
	return nil
}

func (c Config) rendererOptions() render.Options {
	return render.Options{
		AppName:           c.Title,
		Validation:        c.Validation,
		ShaderDir:         c.ShaderDir,
		PipelineCachePath: c.PipelineCachePath,
		ClearColor:        c.ClearColor,
		MaxTextures:       c.MaxTextures,
		MaxSprites:        c.MaxSprites,
		Logger:            c.Logger,
	}
}
