package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/vkngwrapper/sprites/engine"
)

func init() {
	// SDL and the Vulkan queue calls must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	cfg := engine.DefaultConfig()
	opts := gameOptions{}

	flag.IntVar(&cfg.Width, "width", cfg.Width, "initial window width")
	flag.IntVar(&cfg.Height, "height", cfg.Height, "initial window height")
	flag.BoolVar(&cfg.Validation, "validation", false, "enable the Khronos validation layer")
	flag.StringVar(&cfg.ShaderDir, "shaders", cfg.ShaderDir, "directory holding sprite.vert.spv and sprite.frag.spv")
	flag.StringVar(&cfg.PipelineCachePath, "pipeline-cache", "pipeline_cache.bin", "pipeline cache file, empty to disable")
	flag.StringVar(&opts.texture, "texture", "", "sprite atlas image; a generated atlas is used when empty")
	flag.IntVar(&opts.columns, "cols", atlasColumns, "atlas columns")
	flag.IntVar(&opts.rows, "rows", atlasRows, "atlas rows")
	flag.IntVar(&opts.enemies, "enemies", 100, "number of enemies")
	flag.Int64Var(&opts.seed, "seed", 0, "random seed, 0 seeds from the clock")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	err := run(cfg, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}

func run(cfg engine.Config, opts gameOptions) (err error) {
	e, err := engine.New(cfg, newGame(opts))
	if err != nil {
		return err
	}

	err = e.Initialize()
	if err != nil {
		return err
	}
	defer func() {
		shutdownErr := e.Shutdown()
		if err == nil {
			err = shutdownErr
		}
	}()

	for {
		running, err := e.Update()
		if err != nil {
			return err
		}
		if !running {
			return nil
		}
	}
}
