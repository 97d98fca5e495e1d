package main

import (
	"log/slog"

	"texpack/extract"
	"texpack/pack"
	"texpack/palette"
	"texpack/parallel"

	"github.com/alecthomas/kong"
)

type cli struct {
	Workers int  `help:"Number of packs built at the same time, 0 uses every CPU" default:"0"`
	Verbose bool `help:"Log debug messages" short:"v"`

	Build   pack.CLICmd    `cmd:"" help:"Generate resource packs from a textures folder"`
	Extract extract.CLICmd `cmd:"" help:"Extract the textures of a client jar"`
	Palette palette.CLICmd `cmd:"" help:"Learn a k-means palette from an image and save it as a RIFF PAL file"`
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("texpack"),
		kong.Description("Bulk filter textures into resource packs."),
		kong.UsageOnError(),
		pack.Vars(),
	)

	if c.Verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	pool := parallel.Start(c.Workers, slog.Default())
	err := kctx.Run(pool.Do, pool.Wait)
	if err != nil {
		slog.Error("failed", "command", kctx.Command(), "error", err)
	}
	kctx.FatalIfErrorf(err)
}
