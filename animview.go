package main

import (
	"flag"
	"log"
	"time"

	"github.com/mirelat/animview/config"
	"github.com/mirelat/animview/engine"
	"github.com/mirelat/animview/render"
	"github.com/mirelat/animview/rig"
	"github.com/mirelat/animview/web"
)

func main() {
	var addr, cfgPath, webDir string
	var fps int
	var dumpModels bool
	flag.StringVar(&addr, "i", "", "Address of server (overrides config)")
	flag.StringVar(&cfgPath, "cfg", "", "Path to yaml config file")
	flag.StringVar(&webDir, "webdir", "", "Path to web viewer assets (overrides config)")
	flag.IntVar(&fps, "fps", 0, "Simulation frame rate (overrides config)")
	flag.BoolVar(&dumpModels, "dumpmodels", false, "Dump parsed model structure after load")
	flag.Parse()

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		if cfg, err = config.FromFile(cfgPath); err != nil {
			log.Fatal(err)
		}
	}
	if addr != "" {
		cfg.Listen = addr
	}
	if webDir != "" {
		cfg.WebDir = webDir
	}
	if fps > 0 {
		cfg.FrameRate = fps
	}
	if dumpModels {
		cfg.DumpModels = true
	}

	for _, path := range flag.Args() {
		cfg.Models = append(cfg.Models, config.ModelEntry{Path: path})
	}

	eng := engine.New(render.NewMemoryRenderer())

	for _, entry := range cfg.Models {
		h := eng.Load(entry.Path)
		if h == rig.HandleInvalid {
			continue
		}
		if entry.Animation != "" {
			if entry.BlendSeconds > 0 {
				eng.BlendAnimation(h, entry.Animation, entry.BlendSeconds, entry.Loop)
			} else {
				eng.SetAnimation(h, entry.Animation, entry.Loop)
			}
		}
		if cfg.DumpModels {
			if dump, ok := eng.DumpModel(h); ok {
				log.Printf("[animview] model %d:\n%s", h, dump)
			}
		}
	}

	go frameLoop(eng, cfg.FrameRate)

	if err := web.StartServer(cfg.Listen, eng, cfg.WebDir); err != nil {
		log.Fatal(err)
	}
}

// frameLoop is the single writer of simulation state: it feeds measured
// frame deltas to the engine at the configured rate.
func frameLoop(eng *engine.Engine, frameRate int) {
	interval := time.Second / time.Duration(frameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for now := range ticker.C {
		dt := float32(now.Sub(last).Seconds())
		last = now
		eng.Update(dt)
	}
}
