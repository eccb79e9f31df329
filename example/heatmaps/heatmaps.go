package main

import (
	"context"
	"flag"
	"log"
	"os"

	openpose "github.com/swdee/go-openpose"
	"github.com/swdee/go-openpose/export"
	"go.uber.org/zap"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	imgFile := flag.String("i", "../data/person.jpg", "Image file to compute heatmaps for")
	outDir := flag.String("o", "../data/heatmaps", "Directory the heatmap images are written to")
	prefix := flag.String("p", "heatmap", "File name prefix of the heatmap images")

	flag.Parse()

	// network only, exporting every part, the background and the PAFs
	opts := map[string]any{
		"body":               openpose.BodyHeatmapsOnly,
		"heatmaps_add_parts": true,
		"heatmaps_add_bkg":   true,
		"heatmaps_add_PAFs":  true,
		"heatmaps_scale":     openpose.HeatmapScaleUint8,
	}

	extra, err := openpose.ParseOptions(flag.Args())

	if err != nil {
		log.Fatalf("Error parsing options: %v", err)
	}

	for k, v := range extra {
		opts[k] = v
	}

	cfg, err := openpose.ConfigFromMap(opts)

	if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	logger, err := openpose.NewLogger(false)

	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}

	defer logger.Sync()

	w := openpose.NewWrapper(openpose.WithLogger(logger))
	defer w.Close()

	if err := w.Configure(cfg); err != nil {
		logger.Fatal("configure failed", zap.Error(err))
	}

	ctx := context.Background()

	if err := w.Start(ctx); err != nil {
		logger.Fatal("start failed", zap.Error(err))
	}

	frame, err := openpose.DecodeFile(*imgFile)

	if err != nil {
		logger.Fatal("error reading image", zap.Error(err))
	}

	defer frame.Close()

	datum, err := w.Process(ctx, frame)

	if err != nil {
		logger.Fatal("network failed", zap.Error(err))
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Fatal("error creating output directory", zap.Error(err))
	}

	files, err := export.WriteHeatmaps(*outDir, *prefix, datum)

	if err != nil {
		logger.Fatal("error writing heatmaps", zap.Error(err))
	}

	logger.Info("saved heatmaps",
		zap.Int("channels", datum.PoseHeatMaps.Channels),
		zap.Int("width", datum.PoseHeatMaps.Width),
		zap.Int("height", datum.PoseHeatMaps.Height),
		zap.Int("files", len(files)),
	)
}
