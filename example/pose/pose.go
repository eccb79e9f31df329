package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	openpose "github.com/swdee/go-openpose"
	"github.com/swdee/go-openpose/export"
	"github.com/swdee/go-openpose/render"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	imgFile := flag.String("i", "../data/person.jpg", "Image file to run pose estimation on")
	outDir := flag.String("o", "../data/out", "Directory the rendered image and keypoints are written to")
	cfgFile := flag.String("c", "", "YAML config file, options after -- override it")
	outline := flag.Bool("outline", false, "Draw the region outline around each person")
	debug := flag.Bool("debug", false, "Enable development logging")

	flag.Parse()

	cfg := openpose.DefaultConfig()

	if *cfgFile != "" {
		var err error
		cfg, err = openpose.LoadConfig(*cfgFile)

		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
	}

	// remaining arguments are engine options, eg: --model_pose BODY_25
	opts, err := openpose.ParseOptions(flag.Args())

	if err != nil {
		log.Fatalf("Error parsing options: %v", err)
	}

	cfg, err = cfg.Apply(opts)

	if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}

	logger, err := openpose.NewLogger(*debug)

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
		logger.Fatal("pose estimation failed", zap.Error(err))
	}

	logger.Info("processed image",
		zap.String("file", *imgFile),
		zap.Int("people", datum.NumPeople()),
		zap.Duration("elapsed", datum.Elapsed),
	)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Fatal("error creating output directory", zap.Error(err))
	}

	jsonFile, err := export.WriteKeypointsFile(*outDir, datum)

	if err != nil {
		logger.Fatal("error writing keypoints", zap.Error(err))
	}

	img := frame.Clone()
	defer img.Close()

	style := render.DefaultStyle()
	style.Threshold = cfg.RenderThreshold
	style.Outline = *outline

	render.Skeletons(&img, datum.Model, datum.Skeletons, style)

	outFile := filepath.Join(*outDir, frame.BaseName()+"_rendered.jpg")

	if !gocv.IMWrite(outFile, img) {
		logger.Fatal("error writing rendered image", zap.String("file", outFile))
	}

	logger.Info("saved results", zap.String("image", outFile), zap.String("keypoints", jsonFile))
}
