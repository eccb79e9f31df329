package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	openpose "github.com/swdee/go-openpose"
	"github.com/swdee/go-openpose/rknn"
	"go.uber.org/zap"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	imgDir := flag.String("d", "../data/images/", "A directory of images to run pose estimation on")
	poolSize := flag.Int("s", 3, "Number of backend instances, with the rknn backend choose multiples of the NPU core count")
	repeat := flag.Int("r", 1, "Repeat processing image directory the specified number of times, use this if you don't have enough images")
	rkPlatform := flag.String("p", "", "Rockchip CPU Model number to pin the fast CPU cores of [rk3562|rk3566|rk3568|rk3576|rk3582|rk3588]")
	cpuCores := flag.String("c", "", "Comma separated CPU core numbers to pin instead of the platform's fast cores, eg: 4,5,6,7")

	flag.Parse()

	if err := pinCPUs(*rkPlatform, *cpuCores); err != nil {
		log.Printf("Failed to set CPU Affinity: %v\n", err)
	}

	info, err := os.Stat(*imgDir)

	if err != nil {
		log.Fatalf("No such image directory %s, error: %v\n", *imgDir, err)
	}

	if !info.IsDir() {
		log.Fatal("Image path is not a directory")
	}

	opts, err := openpose.ParseOptions(flag.Args())

	if err != nil {
		log.Fatalf("Error parsing options: %v", err)
	}

	opts["num_workers"] = *poolSize

	if _, ok := opts["rknn_platform"]; !ok && *rkPlatform != "" {
		opts["rknn_platform"] = *rkPlatform
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

	files, err := os.ReadDir(*imgDir)

	if err != nil {
		logger.Fatal("error reading image directory", zap.Error(err))
	}

	frames := make([]*openpose.Frame, 0, len(files))

	for _, file := range files {
		if file.IsDir() || strings.HasPrefix(file.Name(), ".") {
			continue
		}

		f, err := openpose.DecodeFile(filepath.Join(*imgDir, file.Name()))

		if err != nil {
			logger.Warn("skipping file", zap.String("file", file.Name()), zap.Error(err))
			continue
		}

		defer f.Close()
		frames = append(frames, f)
	}

	start := time.Now()
	people := 0

	for i := 0; i < *repeat; i++ {

		// frames are spread across the pool's backends
		datums, err := w.ProcessAll(ctx, frames)

		if err != nil {
			logger.Fatal("pose estimation failed", zap.Error(err))
		}

		for _, d := range datums {
			people += d.NumPeople()
		}
	}

	elapsed := time.Since(start)
	total := len(frames) * *repeat

	logger.Info("completed",
		zap.Int("frames", total),
		zap.Int("people", people),
		zap.Duration("elapsed", elapsed),
	)

	if total > 0 {
		log.Printf("Processed %d frames in %s, %.2f frames/sec\n", total, elapsed,
			float64(total)/elapsed.Seconds())
	}
}

// pinCPUs sets the process CPU affinity to the listed cores, or to the fast
// cores of the platform when no cores are listed
func pinCPUs(platform, cores string) error {

	switch {
	case cores != "":
		var list []int

		for _, c := range strings.Split(cores, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(c))

			if err != nil {
				return fmt.Errorf("invalid core number %q: %w", c, err)
			}

			list = append(list, n)
		}

		if err := rknn.SetCPUAffinity(rknn.CPUCoreMask(list)); err != nil {
			return err
		}

	case platform != "":
		if err := rknn.SetCPUAffinityByPlatform(platform, rknn.FastCores); err != nil {
			return err
		}

	default:
		return nil
	}

	mask, err := rknn.GetCPUAffinity()

	if err != nil {
		return err
	}

	log.Printf("CPU affinity set to %b\n", mask)
	return nil
}
