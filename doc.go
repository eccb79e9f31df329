/*
Package openpose estimates multi person 2D body poses in images.

A Wrapper loads a body model (COCO, BODY_25 or MPI) into a pool of backend
instances and turns each Frame into a Datum holding the people found, their
keypoints in source image coordinates, and optionally the raw heatmaps and
part affinity fields.

	w := openpose.NewWrapper(openpose.WithLogger(log))
	defer w.Close()

	if err := w.Configure(cfg); err != nil {
		...
	}

	if err := w.Start(ctx); err != nil {
		...
	}

	datum, err := w.Process(ctx, frame)

Backends are registered by name. The opencv backend runs the Caffe network
through the OpenCV DNN module on the CPU, CUDA, OpenCL or Vulkan. Building
with the rknn tag adds the rknn backend for the Rockchip NPU.

See example code and usage in the example subdirectory.
*/
package openpose
