// Package export writes engine results in the formats downstream tools
// read: OpenPose style keypoint JSON and grayscale heatmap images.
package export
