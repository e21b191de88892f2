// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package vgg16 implements the VGG16 architecture for image classification, adapted to configurable
// input sizes, grayscale or RGB images and any number of classes.
//
// It follows the model described in "Very Deep Convolutional Networks for Large-Scale Image Recognition",
// K. Simonyan and A. Zisserman, https://arxiv.org/abs/1409.1556: five blocks of 3x3 convolutions,
// each followed by a 2x2 max-pooling, and three dense layers.
//
// Example:
//
//	cfg := imageclass.DefaultConfig() // 48x48 grayscale images, 7 classes.
//	probs := vgg16.ModelGraph(ctx, cfg, images)
package vgg16

import (
	"fmt"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"

	"github.com/gomlx/convnets/models/imageclass"
)

// Name of the model, also used as the scope where its variables are created.
const Name = "VGG16"

// NumDenseUnits is the size of the two hidden dense layers.
const NumDenseUnits = 4096

// blocks lists the number of output channels of each convolution, for each of the 5 blocks.
var blocks = [][]int{
	{64, 64},
	{128, 128},
	{256, 256, 256},
	{512, 512, 512},
	{512, 512, 512},
}

// ModelGraph builds the VGG16 model for a batch of images shaped `[batch, cfg.Height, cfg.Width, cfg.Channels()]`.
//
// It returns the output shaped `[batch, cfg.NumClasses]`, with cfg.OutputActivation applied.
// Variables are created under the scope "VGG16" of ctx.
func ModelGraph(ctx *context.Context, cfg imageclass.Config, images *Node) *Node {
	imageclass.CheckImages(cfg, images)
	ctx = ctx.In(Name)
	batchSize := images.Shape().Dimensions[0]

	x := imageclass.Rescale(cfg, images)
	for blockIdx, channels := range blocks {
		for convIdx, numChannels := range channels {
			convCtx := ctx.In(fmt.Sprintf("Conv%d.%d", blockIdx+1, convIdx+1))
			x = layers.Convolution(convCtx, x).Channels(numChannels).KernelSize(3).PadSame().Done()
			x = imageclass.ApplyActivation(cfg.HiddenActivation, x)
		}
		x = MaxPool(x).Window(2).Strides(2).PadSame().Done()
	}
	height, width := OutputSpatialDims(cfg)
	x.AssertDims(batchSize, height, width, blocks[len(blocks)-1][0])

	x = imageclass.Flatten(x)
	x = layers.Dense(ctx.In("Dense1"), x, true, NumDenseUnits)
	x = imageclass.ApplyActivation(cfg.HiddenActivation, x)
	x = layers.Dense(ctx.In("Dense2"), x, true, NumDenseUnits)
	x = imageclass.ApplyActivation(cfg.HiddenActivation, x)

	x = imageclass.Head(ctx, cfg, x)
	x.AssertDims(batchSize, cfg.NumClasses)
	return x
}

// OutputSpatialDims returns the height and width of the last convolution block output: each of the 5
// max-pooling halves the spatial dimensions, rounding up.
func OutputSpatialDims(cfg imageclass.Config) (height, width int) {
	height, width = cfg.Height, cfg.Width
	for range blocks {
		height = (height + 1) / 2
		width = (width + 1) / 2
	}
	return
}

// ModelFn implements train.ModelFn: the configuration is read from the context hyperparameters
// (see imageclass.FromContext) and inputs[0] are the images.
func ModelFn(ctx *context.Context, spec any, inputs []*Node) []*Node {
	cfg := imageclass.FromContext(ctx)
	cfg.DType = inputs[0].DType()
	return []*Node{ModelGraph(ctx, cfg, inputs[0])}
}
