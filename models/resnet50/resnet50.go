// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package resnet50 implements the ResNet50 (version 1) architecture for image classification, adapted to
// configurable input sizes, grayscale or RGB images and any number of classes.
//
// It follows "Deep Residual Learning for Image Recognition", K. He, X. Zhang, S. Ren and J. Sun,
// https://arxiv.org/abs/1512.03385, with the layout of the Keras implementation: a 7x7 strided
// convolution stem, four groups of bottleneck residual blocks (3, 4, 6 and 3 blocks) and a global pooling
// before the classification head.
package resnet50

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/ml/layers/batchnorm"

	"github.com/gomlx/convnets/models/imageclass"
)

// Name of the model, also used as the scope where its variables are created.
const Name = "ResNet50_V1"

// BatchNormEpsilon used by every batch normalization of the model.
const BatchNormEpsilon = 1.001e-5

// Group describes a group of residual blocks.
type Group struct {
	// Name of the scope of the group.
	Name string

	// Filters are the number of output channels of the 3 convolutions of each block.
	Filters [3]int

	// Blocks is the number of residual blocks in the group.
	Blocks int

	// Stride of the first block of the group.
	Stride int
}

// Groups of residual blocks of ResNet50.
var Groups = []Group{
	{Name: "Conv2", Filters: [3]int{64, 64, 256}, Blocks: 3, Stride: 1},
	{Name: "Conv3", Filters: [3]int{128, 128, 512}, Blocks: 4, Stride: 2},
	{Name: "Conv4", Filters: [3]int{256, 256, 1024}, Blocks: 6, Stride: 2},
	{Name: "Conv5", Filters: [3]int{512, 512, 2048}, Blocks: 3, Stride: 2},
}

// ModelGraph builds the ResNet50 model for a batch of images shaped `[batch, cfg.Height, cfg.Width, cfg.Channels()]`.
//
// It returns the output shaped `[batch, cfg.NumClasses]`, with cfg.OutputActivation applied.
// Variables are created under the scope "ResNet50_V1" of ctx.
//
// The hidden activations are always relu, cfg.HiddenActivation is ignored.
func ModelGraph(ctx *context.Context, cfg imageclass.Config, images *Node) *Node {
	imageclass.CheckImages(cfg, images)
	ctx = ctx.In(Name)
	batchSize := images.Shape().Dimensions[0]

	x := imageclass.Rescale(cfg, images)

	// Stem: Conv1_Pad, Conv1, Conv1_BN, Conv1_relu, MaxPool2D_1_Pad, MaxPool2D_1.
	x = imageclass.ZeroPad2D(x, 3)
	x = layers.Convolution(ctx.In("Conv1"), x).
		Channels(64).KernelSize(7).Strides(2).UseBias(false).NoPadding().Done()
	x = batchNorm(ctx.In("Conv1_BN"), x)
	x = activations.Relu(x)
	x = imageclass.ZeroPad2D(x, 1)
	x = MaxPool(x).Window(3).Strides(2).NoPadding().Done()

	for _, group := range Groups {
		x = GroupResidualsV1(ctx.In(group.Name), x, group.Filters, group.Blocks, group.Stride)
	}
	height, width := OutputSpatialDims(cfg)
	x.AssertDims(batchSize, height, width, Groups[len(Groups)-1].Filters[2])

	x = imageclass.GlobalPool(x, cfg.Pooling)
	x = imageclass.Head(ctx, cfg, x)
	x.AssertDims(batchSize, cfg.NumClasses)
	return x
}

// OutputSpatialDims returns the height and width of the output of the last residual group.
func OutputSpatialDims(cfg imageclass.Config) (height, width int) {
	return outputDim(cfg.Height), outputDim(cfg.Width)
}

func outputDim(dim int) int {
	dim = convOutputDim(dim+2*3, 7, 2) // Conv1
	dim = convOutputDim(dim+2*1, 3, 2) // MaxPool2D_1
	for _, group := range Groups {
		dim = convOutputDim(dim, 1, group.Stride)
	}
	return dim
}

// convOutputDim of a convolution (or pooling) without padding.
func convOutputDim(dim, kernel, stride int) int {
	return (dim-kernel)/stride + 1
}

// batchNorm over the channels axis (the last one), with the epsilon used by ResNet50.
func batchNorm(ctx *context.Context, x *Node) *Node {
	return batchnorm.New(ctx, x, -1).Epsilon(BatchNormEpsilon).Done()
}

// ModelFn implements train.ModelFn: the configuration is read from the context hyperparameters
// (see imageclass.FromContext) and inputs[0] are the images.
func ModelFn(ctx *context.Context, spec any, inputs []*Node) []*Node {
	cfg := imageclass.FromContext(ctx)
	cfg.DType = inputs[0].DType()
	return []*Node{ModelGraph(ctx, cfg, inputs[0])}
}
