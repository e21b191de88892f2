// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package imageclass

import (
	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
)

// CheckImages panics if images is not shaped `[batch, height, width, channels]` as configured by cfg.
func CheckImages(cfg Config, images *Node) {
	if images.Rank() != 4 {
		Panicf("images must be shaped [batch, height, width, channels], got %s", images.Shape())
	}
	dims := images.Shape().Dimensions
	if dims[1] != cfg.Height || dims[2] != cfg.Width || dims[3] != cfg.Channels() {
		Panicf("images shaped %s don't match configuration %s: expected [batch, %d, %d, %d]",
			images.Shape(), cfg, cfg.Height, cfg.Width, cfg.Channels())
	}
	if images.DType() != cfg.DType {
		Panicf("images dtype %s doesn't match configured dtype %s", images.DType(), cfg.DType)
	}
}

// Rescale prepares the images for the model: RGB images are expected with values from 0 to 255 and are
// rescaled to 0 to 1. Grayscale images are used as given.
func Rescale(cfg Config, images *Node) *Node {
	if cfg.Grayscale {
		return images
	}
	return MulScalar(images, 1.0/255.0)
}

// ZeroPad2D pads the two spatial axes of x (shaped `[batch, height, width, channels]`) with pad zeros
// on each side.
func ZeroPad2D(x *Node, pad int) *Node {
	if pad == 0 {
		return x
	}
	spatial := PadAxis{Start: pad, End: pad}
	return Pad(x, ScalarZero(x.Graph(), x.DType()), PadAxis{}, spatial, spatial, PadAxis{})
}

// GlobalPool collapses the spatial axes of x (shaped `[batch, height, width, channels]`), returning
// a `[batch, channels]` tensor.
func GlobalPool(x *Node, pooling Pooling) *Node {
	switch pooling {
	case PoolingAvg:
		return ReduceMean(x, 1, 2)
	case PoolingMax:
		return ReduceMax(x, 1, 2)
	default:
		Panicf("invalid pooling %q, valid values are %q or %q", pooling, PoolingAvg, PoolingMax)
	}
	return nil
}

// Flatten reshapes x to `[batch, -1]`.
func Flatten(x *Node) *Node {
	return Reshape(x, x.Shape().Dimensions[0], -1)
}

// ApplyActivation applies the named activation: "softmax" (over the last axis) or any name accepted by
// activations.FromName. The empty string is a no-op.
func ApplyActivation(name string, x *Node) *Node {
	if name == ActivationSoftmax {
		return Softmax(x, -1)
	}
	return activations.Apply(activations.FromName(name), x)
}

// Head is the classification head: a dense layer in scope "DenseFinal" projecting x (shaped `[batch, features]`)
// to `[batch, cfg.NumClasses]`, followed by cfg.OutputActivation.
func Head(ctx *context.Context, cfg Config, x *Node) *Node {
	x = layers.Dense(ctx.In("DenseFinal"), x, true, cfg.NumClasses)
	return ApplyActivation(cfg.OutputActivation, x)
}
