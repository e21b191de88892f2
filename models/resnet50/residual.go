// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package resnet50

import (
	"fmt"

	. "github.com/gomlx/exceptions"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
)

// ResidualBlockV1 is the bottleneck residual block of ResNet V1.
//
// The residual branch is a 1x1 convolution with the given stride, a 3x3 convolution and a 1x1 convolution
// with filters[0], filters[1] and filters[2] output channels respectively, each followed by a batch
// normalization. A relu follows the first two.
//
// If convShortcut is true, the shortcut is a strided 1x1 convolution with filters[2] output channels (plus
// batch normalization), otherwise it's the identity, and x must already have filters[2] channels and
// stride must be 1.
//
// Variables are created in the scopes "0_Conv", "1_Conv", "1_BN", ..., "3_Conv", "3_BN" under ctx,
// following Keras naming.
func ResidualBlockV1(ctx *context.Context, x *Node, filters [3]int, stride int, convShortcut bool) *Node {
	var shortcut *Node
	if convShortcut {
		shortcut = conv1x1(ctx.In("0_Conv"), x, filters[2], stride)
		shortcut = batchNorm(ctx.In("0_BN"), shortcut)
	} else {
		if stride != 1 {
			Panicf("ResidualBlockV1 with an identity shortcut requires stride 1, got %d", stride)
		}
		if x.Shape().Dimensions[x.Rank()-1] != filters[2] {
			Panicf("ResidualBlockV1 with an identity shortcut requires x (%s) to have %d channels",
				x.Shape(), filters[2])
		}
		shortcut = x
	}

	residual := conv1x1(ctx.In("1_Conv"), x, filters[0], stride)
	residual = batchNorm(ctx.In("1_BN"), residual)
	residual = activations.Relu(residual)

	residual = layers.Convolution(ctx.In("2_Conv"), residual).
		Channels(filters[1]).KernelSize(3).UseBias(false).PadSame().Done()
	residual = batchNorm(ctx.In("2_BN"), residual)
	residual = activations.Relu(residual)

	residual = conv1x1(ctx.In("3_Conv"), residual, filters[2], 1)
	residual = batchNorm(ctx.In("3_BN"), residual)

	return activations.Relu(Add(shortcut, residual))
}

// GroupResidualsV1 stacks numBlocks residual blocks: the first one uses a convolution shortcut and
// the given stride (stride1), the following ones use identity shortcuts.
//
// Each block is created under the scope "Block<n>" (starting from 1) of ctx.
func GroupResidualsV1(ctx *context.Context, x *Node, filters [3]int, numBlocks, stride1 int) *Node {
	if numBlocks < 1 {
		Panicf("GroupResidualsV1 requires at least 1 block, got %d", numBlocks)
	}
	x = ResidualBlockV1(ctx.In("Block1"), x, filters, stride1, true)
	for blockIdx := 2; blockIdx <= numBlocks; blockIdx++ {
		x = ResidualBlockV1(ctx.In(fmt.Sprintf("Block%d", blockIdx)), x, filters, 1, false)
	}
	return x
}

// conv1x1 is a 1x1 convolution without bias, as used by ResNet V1.
func conv1x1(ctx *context.Context, x *Node, channels, stride int) *Node {
	return layers.Convolution(ctx, x).
		Channels(channels).KernelSize(1).Strides(stride).UseBias(false).NoPadding().Done()
}
