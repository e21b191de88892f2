// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package imageclass

import (
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"
)

func TestZeroPad2D(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	gotT := context.MustExecOnce(backend, ctx, func(ctx *context.Context, g *Graph) *Node {
		x := Ones(g, shapes.Make(dtypes.F32, 2, 5, 4, 3))
		return ZeroPad2D(x, 3)
	})
	require.NoError(t, gotT.Shape().Check(dtypes.F32, 2, 11, 10, 3))
	values := gotT.Value().([][][][]float32)
	assert.Equal(t, float32(0), values[0][0][0][0])
	assert.Equal(t, float32(0), values[1][2][9][2])
	assert.Equal(t, float32(1), values[1][3][3][2])
	assert.Equal(t, float32(1), values[0][7][6][0])
	assert.Equal(t, float32(0), values[0][8][6][0])
}

func TestGlobalPool(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	for pooling, want := range map[Pooling][][]float32{
		// Values of each channel are 0, 2, 4, ..., 22 plus the channel index.
		PoolingAvg: {{11, 12}},
		PoolingMax: {{22, 23}},
	} {
		t.Run(string(pooling), func(t *testing.T) {
			gotT := context.MustExecOnce(backend, ctx, func(ctx *context.Context, g *Graph) *Node {
				x := IotaFull(g, shapes.Make(dtypes.F32, 1, 3, 4, 2))
				return GlobalPool(x, pooling)
			})
			require.NoError(t, gotT.Shape().Check(dtypes.F32, 1, 2))
			assert.InDeltaSlice(t, want[0], gotT.Value().([][]float32)[0], 1e-4)
		})
	}
}

func TestRescale(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	for _, grayscale := range []bool{true, false} {
		cfg := DefaultConfig()
		cfg.Grayscale = grayscale
		gotT := context.MustExecOnce(backend, ctx, func(ctx *context.Context, g *Graph) *Node {
			x := MulScalar(Ones(g, shapes.Make(dtypes.F32, cfg.InputDims(1)...)), 255)
			return ReduceAllMax(Rescale(cfg, x))
		})
		want := float32(1)
		if grayscale {
			want = 255
		}
		assert.InDelta(t, want, gotT.Value().(float32), 1e-4, "grayscale=%v", grayscale)
	}
}

func TestHead(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	cfg := DefaultConfig()
	gotT := context.MustExecOnce(backend, ctx, func(ctx *context.Context, g *Graph) *Node {
		x := IotaFull(g, shapes.Make(dtypes.F32, 4, 16))
		return Head(ctx.In("head"), cfg, x)
	})
	require.NoError(t, gotT.Shape().Check(dtypes.F32, 4, cfg.NumClasses))
	for _, row := range gotT.Value().([][]float32) {
		var sum float32
		for _, p := range row {
			assert.GreaterOrEqual(t, p, float32(0))
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-4)
	}
}

func TestCheckImages(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	cfg := DefaultConfig()
	g := NewGraph(backend, "TestCheckImages")
	defer g.Finalize()

	images := Parameter(g, "images", shapes.Make(dtypes.F32, cfg.InputDims(8)...))
	require.NotPanics(t, func() { CheckImages(cfg, images) })

	rgb := Parameter(g, "rgb", shapes.Make(dtypes.F32, 8, 48, 48, 3))
	require.Panics(t, func() { CheckImages(cfg, rgb) })

	wrongSize := Parameter(g, "wrong_size", shapes.Make(dtypes.F32, 8, 32, 48, 1))
	require.Panics(t, func() { CheckImages(cfg, wrongSize) })

	ints := Parameter(g, "ints", shapes.Make(dtypes.Int32, cfg.InputDims(8)...))
	require.Panics(t, func() { CheckImages(cfg, ints) })

	rank3 := Parameter(g, "rank3", shapes.Make(dtypes.F32, 48, 48, 1))
	require.Panics(t, func() { CheckImages(cfg, rank3) })
}
