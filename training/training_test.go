// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package training

import (
	"math"
	"testing"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/gomlx/gomlx/backends/default"

	"github.com/gomlx/convnets/models"
	"github.com/gomlx/convnets/models/imageclass"
)

func TestSparseCategoricalCrossEntropy(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	gotT := context.MustExecOnce(backend, ctx, func(ctx *context.Context, g *Graph) *Node {
		labels := Const(g, [][]int32{{0}, {1}})
		predictions := Const(g, [][]float32{{0.5, 0.25, 0.25}, {0.1, 0.8, 0.1}})
		return SparseCategoricalCrossEntropy([]*Node{labels}, []*Node{predictions})
	})
	require.NoError(t, gotT.Shape().Check(dtypes.F32))
	want := (-math.Log(0.5) - math.Log(0.8)) / 2
	assert.InDelta(t, want, gotT.Value().(float32), 1e-4)

	require.Panics(t, func() {
		_ = context.MustExecOnce(backend, ctx, func(ctx *context.Context, g *Graph) *Node {
			labels := Const(g, [][]float32{{0}, {1}})
			predictions := Const(g, [][]float32{{0.5, 0.5}, {0.5, 0.5}})
			return SparseCategoricalCrossEntropy([]*Node{labels}, []*Node{predictions})
		})
	})
}

func TestBinaryCrossEntropy(t *testing.T) {
	backend := graphtest.BuildTestBackend()
	ctx := context.New()
	gotT := context.MustExecOnce(backend, ctx, func(ctx *context.Context, g *Graph) *Node {
		labels := Const(g, [][]int32{{1}, {0}})
		predictions := Const(g, [][]float32{{0.5, 0.5}, {0.25, 0.75}})
		return BinaryCrossEntropy([]*Node{labels}, []*Node{predictions})
	})
	require.NoError(t, gotT.Shape().Check(dtypes.F32))
	// One-hot labels are {{0, 1}, {1, 0}}: two elements at -ln(0.5) and two at -ln(0.25).
	want := (2*-math.Log(0.5) + 2*-math.Log(0.25)) / 4
	assert.InDelta(t, want, gotT.Value().(float32), 1e-4)
}

func TestLossFor(t *testing.T) {
	for _, activation := range []string{"softmax", "sigmoid", "none", ""} {
		lossFn, err := LossFor(activation)
		require.NoError(t, err, "activation %q", activation)
		require.NotNil(t, lossFn)
	}
	_, err := LossFor("relu")
	require.Error(t, err)
}

func TestNewTrainer(t *testing.T) {
	backend := graphtest.BuildTestBackend()

	t.Run("invalid", func(t *testing.T) {
		ctx := context.New()
		ctx.SetParam(imageclass.ParamNumClasses, 0)
		_, err := NewTrainer(backend, ctx)
		require.Error(t, err)

		ctx = context.New()
		ctx.SetParam(models.ParamModel, "unknown")
		_, err = NewTrainer(backend, ctx)
		require.Error(t, err)

		ctx = context.New()
		ctx.SetParam(imageclass.ParamOutputActivation, "tanh")
		_, err = NewTrainer(backend, ctx)
		require.Error(t, err)
	})

	for _, outputActivation := range []string{"softmax", "sigmoid", "none"} {
		t.Run("train step "+outputActivation, func(t *testing.T) {
			if testing.Short() {
				t.Skip("Skipping training step in short mode.")
			}
			ctx := context.New()
			imageclass.SetDefaultParams(ctx)
			ctx.SetParams(map[string]any{
				models.ParamModel:                models.ResNet50V1,
				imageclass.ParamImageHeight:      32,
				imageclass.ParamImageWidth:       32,
				imageclass.ParamNumClasses:       3,
				imageclass.ParamOutputActivation: outputActivation,
				optimizers.ParamOptimizer:        "adam",
				optimizers.ParamLearningRate:     1e-3,
			})
			trainer, err := NewTrainer(backend, ctx)
			require.NoError(t, err)

			images := tensors.FromShape(shapes.Make(dtypes.F32, 2, 32, 32, 1))
			labels := tensors.FromValue([][]int32{{0}, {2}})
			metrics := trainer.TrainStep(nil, []*tensors.Tensor{images}, []*tensors.Tensor{labels})
			require.NotEmpty(t, metrics)
			loss := metrics[0].Value().(float32)
			assert.False(t, math.IsNaN(float64(loss)))
			assert.Greater(t, loss, float32(0))

			// Variables are created under the model scope.
			for v := range ctx.IterVariablesInScope() {
				if v.Scope() == "/"+ModelScope+"/ResNet50_V1/Conv1/conv" {
					return
				}
			}
			t.Errorf("Conv1 variables not found under scope %q", ModelScope)
		})
	}
}
