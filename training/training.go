// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package training configures a GoMLX train.Trainer for the image classifiers of this module: it selects
// the loss and the accuracy metrics matching the model output activation, and the optimizer from the
// context hyperparameters (see optimizers.ParamOptimizer).
//
// Labels are expected in "sparse" format: integer class indices shaped `[batch, 1]`.
package training

import (
	. "github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/gomlx/gomlx/pkg/ml/train/losses"
	"github.com/gomlx/gomlx/pkg/ml/train/metrics"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/gomlx/convnets/models"
	"github.com/gomlx/convnets/models/imageclass"
)

// ModelScope is the scope under which the model variables are created by the trainer.
const ModelScope = "model"

// SparseCategoricalCrossEntropy returns the cross-entropy of predictions (probabilities, e.g. the output
// of a softmax) given sparse labels: integer class indices shaped `[batch, 1]`.
//
// It returns the mean over the batch, a scalar. Extra labels (weights or mask) are handled as in
// losses.CategoricalCrossEntropy.
func SparseCategoricalCrossEntropy(labels, predictions []*Node) *Node {
	labels0, predictions0 := labels[0], predictions[0]
	if !labels0.DType().IsInt() {
		Panicf("labels dtype (%s) must be integer", labels0.DType())
	}
	if labels0.Rank() != predictions0.Rank() || labels0.Shape().Dimensions[labels0.Rank()-1] != 1 {
		Panicf("labels (%s) must be shaped as predictions (%s) with the last axis of dimension 1",
			labels0.Shape(), predictions0.Shape())
	}
	numClasses := predictions0.Shape().Dimensions[predictions0.Rank()-1]
	indices := Squeeze(labels0, -1)
	oneHot := OneHot(indices, numClasses, predictions0.DType())
	return losses.CategoricalCrossEntropy(append([]*Node{oneHot}, labels[1:]...), predictions)
}

// BinaryCrossEntropy returns the binary cross-entropy of predictions (probabilities, e.g. the output of a
// sigmoid) given sparse labels: integer class indices shaped `[batch, 1]`. The labels are converted to
// one-hot, so each class is treated as an independent binary target.
//
// It returns the mean over the batch and the classes, a scalar.
func BinaryCrossEntropy(labels, predictions []*Node) *Node {
	labels0, predictions0 := labels[0], predictions[0]
	numClasses := predictions0.Shape().Dimensions[predictions0.Rank()-1]
	oneHot := OneHot(Squeeze(labels0, -1), numClasses, predictions0.DType())
	return losses.BinaryCrossentropy([]*Node{oneHot}, predictions)
}

// LossFor returns the loss function matching the output activation of a model.
//
//   - "softmax": SparseCategoricalCrossEntropy, on probabilities.
//   - "sigmoid": BinaryCrossEntropy, on probabilities.
//   - "none" or "": losses.SparseCategoricalCrossEntropyLogits, on logits.
//
// Other activations return an error, since their output is neither probabilities nor logits.
func LossFor(outputActivation string) (losses.LossFn, error) {
	switch outputActivation {
	case imageclass.ActivationSoftmax:
		return SparseCategoricalCrossEntropy, nil
	case activations.TypeSigmoid.String():
		return BinaryCrossEntropy, nil
	case activations.TypeNone.String(), "":
		return losses.SparseCategoricalCrossEntropyLogits, nil
	}
	return nil, errors.Errorf("no loss available for output activation %q, use %q, %q or %q",
		outputActivation, imageclass.ActivationSoftmax, activations.TypeSigmoid, activations.TypeNone)
}

// NewTrainer creates a train.Trainer for the model selected by models.ParamModel, configured by the
// context hyperparameters (see imageclass.FromContext and optimizers.FromContext).
//
// The model variables are created under the scope ModelScope of ctx.
func NewTrainer(backend backends.Backend, ctx *context.Context) (*train.Trainer, error) {
	cfg := imageclass.FromContext(ctx)
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessage(err, "invalid model configuration")
	}
	modelFn, err := models.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	lossFn, err := LossFor(cfg.OutputActivation)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("training model %q: %s", context.GetParamOr(ctx, models.ParamModel, models.VGG16), cfg)

	// Accuracy takes the arg-max of the predictions, so it works for probabilities and logits alike.
	meanAccuracyMetric := metrics.NewSparseCategoricalAccuracy("Mean Accuracy", "#acc")
	movingAccuracyMetric := metrics.NewMovingAverageSparseCategoricalAccuracy("Moving Average Accuracy", "~acc", 0.01)

	ctx = ctx.In(ModelScope)
	trainer := train.NewTrainer(backend, ctx, modelFn,
		lossFn,
		optimizers.FromContext(ctx),
		[]metrics.Interface{movingAccuracyMetric}, // trainMetrics
		[]metrics.Interface{meanAccuracyMetric})   // evalMetrics
	return trainer, nil
}
