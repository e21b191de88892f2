// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package imageclass holds what the convolutional image classifiers in this module have in common:
// the Config describing the input images and the classification head, the context hyperparameters
// used to configure it, and a few graph building blocks (rescaling, zero-padding, global pooling and
// the final dense layer).
//
// The architectures themselves live in the sub-packages of github.com/gomlx/convnets/models.
package imageclass

import (
	"fmt"
	"slices"

	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

const (
	// ParamImageHeight is the context hyperparameter with the height of the input images. Default is 48.
	ParamImageHeight = "image_height"

	// ParamImageWidth is the context hyperparameter with the width of the input images. Default is 48.
	ParamImageWidth = "image_width"

	// ParamGrayscale is the context hyperparameter that tells whether the input has 1 channel (grayscale)
	// or 3 channels (RGB). Default is true.
	ParamGrayscale = "grayscale"

	// ParamNumClasses is the context hyperparameter with the number of output classes. Default is 7.
	ParamNumClasses = "num_classes"

	// ParamOutputActivation is the context hyperparameter with the activation applied to the last layer.
	// Besides the names accepted by activations.FromName it accepts "softmax". Default is "softmax".
	//
	// The hidden layers activation uses activations.ParamActivation ("activation"), default "relu".
	ParamOutputActivation = "output_activation"

	// ParamPooling is the context hyperparameter with the global pooling used before the classification
	// head, for the models that use one (ResNet50). Valid values are "avg" or "max". Default is "avg".
	ParamPooling = "pooling"
)

// ActivationSoftmax is the name of the softmax output activation.
const ActivationSoftmax = "softmax"

// Pooling type used to collapse the spatial dimensions before the classification head.
type Pooling string

const (
	PoolingAvg Pooling = "avg"
	PoolingMax Pooling = "max"
)

// Config of an image classifier: the shape of its input and the configuration of its output.
type Config struct {
	// Height and Width of the input images.
	Height, Width int

	// Grayscale images have 1 channel, otherwise they are RGB with 3 channels.
	Grayscale bool

	// NumClasses is the size of the output.
	NumClasses int

	// HiddenActivation is the activation used after the hidden layers, when the architecture allows
	// configuring it (VGG16). ResNet50 always uses relu.
	HiddenActivation string

	// OutputActivation applied to the output of the last dense layer: "softmax", "sigmoid", "none", etc.
	OutputActivation string

	// Pooling used before the classification head (ResNet50).
	Pooling Pooling

	// DType of the images and of the model variables.
	DType dtypes.DType
}

// DefaultConfig returns the configuration for 48x48 grayscale images and 7 classes, the shape of
// facial expression datasets like FER-2013.
func DefaultConfig() Config {
	return Config{
		Height:           48,
		Width:            48,
		Grayscale:        true,
		NumClasses:       7,
		HiddenActivation: "relu",
		OutputActivation: ActivationSoftmax,
		Pooling:          PoolingAvg,
		DType:            dtypes.Float32,
	}
}

// SetDefaultParams sets the hyperparameters read by FromContext to their default values.
//
// It's useful to have them set before parsing command-line settings, since the default values
// define the type of each parameter.
func SetDefaultParams(ctx *context.Context) {
	cfg := DefaultConfig()
	ctx.SetParams(map[string]any{
		ParamImageHeight:            cfg.Height,
		ParamImageWidth:             cfg.Width,
		ParamGrayscale:              cfg.Grayscale,
		ParamNumClasses:             cfg.NumClasses,
		activations.ParamActivation: cfg.HiddenActivation,
		ParamOutputActivation:       cfg.OutputActivation,
		ParamPooling:                string(cfg.Pooling),
	})
}

// FromContext builds a Config from the context hyperparameters, using DefaultConfig for those not set.
// It doesn't validate the result, see Config.Validate.
func FromContext(ctx *context.Context) Config {
	cfg := DefaultConfig()
	cfg.Height = context.GetParamOr(ctx, ParamImageHeight, cfg.Height)
	cfg.Width = context.GetParamOr(ctx, ParamImageWidth, cfg.Width)
	cfg.Grayscale = context.GetParamOr(ctx, ParamGrayscale, cfg.Grayscale)
	cfg.NumClasses = context.GetParamOr(ctx, ParamNumClasses, cfg.NumClasses)
	cfg.HiddenActivation = context.GetParamOr(ctx, activations.ParamActivation, cfg.HiddenActivation)
	cfg.OutputActivation = context.GetParamOr(ctx, ParamOutputActivation, cfg.OutputActivation)
	cfg.Pooling = Pooling(context.GetParamOr(ctx, ParamPooling, string(cfg.Pooling)))
	return cfg
}

// Channels returns the number of channels of the input images: 1 for grayscale, 3 for RGB.
func (cfg Config) Channels() int {
	if cfg.Grayscale {
		return 1
	}
	return 3
}

// InputDims returns the dimensions of a batch of input images: `[batchSize, height, width, channels]`.
func (cfg Config) InputDims(batchSize int) []int {
	return []int{batchSize, cfg.Height, cfg.Width, cfg.Channels()}
}

// Validate returns an error if the configuration can't be used to build a model.
func (cfg Config) Validate() error {
	if cfg.Height <= 0 || cfg.Width <= 0 {
		return errors.Errorf("invalid image size %dx%d, height and width must be > 0", cfg.Height, cfg.Width)
	}
	if cfg.NumClasses <= 0 {
		return errors.Errorf("invalid number of classes %d, it must be > 0", cfg.NumClasses)
	}
	if !cfg.DType.IsFloat() {
		return errors.Errorf("invalid dtype %s, it must be a float", cfg.DType)
	}
	if _, err := activations.TypeString(cfg.HiddenActivation); err != nil {
		return errors.Wrapf(err, "invalid hidden activation %q", cfg.HiddenActivation)
	}
	if err := ValidateOutputActivation(cfg.OutputActivation); err != nil {
		return err
	}
	if !slices.Contains([]Pooling{PoolingAvg, PoolingMax}, cfg.Pooling) {
		return errors.Errorf("invalid pooling %q, valid values are %q or %q", cfg.Pooling, PoolingAvg, PoolingMax)
	}
	return nil
}

// ValidateOutputActivation returns an error if the name is neither "softmax" nor a valid activations.Type.
// The empty string is accepted and means no activation.
func ValidateOutputActivation(name string) error {
	if name == "" || name == ActivationSoftmax {
		return nil
	}
	if _, err := activations.TypeString(name); err != nil {
		return errors.Wrapf(err, "invalid output activation %q, valid values are %q or one of %v",
			name, ActivationSoftmax, activations.TypeValues())
	}
	return nil
}

// String implements fmt.Stringer.
func (cfg Config) String() string {
	colorSpace := "rgb"
	if cfg.Grayscale {
		colorSpace = "grayscale"
	}
	return fmt.Sprintf("%dx%d %s -> %d classes (hidden=%s, output=%s, pooling=%s, dtype=%s)",
		cfg.Height, cfg.Width, colorSpace, cfg.NumClasses,
		cfg.HiddenActivation, cfg.OutputActivation, cfg.Pooling, cfg.DType)
}
