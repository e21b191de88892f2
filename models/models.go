// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package models is a registry of the image classification architectures of this module, so they
// can be selected by name, typically with the context hyperparameter ParamModel.
//
// The registered models are "vgg16" (see package vgg16) and "resnet50_v1" (see package resnet50).
// All of them are configured with an imageclass.Config.
package models

import (
	"maps"
	"slices"
	"sync"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train"
	"github.com/pkg/errors"

	"github.com/gomlx/convnets/models/imageclass"
	"github.com/gomlx/convnets/models/resnet50"
	"github.com/gomlx/convnets/models/vgg16"
)

// ParamModel is the context hyperparameter with the name of the model to use. Default is "vgg16".
const ParamModel = "model"

const (
	VGG16      = "vgg16"
	ResNet50V1 = "resnet50_v1"
)

// Builder builds the model graph for the batch of images, and returns the model output shaped
// `[batch, cfg.NumClasses]`.
type Builder func(ctx *context.Context, cfg imageclass.Config, images *Node) *Node

var (
	muRegistry sync.Mutex
	registry   = map[string]Builder{
		VGG16:      vgg16.ModelGraph,
		ResNet50V1: resnet50.ModelGraph,
	}
)

// Register a new model Builder under the given name. It overwrites any previous registration with the same name.
func Register(name string, builder Builder) {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	registry[name] = builder
}

// Names returns the sorted names of the registered models.
func Names() []string {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	return slices.Sorted(maps.Keys(registry))
}

// Get returns the Builder registered with the given name.
func Get(name string) (Builder, error) {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	builder, found := registry[name]
	if !found {
		return nil, errors.Errorf("unknown model %q, registered models are %q", name, slices.Sorted(maps.Keys(registry)))
	}
	return builder, nil
}

// ModelFn returns a train.ModelFn for the named model: the imageclass.Config is read from the context
// hyperparameters, and the dtype is taken from the images in inputs[0].
func ModelFn(name string) (train.ModelFn, error) {
	builder, err := Get(name)
	if err != nil {
		return nil, err
	}
	return func(ctx *context.Context, spec any, inputs []*Node) []*Node {
		cfg := imageclass.FromContext(ctx)
		cfg.DType = inputs[0].DType()
		return []*Node{builder(ctx, cfg, inputs[0])}
	}, nil
}

// FromContext returns the train.ModelFn for the model selected by ParamModel. It defaults to VGG16.
func FromContext(ctx *context.Context) (train.ModelFn, error) {
	return ModelFn(context.GetParamOr(ctx, ParamModel, VGG16))
}
