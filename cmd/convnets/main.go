// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// convnets reports the devices available and prints the summary of the VGG16 or ResNet50 image classifiers,
// configured with the context hyperparameters.
//
// Example:
//
//	go run ./cmd/convnets -set="model=resnet50_v1;grayscale=false;image_height=224;image_width=224;num_classes=1000"
package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/gomlx/gomlx/backends"
	_ "github.com/gomlx/gomlx/backends/default"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/gomlx/convnets/devices"
	"github.com/gomlx/convnets/models"
	"github.com/gomlx/convnets/models/imageclass"
	"github.com/gomlx/convnets/summary"
	"github.com/gomlx/convnets/training"
)

var (
	flagModel     = flag.String("model", "", "Model to use, overrides the \"model\" hyperparameter: \"vgg16\" or \"resnet50_v1\".")
	flagBackend   = flag.String("backend", "", "Backend configuration, e.g. \"xla:cuda\". If empty, the default backend is used.")
	flagBatchSize = flag.Int("batch", 1, "Batch size used to describe the model input and output shapes.")
	flagDevices   = flag.Bool("devices", true, "Report the devices available to the backend.")
	flagSummary   = flag.Bool("summary", true, "Print the summary of the model.")
)

// createDefaultContext sets the context with the default hyperparameters.
func createDefaultContext() *context.Context {
	ctx := context.New()
	imageclass.SetDefaultParams(ctx)
	ctx.SetParam(models.ParamModel, models.VGG16)
	return ctx
}

// applySettings parses the "-set" settings into ctx, and then overrides the model if modelName is given.
// It returns the names of the hyperparameters set.
func applySettings(ctx *context.Context, settings, modelName string) ([]string, error) {
	paramsSet, err := commandline.ParseContextSettings(ctx, settings)
	if err != nil {
		return nil, err
	}
	if modelName != "" {
		if _, err := models.Get(modelName); err != nil {
			return nil, err
		}
		ctx.SetParam(models.ParamModel, modelName)
		paramsSet = append(paramsSet, models.ParamModel)
	}
	return paramsSet, nil
}

func main() {
	ctx := createDefaultContext()
	settings := commandline.CreateContextSettingsFlag(ctx, "")
	klog.InitFlags(nil)
	flag.Parse()
	paramsSet := must.M1(applySettings(ctx, *settings, *flagModel))
	klog.V(1).Infof("Hyperparameters set: %s", strings.Join(paramsSet, ", "))

	if *flagBackend != "" {
		backends.DefaultConfig = *flagBackend
	}
	backend := backends.MustNew()
	defer backend.Finalize()

	if *flagDevices {
		fmt.Println(devices.Log(backend))
	}
	if !*flagSummary {
		return
	}

	modelName := context.GetParamOr(ctx, models.ParamModel, models.VGG16)
	cfg := imageclass.FromContext(ctx)
	s, err := summary.Build(backend, ctx.In(training.ModelScope), modelName, cfg, *flagBatchSize)
	if err != nil {
		klog.Fatalf("Failed to summarize model: %+v", err)
	}
	fmt.Println(s)
}
