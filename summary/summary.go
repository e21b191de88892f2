// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package summary describes a model: the shapes of its input and output, and all its variables.
//
// The model graph is built but never compiled or executed, and the variables are not initialized,
// so it's cheap even for large models.
package summary

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/pkg/errors"

	"github.com/gomlx/convnets/models"
	"github.com/gomlx/convnets/models/imageclass"
)

// Variable is the description of one model variable.
type Variable struct {
	Scope, Name string
	Shape       shapes.Shape
}

// Summary of a model.
type Summary struct {
	Model  string
	Config imageclass.Config

	// Input and Output shapes, including the batch dimension.
	Input, Output shapes.Shape

	// Variables in the order they were created.
	Variables []Variable

	// NumParameters is the total number of scalar values in all variables.
	NumParameters int

	// Memory used by all variables, in bytes.
	Memory uintptr
}

// Build the summary of the named model (see models.Names) configured with cfg, for a batch of batchSize images.
//
// The variables are created in ctx, but not initialized. Use a fresh context, since the creation of
// variables that already exist fails.
func Build(backend backends.Backend, ctx *context.Context, modelName string, cfg imageclass.Config, batchSize int) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "can't summarize model %q", modelName)
	}
	if batchSize <= 0 {
		return nil, errors.Errorf("invalid batch size %d, it must be > 0", batchSize)
	}
	builder, err := models.Get(modelName)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Model:  modelName,
		Config: cfg,
		Input:  shapes.Make(cfg.DType, cfg.InputDims(batchSize)...),
	}
	g := graph.NewGraph(backend, modelName)
	defer g.Finalize()
	err = exceptions.TryCatch[error](func() {
		images := graph.Parameter(g, "img", s.Input)
		s.Output = builder(ctx, cfg, images).Shape()
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to build graph for model %q", modelName)
	}

	for v := range ctx.IterVariables() {
		s.Variables = append(s.Variables, Variable{Scope: v.Scope(), Name: v.Name(), Shape: v.Shape()})
		s.NumParameters += v.Shape().Size()
		s.Memory += v.Shape().Memory()
	}
	return s, nil
}

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
)

// columnAlignments of the variables table: scope/name, shape, parameters and memory.
var columnAlignments = []lipgloss.Position{lipgloss.Left, lipgloss.Left, lipgloss.Right, lipgloss.Right}

// String returns a pretty-printed table with the variables of the model, followed by the totals.
func (s *Summary) String() string {
	table := lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (style lipgloss.Style) {
			if row < 0 {
				return headerRowStyle
			}
			if row%2 == 0 {
				style = oddRowStyle
			} else {
				style = evenRowStyle
			}
			return style.Align(columnAlignments[col])
		}).
		Headers("Variable", "Shape", "Parameters", "Memory")
	for _, v := range s.Variables {
		table.Row(
			context.JoinScope(v.Scope, v.Name),
			shapeDims(v.Shape),
			humanize.Comma(int64(v.Shape.Size())),
			humanize.Bytes(uint64(v.Shape.Memory())))
	}

	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "Model %q: %s\n", s.Model, s.Config)
	_, _ = fmt.Fprintf(&sb, "\tinput:  %s\n", s.Input)
	_, _ = fmt.Fprintf(&sb, "\toutput: %s\n", s.Output)
	sb.WriteString(table.String())
	_, _ = fmt.Fprintf(&sb, "\n\t%s variables, %s parameters, %s\n",
		humanize.Comma(int64(len(s.Variables))), humanize.Comma(int64(s.NumParameters)), humanize.Bytes(uint64(s.Memory)))
	return sb.String()
}

func shapeDims(shape shapes.Shape) string {
	parts := make([]string, len(shape.Dimensions))
	for ii, dim := range shape.Dimensions {
		parts[ii] = fmt.Sprintf("%d", dim)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
