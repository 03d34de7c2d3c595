package main

import (
	"fmt"
	"log/slog"

	"github.com/born-ml/seqadapt/internal/backend/cpu"
	"github.com/born-ml/seqadapt/internal/config"
	"github.com/born-ml/seqadapt/internal/nn"
	"github.com/born-ml/seqadapt/internal/seq"
	"github.com/born-ml/seqadapt/internal/tensor"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run the adapters forward and backward over every sequence representation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			results, err := runCheck(cfg)
			if err != nil {
				return err
			}
			for _, r := range results {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-24s ok  %s -> %s\n",
					r.Representation, r.Pipeline, r.Input, r.Output); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// checkResult describes one forward/backward round trip.
type checkResult struct {
	Representation string
	Pipeline       string
	Input          string
	Output         string
	Gradient       string
}

// checkCase pairs an input with the pipeline that accepts it.
type checkCase struct {
	name  string
	model nn.SeqLayer
	x     seq.Seq
}

// runCheck builds the configured batch in every representation, runs it
// through the adapters in training mode and backpropagates a gradient of
// ones. Every input gradient must match its input's representation and
// shapes.
func runCheck(cfg config.Config) ([]checkResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var backend *cpu.CPUBackend
	if cfg.Dropout.Seed == 0 {
		backend = cpu.New()
	} else {
		backend = cpu.NewWithSeed(cfg.Dropout.Seed)
	}

	linear := nn.NewLinear(0, cfg.Batch.OutWidth)
	dropout := nn.NewDropout(float32(cfg.Dropout.Rate), backend)
	full := nn.NewSequential(
		dropout,
		nn.NewWithArray2D(linear, backend, cfg.Adapter.Pad),
		nn.NewWithPadded(nn.NewRunningSum(), backend),
	)
	dense2D := nn.NewSequential(dropout, nn.NewWithArray2D(linear, backend, 0))
	padded := nn.NewSequential(dropout, nn.NewWithPadded(nn.NewRunningSum(), backend))

	items := buildItems(cfg.Batch.Lengths, cfg.Batch.Width)
	if err := full.Initialize(items, nil); err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	slog.Debug("initialized", "model", full.Name(), "nI", cfg.Batch.Width, "nO", cfg.Batch.OutWidth)

	ragged, err := seq.ListToRagged(backend, items)
	if err != nil {
		return nil, err
	}
	paddedBatch, err := seq.List2Padded(backend, items)
	if err != nil {
		return nil, err
	}
	maxLen := 0
	for _, n := range cfg.Batch.Lengths {
		maxLen = max(maxLen, n)
	}
	// A dense 3D batch has no padding: every item spans every step.
	uniform := buildArray(tensor.Shape{maxLen, len(cfg.Batch.Lengths), cfg.Batch.Width})

	cases := []checkCase{
		{"list", full, items},
		{"ragged", full, ragged},
		{"padded", full, paddedBatch},
		{"dense-2d", dense2D, seq.NewDense(ragged.Data)},
		{"dense-3d", padded, seq.NewDense(uniform)},
		{"padded-data", padded, seq.FromPadded(paddedBatch)},
	}

	results := make([]checkResult, 0, len(cases))
	for _, c := range cases {
		r, err := runCase(c)
		if err != nil {
			slog.Error("check failed", "representation", c.name, "pipeline", c.model.Name(), "err", err)
			return nil, fmt.Errorf("%s: %w", c.name, err)
		}
		slog.Info("check passed",
			"representation", r.Representation,
			"pipeline", r.Pipeline,
			"input", r.Input,
			"output", r.Output,
			"gradient", r.Gradient,
		)
		results = append(results, r)
	}

	return results, nil
}

func runCase(c checkCase) (checkResult, error) {
	y, bp, err := c.model.Forward(c.x, true)
	if err != nil {
		return checkResult{}, err
	}
	dX, err := bp.Backward(onesLike(y))
	if err != nil {
		return checkResult{}, err
	}
	if err := sameStructure(c.x, dX); err != nil {
		return checkResult{}, err
	}
	return checkResult{
		Representation: c.name,
		Pipeline:       c.model.Name(),
		Input:          c.x.String(),
		Output:         y.String(),
		Gradient:       dX.String(),
	}, nil
}

// buildItems creates one (length, width) item per length with small
// deterministic values.
func buildItems(lengths []int, width int) seq.List {
	items := make(seq.List, len(lengths))
	for i, n := range lengths {
		items[i] = buildArray(tensor.Shape{n, width})
	}
	return items
}

func buildArray(shape tensor.Shape) *tensor.RawTensor {
	x := tensor.Zeros(shape, tensor.Float32)
	data := x.AsFloat32()
	for i := range data {
		data[i] = float32(i%17) / 16
	}
	return x
}

// onesLike builds a gradient of ones with the structure of s.
func onesLike(s seq.Seq) seq.Seq {
	ones := func(x *tensor.RawTensor) *tensor.RawTensor {
		out := tensor.Zeros(x.Shape(), tensor.Float32)
		data := out.AsFloat32()
		for i := range data {
			data[i] = 1
		}
		return out
	}
	switch v := s.(type) {
	case seq.Ragged:
		return seq.Ragged{Data: ones(v.Data), Lengths: v.Lengths}
	case seq.Padded:
		return v.WithData(ones(v.Data))
	case seq.List:
		out := make(seq.List, len(v))
		for i, x := range v {
			out[i] = ones(x)
		}
		return out
	case seq.Dense:
		arrays := append([]*tensor.RawTensor(nil), v.Arrays...)
		arrays[0] = ones(arrays[0])
		return seq.Dense{Arrays: arrays}
	default:
		return s
	}
}

// sameStructure checks that a gradient has the representation and payload
// shapes of the input it belongs to.
func sameStructure(x, dX seq.Seq) error {
	if x.Kind() != dX.Kind() {
		return fmt.Errorf("gradient is %s for %s input: %w", dX.Kind(), x.Kind(), seq.ErrShapeMismatch)
	}
	want, got := payloads(x), payloads(dX)
	if len(want) != len(got) {
		return fmt.Errorf("gradient has %d arrays for %d: %w", len(got), len(want), seq.ErrShapeMismatch)
	}
	for i := range want {
		if !want[i].Shape().Equal(got[i].Shape()) {
			return fmt.Errorf("gradient %v for input %v: %w", got[i].Shape(), want[i].Shape(), seq.ErrShapeMismatch)
		}
	}
	return nil
}

func payloads(s seq.Seq) []*tensor.RawTensor {
	switch v := s.(type) {
	case seq.Ragged:
		return []*tensor.RawTensor{v.Data}
	case seq.Padded:
		return []*tensor.RawTensor{v.Data}
	case seq.List:
		return v
	case seq.Dense:
		return v.Arrays[:1]
	default:
		return nil
	}
}
