package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/vsariola/phonoloop"
	"github.com/vsariola/phonoloop/sox"
)

type mixOptions struct {
	align  string
	offset int
	gainA  float32
	gainB  float32
	output string
	sox    string
}

func newMixCmd() *cobra.Command {
	var o mixOptions
	cmd := &cobra.Command{
		Use:   "mix A.wav B.wav",
		Short: "Mix two waves",
		Long: `Mix two 16-bit PCM waves. The shorter one is padded with silence according
to --align or --offset. B is resampled to the rate of A if needed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args)
		},
	}
	cmd.Flags().StringVar(&o.align, "align", "left", "Alignment of the shorter wave: left, right or center.")
	cmd.Flags().IntVar(&o.offset, "offset", 0, "Start the shorter wave this many samples into the longer one; overrides --align.")
	cmd.Flags().Float32Var(&o.gainA, "gain-a", 1, "Gain of A.")
	cmd.Flags().Float32Var(&o.gainB, "gain-b", 1, "Gain of B.")
	cmd.Flags().StringVarP(&o.output, "output", "o", "mix.wav", "Output file.")
	cmd.Flags().StringVar(&o.sox, "sox", "sox", "The sox executable used for resampling; empty disables resampling.")
	return cmd
}

func (o *mixOptions) run(cmd *cobra.Command, args []string) error {
	mode, err := phonoloop.ParseOffsetMode(o.align)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("offset") {
		mode = phonoloop.Offset(o.offset)
	}
	dataA, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("could not read file %v: %v", args[0], err)
	}
	a, err := phonoloop.DecodePCM(dataA)
	if err != nil {
		return fmt.Errorf("%v: %w", args[0], err)
	}
	dataB, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("could not read file %v: %v", args[1], err)
	}
	codec := phonoloop.Codec{TargetRate: a.SampleRate}
	if o.sox != "" {
		codec.Resampler = sox.Resampler{Command: o.sox}
	}
	b, err := codec.Decode(cmd.Context(), dataB)
	if err != nil {
		return fmt.Errorf("%v: %w", args[1], err)
	}
	mixed, err := phonoloop.Mix(a.Scale(o.gainA), b.Scale(o.gainB), mode)
	if err != nil {
		return err
	}
	wave, err := phonoloop.Encode(mixed)
	if err != nil {
		return err
	}
	if err := writeFile(o.output, wave); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %v (%v)\n", o.output, mixed.Duration())
	return nil
}
