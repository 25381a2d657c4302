package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vsariola/phonoloop"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type melodyOptions struct {
	policy string
	beats  int
	seed   int64
	tempo  int
}

func newMelodyCmd() *cobra.Command {
	var o melodyOptions
	cmd := &cobra.Command{
		Use:   "melody CHORD...",
		Short: "Print the harmonies and melody of chords",
		Long: `Print the harmonies of each chord token (e.g. Am4, F#3, Bb2) and the
melody the selected policy sings over them, one measure per bar.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args)
		},
	}
	cmd.Flags().StringVar(&o.policy, "policy", phonoloop.Alternating.String(), "Melody policy: alternating, alternating-fifth, trinote or random.")
	cmd.Flags().IntVar(&o.beats, "beats", 4, "Beats per measure.")
	cmd.Flags().Int64Var(&o.seed, "seed", 0, "Seed of the random policy; by default the current time.")
	cmd.Flags().IntVar(&o.tempo, "tempo", 100, "Tempo in beats per minute, used for the printed length.")
	return cmd
}

func (o *melodyOptions) run(cmd *cobra.Command, args []string) error {
	policy, err := phonoloop.ParsePolicy(o.policy)
	if err != nil {
		return err
	}
	if o.tempo <= 0 {
		return fmt.Errorf("tempo %d is not positive", o.tempo)
	}
	resolver, err := phonoloop.LoadResolver(phonoloop.DefaultPitchLoader())
	if err != nil {
		return err
	}
	title := cases.Title(language.English)
	out := cmd.OutOrStdout()
	for _, token := range args {
		c, err := resolver.Resolve(token)
		if err != nil {
			return err
		}
		h, err := resolver.Harmonies(c)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-6s %s, octave %d: %d %d %d\n", c.Token(), title.String(c.Root+" "+c.Quality.String()), c.Octave, h[0], h[1], h[2])
	}
	seed := o.seed
	if !cmd.Flags().Changed("seed") {
		seed = time.Now().UnixNano()
	}
	t, err := resolver.Expand(args, o.beats, policy, seed)
	if err != nil {
		return err
	}
	t = t.WithDuration(time.Minute / time.Duration(o.tempo))
	var measures []string
	freqs := t.Frequencies()
	for i := 0; i < len(freqs); i += o.beats {
		measures = append(measures, strings.Trim(fmt.Sprint(freqs[i:i+o.beats]), "[]"))
	}
	fmt.Fprintf(out, "melody (%v, %v): %s\n", policy, t.Duration().Round(time.Millisecond), strings.Join(measures, " | "))
	return nil
}
