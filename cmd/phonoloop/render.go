package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vsariola/phonoloop"
	"github.com/vsariola/phonoloop/midifile"
	"github.com/vsariola/phonoloop/oto"
	"golang.org/x/term"
)

type renderOptions struct {
	synthOptions
	directory string
	stdout    bool
	play      bool
	wav       bool
	midi      bool
	timeout   time.Duration
}

func newRenderCmd() *cobra.Command {
	var o renderOptions
	cmd := &cobra.Command{
		Use:   "render [config or directory ...]",
		Short: "Render loop configs",
		Long: `Render .yml and .json loop configs. Directories are searched for configs.
When no output is selected, a .wav file is written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args)
		},
	}
	o.synthOptions.addFlags(cmd)
	cmd.Flags().StringVarP(&o.directory, "output", "o", "", "Directory where to output all files. The directory and its parents are created if needed. By default, the current working directory.")
	cmd.Flags().BoolVarP(&o.stdout, "stdout", "s", false, "Do not write files; write the .wav to standard output instead.")
	cmd.Flags().BoolVarP(&o.play, "play", "p", false, "Play the rendered loops.")
	cmd.Flags().BoolVarP(&o.wav, "wav", "w", false, "Output the rendered loop as a .wav file (default when no other output is selected).")
	cmd.Flags().BoolVarP(&o.midi, "midi", "m", false, "Output the melody as a .mid file.")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 5*time.Minute, "Abort rendering a config after this long; 0 disables the limit.")
	return cmd
}

func (o *renderOptions) run(cmd *cobra.Command, args []string) error {
	if !o.play && !o.midi && !o.stdout {
		o.wav = true
	}
	if o.stdout {
		if f, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return fmt.Errorf("refusing to write a wave to a terminal; redirect standard output")
		}
	}
	renderer, err := o.renderer(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	files, err := configFiles(args)
	if err != nil {
		return err
	}
	failed := 0
	for _, file := range files {
		if err := o.process(cmd, renderer, file); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "could not process file %v: %v\n", file, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d configs failed", failed, len(files))
	}
	return nil
}

// configFiles expands directories into the .yml and .json files in them.
func configFiles(args []string) ([]string, error) {
	var files []string
	for _, param := range args {
		info, err := os.Stat(param)
		if err != nil {
			return nil, fmt.Errorf("could not stat %v: %v", param, err)
		}
		if !info.IsDir() {
			files = append(files, param)
			continue
		}
		for _, pattern := range []string{"*.yml", "*.yaml", "*.json"} {
			matches, err := filepath.Glob(filepath.Join(param, pattern))
			if err != nil {
				return nil, fmt.Errorf("could not glob the path %v for %v files: %v", param, pattern, err)
			}
			files = append(files, matches...)
		}
	}
	return files, nil
}

func (o *renderOptions) process(cmd *cobra.Command, renderer *phonoloop.Renderer, filename string) error {
	inputBytes, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("could not read file %v: %v", filename, err)
	}
	cfg, err := phonoloop.ParseConfig(inputBytes)
	if err != nil {
		return err
	}
	// percussion paths are relative to the config file
	renderer.ReadFile = func(name string) ([]byte, error) {
		if !filepath.IsAbs(name) {
			name = filepath.Join(filepath.Dir(filename), name)
		}
		return os.ReadFile(name)
	}
	ctx := cmd.Context()
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	loop, err := renderer.Render(ctx, cfg)
	if err != nil {
		return err
	}
	name, err := cfg.OutputName()
	if err != nil {
		return err
	}
	dir := o.directory
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return fmt.Errorf("could not get working directory, specify the output directory explicitly: %v", err)
		}
	}
	// the .mid is generated before anything is written, so a failure leaves
	// no partial outputs behind
	var midiData []byte
	if o.midi {
		var buf bytes.Buffer
		if err := midifile.Write(&buf, loop.Timeline, cfg.BeatsPerMeasure); err != nil {
			return fmt.Errorf("could not generate .mid file: %v", err)
		}
		midiData = buf.Bytes()
	}
	if o.stdout {
		if _, err := cmd.OutOrStdout().Write(loop.Wave); err != nil {
			return fmt.Errorf("could not write to standard output: %v", err)
		}
	}
	if o.wav {
		if err := writeFile(filepath.Join(dir, name), loop.Wave); err != nil {
			return fmt.Errorf("error outputting .wav file: %v", err)
		}
	}
	if o.midi {
		midiName := strings.TrimSuffix(name, filepath.Ext(name)) + ".mid"
		if err := writeFile(filepath.Join(dir, midiName), midiData); err != nil {
			return fmt.Errorf("error outputting .mid file: %v", err)
		}
	}
	if o.play {
		if err := phonoloop.PlayWave(oto.NewPlayer(), loop.Wave); err != nil {
			return err
		}
	}
	return nil
}
