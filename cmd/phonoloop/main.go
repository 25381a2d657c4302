package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vsariola/phonoloop"
	"github.com/vsariola/phonoloop/formant"
	"github.com/vsariola/phonoloop/mbrola"
	"github.com/vsariola/phonoloop/sox"
	"github.com/vsariola/phonoloop/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "phonoloop",
		Short: "Sings chord progressions over percussion loops",
		Long: `phonoloop turns chord progressions into sung melodies, optionally mixed
over a percussion loop, and writes them as .wav or .mid files.`,
		Version:      version.String(),
		SilenceUsage: true,
	}
	root.AddCommand(newRenderCmd(), newMelodyCmd(), newMixCmd(), newServeCmd())
	return root
}

// synthOptions selects the synthesizer and resampler used by the renderer.
type synthOptions struct {
	synth  string
	voice  string
	mbrola string
	sox    string
	quiet  bool
}

func (o *synthOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.synth, "synth", "formant", "Synthesizer: formant (built-in) or mbrola.")
	cmd.Flags().StringVar(&o.voice, "voice", "", "Path of the mbrola voice database, e.g. /usr/share/mbrola/fr3/fr3.")
	cmd.Flags().StringVar(&o.mbrola, "mbrola", "mbrola", "The mbrola executable.")
	cmd.Flags().StringVar(&o.sox, "sox", "sox", "The sox executable used for resampling; empty disables resampling.")
	cmd.Flags().BoolVarP(&o.quiet, "quiet", "q", false, "Do not log progress to standard error.")
}

func (o *synthOptions) synthesizer() (phonoloop.Synthesizer, error) {
	switch o.synth {
	case "formant":
		return formant.Synthesizer{}, nil
	case "mbrola":
		if o.voice == "" {
			return nil, fmt.Errorf("--synth mbrola needs --voice")
		}
		return mbrola.Synthesizer{Command: o.mbrola, Voice: o.voice}, nil
	}
	return nil, fmt.Errorf("unknown synthesizer %q, want formant or mbrola", o.synth)
}

func (o *synthOptions) resampler() phonoloop.Resampler {
	if o.sox == "" {
		return nil
	}
	return sox.Resampler{Command: o.sox}
}

func (o *synthOptions) renderer(stderr io.Writer) (*phonoloop.Renderer, error) {
	synth, err := o.synthesizer()
	if err != nil {
		return nil, err
	}
	logger := log.New(stderr, "", log.LstdFlags)
	if o.quiet {
		logger = nil
	}
	return phonoloop.NewRenderer(synth, o.resampler(), logger)
}

// writeFile writes contents to a temporary file next to path and renames it
// over path, creating the directory if needed.
func writeFile(path string, contents []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("could not create output directory %v: %v", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("could not create temporary file in %v: %v", dir, err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()
	if _, err = f.Write(contents); err != nil {
		return fmt.Errorf("could not write file %v: %v", f.Name(), err)
	}
	if err = f.Chmod(0644); err != nil {
		return fmt.Errorf("could not chmod file %v: %v", f.Name(), err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("could not close file %v: %v", f.Name(), err)
	}
	if err = os.Rename(f.Name(), path); err != nil {
		return fmt.Errorf("could not rename %v to %v: %v", f.Name(), path, err)
	}
	return nil
}
