package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/vsariola/phonoloop/server"
)

type serveOptions struct {
	synthOptions
	addr    string
	beats   string
	origins []string
}

func newServeCmd() *cobra.Command {
	var o serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the renderer over HTTP",
		Long: `Serve POST /render, POST /timeline, GET /presets and GET /chords/{token}.
Percussion paths in posted configs are read from the --beats directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd)
		},
	}
	o.synthOptions.addFlags(cmd)
	cmd.Flags().StringVar(&o.addr, "addr", ":8080", "Address to listen on.")
	cmd.Flags().StringVar(&o.beats, "beats", "", "Directory of percussion tracks; percussion is refused when empty.")
	cmd.Flags().StringSliceVar(&o.origins, "origin", nil, "Allowed CORS origins; any origin when none are given.")
	return cmd
}

func (o *serveOptions) run(cmd *cobra.Command) error {
	renderer, err := o.renderer(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	renderer.ReadFile = beatsReader(o.beats)
	logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	srv := &http.Server{
		Addr:              o.addr,
		Handler:           server.New(renderer, logger, o.origins...),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	logger.Printf("listening on %v", o.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// beatsReader reads percussion tracks below dir only.
func beatsReader(dir string) func(string) ([]byte, error) {
	if dir == "" {
		return func(name string) ([]byte, error) {
			return nil, fmt.Errorf("percussion is disabled, start the server with --beats")
		}
	}
	fsys := os.DirFS(dir)
	return func(name string) ([]byte, error) {
		return fs.ReadFile(fsys, name)
	}
}
