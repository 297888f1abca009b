package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/artycalc/artycalc/internal/api"
	"github.com/artycalc/artycalc/internal/config"
	"github.com/artycalc/artycalc/internal/storage"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func runServe(ctx context.Context, args []string, _ io.Reader, _ io.Writer) error {
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.String("listen", ":8080", "address to listen on")
	if err := flags.Parse(args); err != nil || flags.NArg() != 0 {
		return errUsage
	}
	_ = viper.BindPFlag("api.listen", flags.Lookup("listen"))

	// presets are optional for the server; solve and calibrate work without them
	var backend storage.Backend
	if b, err := initStorage(); err != nil {
		Logger.Warn("Preset storage unavailable, preset routes disabled", "error", err)
	} else {
		backend = b
		defer b.Close()
	}

	srv := api.NewServer(api.Dependencies{
		Backend: backend,
		Logger:  SlogManager.Component("api"),
		Margin:  config.GetFloat("viewport.margin"),
	}).HTTPServer(viper.GetString("api.listen"))

	errCh := make(chan error, 1)
	go func() {
		Logger.Info("Server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	Logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
