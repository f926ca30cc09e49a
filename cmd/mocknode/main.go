// mocknode CLI - standalone runner for the mock serving engine.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/getmocknode/mocknode/pkg/assets"
	"github.com/getmocknode/mocknode/pkg/control"
	"github.com/getmocknode/mocknode/pkg/diag"
	"github.com/getmocknode/mocknode/pkg/engine"
	"github.com/getmocknode/mocknode/pkg/logging"
	"github.com/getmocknode/mocknode/pkg/mock"
	"github.com/getmocknode/mocknode/pkg/synth"
	"github.com/getmocknode/mocknode/pkg/template"
	"github.com/getmocknode/mocknode/pkg/vars"
	"github.com/getmocknode/mocknode/pkg/websocket"
)

// Build-time variables set via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	root := &cobra.Command{
		Use:           "mocknode",
		Short:         "Run HTTP and WebSocket mock servers from a collection file",
		Version:       fmt.Sprintf("%s (%s)", Version, Commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newValidateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	var (
		file      string
		logLevel  string
		logFormat string
		assetDirs []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load a collection file and serve its mocks until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := loadCollection(file)
			if err != nil {
				return err
			}

			log := logging.New(logging.Config{
				Level:  logLevel,
				Format: logFormat,
			})

			eng := template.New()
			store := vars.NewStore()
			channel := diag.NewChannel(newLogObserver(log))
			synthesizer := synth.New(eng, assets.NewResolver(assetDirs...), synth.WithLogger(log))

			httpReg := engine.NewRegistry(eng, store, synthesizer,
				engine.WithDiagnostics(channel), engine.WithLogger(log))
			wsReg := websocket.NewRegistry(eng, store,
				websocket.WithDiagnostics(channel), websocket.WithLogger(log))
			svc := control.NewService(httpReg, wsReg, store, control.WithLogger(log))

			if len(collection.Variables) > 0 {
				svc.SyncVariables("", collection.Variables)
			}

			registered := 0
			for _, def := range collection.HTTP {
				if env := svc.RegisterHTTPMock(def); env.Code != control.CodeOK {
					log.Error("http mock rejected", "id", def.ID, "reason", env.Msg)
					continue
				}
				registered++
			}
			for _, def := range collection.WebSocket {
				if env := svc.RegisterWSMock(def); env.Code != control.CodeOK {
					log.Error("websocket mock rejected", "id", def.ID, "reason", env.Msg)
					continue
				}
				registered++
			}
			if registered == 0 {
				return fmt.Errorf("no mocks could be registered from %s", file)
			}
			log.Info("serving", "mocks", registered, "file", file)

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			log.Info("shutting down")
			httpReg.Shutdown()
			wsReg.Shutdown()
			channel.Flush()
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "mocks.yaml", "collection file (YAML or JSON)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	cmd.Flags().StringSliceVar(&assetDirs, "assets", nil, "directories searched for file and image sources")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a collection file without serving",
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := loadCollection(file)
			if err != nil {
				return err
			}

			failed := 0
			for _, def := range collection.HTTP {
				if err := mock.ValidateHTTP(def); err != nil {
					fmt.Fprintf(os.Stderr, "http mock %s: %v\n", def.ID, err)
					failed++
				}
			}
			for _, def := range collection.WebSocket {
				if err := mock.ValidateWS(def); err != nil {
					fmt.Fprintf(os.Stderr, "websocket mock %s: %v\n", def.ID, err)
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d invalid mock(s)", failed)
			}
			fmt.Printf("%s: %d http, %d websocket mock(s) valid\n",
				file, len(collection.HTTP), len(collection.WebSocket))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "mocks.yaml", "collection file (YAML or JSON)")
	return cmd
}

func loadCollection(path string) (*mock.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read collection: %w", err)
	}
	return mock.ParseCollection(data)
}
