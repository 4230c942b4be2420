package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

type rootOptions struct {
	configPath string
	debug      bool
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	opts := &rootOptions{}
	serve := newServeCmd(opts)
	root := &cobra.Command{
		Use:           "iracd",
		Short:         "Generate IRAC case briefs from uploaded court opinions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("IRAC_CONFIG"), "path to a JSON or YAML config file")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "development logging and gin debug mode")

	root.AddCommand(
		serve,
		newExtractCmd(),
		newPromptCmd(opts),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		gin.SetMode(gin.DebugMode)
		return zap.NewDevelopment()
	}
	gin.SetMode(gin.ReleaseMode)
	return zap.NewProduction()
}
