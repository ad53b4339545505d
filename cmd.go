package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "1.0.0" // set during build with -ldflags

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "gofast-server",
	Short: "gofast - an in-memory RESP key/value server",
	Long: `gofast is an in-memory key/value server speaking a RESP-like
wire protocol. It supports PING, ECHO, GET, and SET (with optional
EX/PX expiration), backed by a sharded, concurrently-accessed store
and a background sweeper that actively reaps expired keys.`,
	Version: version,
	RunE:    runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := newLogger(config)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	log.Info(config.String())

	server := NewServer(config, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-sigChan:
		log.Info("shutdown signal received")
		server.Stop()
	}

	return nil
}

// configCmd shows current configuration.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := LoadConfig()
		if err != nil {
			return err
		}
		fmt.Println("gofast configuration:")
		fmt.Println(strings.Repeat("=", 31))
		fmt.Printf("Host: %s\n", config.Host)
		fmt.Printf("Port: %d\n", config.Port)
		fmt.Printf("Shards: %d\n", config.Shards)
		fmt.Printf("Sweep Tick: %v\n", config.SweepTick)
		fmt.Printf("Sample Size: %d\n", config.SampleSize)
		fmt.Printf("Success Factor: %d\n", config.SuccessFactor)
		fmt.Printf("Read Buffer Size: %d\n", config.ReadBufferSize)
		fmt.Printf("Log Level: %s\n", config.LogLevel)
		fmt.Printf("Log Format: %s\n", config.LogFormat)
		return nil
	},
}

// versionCmd shows version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gofast-server v%s\n", version)
		fmt.Printf("Built with Go %s\n", runtime.Version())
		fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("host", "H", "localhost", "Host to bind to")
	rootCmd.PersistentFlags().IntP("port", "p", 6379, "Port to listen on")
	rootCmd.PersistentFlags().Int("shards", 100000, "Number of store shards")
	rootCmd.PersistentFlags().Duration("sweep-tick", 10*time.Millisecond, "Sweeper tick interval")
	rootCmd.PersistentFlags().Int("sample-size", 20, "Sweeper sample size per round")
	rootCmd.PersistentFlags().Int("success-factor", 4, "Sweeper hit-rate denominator that stops a tick's sampling loop")
	rootCmd.PersistentFlags().Int("read-buffer-size", 512, "Per-connection read buffer size in bytes")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format (text, json)")

	viper.BindPFlag("host", rootCmd.PersistentFlags().Lookup("host"))
	viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("shards", rootCmd.PersistentFlags().Lookup("shards"))
	viper.BindPFlag("sweep_tick", rootCmd.PersistentFlags().Lookup("sweep-tick"))
	viper.BindPFlag("sample_size", rootCmd.PersistentFlags().Lookup("sample-size"))
	viper.BindPFlag("success_factor", rootCmd.PersistentFlags().Lookup("success-factor"))
	viper.BindPFlag("read_buffer_size", rootCmd.PersistentFlags().Lookup("read-buffer-size"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute is the main entry point for the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
