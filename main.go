package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"evmwallet/pkg/config"
	"evmwallet/pkg/history"
	"evmwallet/pkg/models"
	"evmwallet/pkg/provider"
	"evmwallet/pkg/server"
	"evmwallet/pkg/tui"
	"evmwallet/pkg/wallet"
)

// Version should be set during build
var Version = "dev"

func main() {
	testFlag := flag.Bool("t", false, "Test configuration and exit")
	testLongFlag := flag.Bool("test", false, "Test configuration and exit")
	jsonFlag := flag.Bool("json", false, "Output test results as JSON")
	configFlag := flag.String("config", "", "Path to configuration file")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	serverFlag := flag.Bool("server", false, "Run in headless server mode")
	portFlag := flag.Int("port", 8080, "Port for API server")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("evmwallet version %s\n", Version)
		os.Exit(0)
	}

	cfgInput := *configFlag
	if cfgInput == "" && len(flag.Args()) > 0 {
		cfgInput = flag.Args()[0]
	}
	path, err := config.GetConfigPath(cfgInput)
	if err != nil {
		fmt.Printf("Error determining config path: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		fmt.Printf("Error loading config from %s: %v\n", path, err)
		os.Exit(1)
	}

	if *testFlag || *testLongFlag {
		os.Exit(runConfigTest(cfg, path, *jsonFlag))
	}

	ctx := context.Background()

	var transport provider.Transport
	if t, err := provider.DialTransport(ctx, cfg.Endpoint); err != nil {
		fmt.Printf("Warning: wallet endpoint %s unreachable: %v\n", cfg.Endpoint, err)
	} else {
		transport = t
		defer t.Close()
	}

	adapter := provider.New(transport)
	sync := wallet.NewSynchronizer(adapter, time.Duration(cfg.HeartbeatSeconds)*time.Second)
	sync.Start(ctx)
	defer sync.Stop()

	hist := history.NewClient(cfg.ExplorerURL, cfg.ExplorerAPIKey)

	srv := server.NewServer(sync, hist)
	go func() {
		if err := srv.Start(*portFlag); err != nil {
			fmt.Printf("Server error: %v\n", err)
		}
	}()

	if *serverFlag {
		fmt.Printf("Running in server mode on port %d...\n", *portFlag)
		select {} // Keep alive
	}

	tui.Start(sync, hist, cfg, Version)
}

// runConfigTest checks the config structure and probes the wallet endpoint,
// mirroring what the TUI would do on startup.
func runConfigTest(cfg config.Config, path string, asJSON bool) int {
	report := models.TestReport{
		ConfigPath:     path,
		ValidStructure: true,
		ExplorerURL:    cfg.ExplorerURL,
		ExplorerKeySet: cfg.ExplorerAPIKey != "",
	}

	if !asJSON {
		fmt.Printf("Testing configuration at: %s\n", path)
	}

	if problems := config.Validate(cfg); len(problems) > 0 {
		report.ValidStructure = false
		report.StructureErrors = problems
		if !asJSON {
			for _, p := range problems {
				fmt.Printf("Error: %s\n", p)
			}
		}
	}

	report.Endpoint = probeEndpoint(cfg.Endpoint)
	if !asJSON {
		if report.Endpoint.Status == "ok" {
			fmt.Printf("Endpoint %s ... OK (ChainID: %d)\n", cfg.Endpoint, report.Endpoint.ChainID)
		} else {
			fmt.Printf("Endpoint %s ... Failed: %s\n", cfg.Endpoint, report.Endpoint.Error)
		}
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	}

	if !report.ValidStructure || report.Endpoint.Status != "ok" {
		return 1
	}
	return 0
}

func probeEndpoint(url string) models.EndpointResult {
	result := models.EndpointResult{URL: url}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	transport, err := provider.DialTransport(ctx, url)
	if err != nil {
		result.Status = "error"
		result.Error = err.Error()
		return result
	}
	defer transport.Close()

	chainID, err := transport.ChainID(ctx)
	if err != nil {
		result.Status = "error"
		result.Error = fmt.Sprintf("Failed to get ChainID: %v", err)
		return result
	}

	result.Status = "ok"
	result.ChainID = chainID
	return result
}
