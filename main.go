package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"squadflow/pkg/agent"
	"squadflow/pkg/channels"
	"squadflow/pkg/config"
	"squadflow/pkg/gateway"
	"squadflow/pkg/llm"
	"squadflow/pkg/monitor"
	"squadflow/pkg/squad"
	"squadflow/pkg/tools"

	_ "squadflow/pkg/channels/autoload"
	_ "squadflow/pkg/llm/autoload"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	monitor.PrintBanner()

	cfg, sysCfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = &config.Config{}
		sysCfg = config.LoadSystemConfig("system.json")
	}

	monitor.SetupSlog(sysCfg.LogLevel)

	client, err := llm.NewFromConfig(cfg.LLM, sysCfg)
	if err != nil {
		slog.Error("Failed to initialize completion providers", "error", err)
		os.Exit(1)
	}

	registry := tools.NewRegistry()
	tools.RegisterBuiltins(registry)

	weatherTool := tools.NewAPITool(
		"get_weather",
		"Look up the current weather for a city.",
		tools.APIConfig{URL: "http://localhost:5001/weather", Method: "GET"},
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{"type": "string", "description": "the city to look up"},
			},
			"required": []string{"city"},
		},
	)
	registry.Register(weatherTool)

	store := squad.NewStore()
	sq := squad.NewDefaultSquad(tools.PlannerToolID, weatherTool.ID)
	store.Add(sq)

	engine := agent.NewEngine(client, sq, registry, sysCfg)

	gw, err := gateway.NewGatewayBuilder().
		WithMonitor(monitor.NewCLIMonitor()).
		WithChannel(channels.CreateFromConfig(cfg.Channels, engine.Log(), sysCfg)...).
		WithEngine(engine).
		Build()
	if err != nil {
		slog.Error("Failed to start gateway", "error", err)
		os.Exit(1)
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	reloads := config.WatchConfig(watchCtx, "system.json")
	go func() {
		for range reloads {
			_, newSys, err := config.Load()
			if err != nil {
				slog.Warn("Config reload failed", "error", err)
				continue
			}
			monitor.SetupSlog(newSys.LogLevel)
			slog.Info("System config reloaded", "log_level", newSys.LogLevel)
		}
	}()

	slog.Info("Squadflow is running", "squad", sq.ID, "entry", sq.EntryID())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
	gw.StopAll()
	slog.Info("Bye!")
}
