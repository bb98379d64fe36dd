package main

import (
	"context"
	"log"
	"os"

	"github.com/example/room-relay/config"
	"github.com/example/room-relay/modules/api"
	"github.com/example/room-relay/modules/assist"
	"github.com/example/room-relay/modules/chat"
	"github.com/example/room-relay/modules/wsserver"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	log.Println("=== Room Relay - Fiber + WebSocket + EventBus ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(cfg.MonoLogLevel()),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	// Create modules
	chatModule, err := chat.NewModule(logger.WithModule("chat"), chat.Options{
		MaxMessageLength: cfg.MaxMessageLength,
	})
	if err != nil {
		log.Fatalf("Failed to create chat module: %v", err)
	}

	pushHandlers := wsserver.NewHandlers(chatModule.Engine(), logger.WithModule("ws"), wsserver.Config{
		SendQueueSize:      cfg.SendQueueSize,
		RateLimitBurst:     cfg.RateLimitBurst,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
	})

	apiModule := api.NewModule(logger.WithModule("api"), api.Config{
		Addr:               cfg.Addr(),
		PublicDir:          cfg.PublicDir,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	// The push transport shares the chat engine directly; it is not a
	// request-reply service.
	apiModule.SetPushHandler(pushHandlers)

	// Register modules with the framework.
	// - chat: rooms, sessions and fan-out (ServiceProviderModule + EventEmitterModule)
	// - assist: describes trigger messages (EventConsumerModule), optional
	// - api: Fiber HTTP/WebSocket server, depends on chat
	app.Register(chatModule)
	if cfg.AssistEnabled() {
		describer := assist.NewGeminiClient(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GeminiAPIKey, cfg.AssistTimeout)
		app.Register(assist.NewModule(describer, logger.WithModule("assist"), assist.Config{
			Triggers: cfg.Triggers(),
			Language: cfg.AssistLanguage,
			Timeout:  cfg.AssistTimeout,
		}))
	} else {
		log.Println("GEMINI_API not set, message descriptions disabled")
	}
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://%s):", cfg.Addr())
	log.Println("  GET    /health                    - Health check")
	log.Println("  POST   /api/createRoom            - Create a room {username}")
	log.Println("  POST   /api/joinRoom              - Check a room {username, room}")
	log.Println("  POST   /api/send                  - Post a message {room, user?, text}")
	log.Println("  GET    /api/rooms/:room?latest=   - Room history")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://%s/ws):", cfg.Addr())
	log.Println(`  {"type":"create room","ack":"1","username":"Ann"}`)
	log.Println(`  {"type":"join room","ack":"2","username":"Bob","room":"A1B2"}`)
	log.Println(`  {"type":"chat message","text":"hello"}`)
	log.Println("")
	log.Printf("Static files: %s", cfg.PublicDir)
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
