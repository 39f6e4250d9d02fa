package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/usecase"
	"github.com/Kirun13/gigachat-bot-v2/internal/conf"
	"github.com/Kirun13/gigachat-bot-v2/internal/data"
	"github.com/Kirun13/gigachat-bot-v2/mcpserver"
)

// streak-mcp exposes the streak database to MCP clients as read-only
// tools. It shares the database file with the running bot.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := conf.LoadFromEnv()

	eventRepo, err := data.NewReadOnlyEventRepo(cfg.Streak.DBPath)
	if err != nil {
		log.Fatalf("Failed to open event repo: %v", err)
	}
	defer eventRepo.Close()

	triggerRepo, err := data.NewReadOnlyTriggerRepo(cfg.Streak.DBPath)
	if err != nil {
		log.Fatalf("Failed to open trigger repo: %v", err)
	}
	defer triggerRepo.Close()

	var lemmaDict map[string]string
	if cfg.Detection != nil {
		lemmaDict = cfg.Detection.LemmaDict
	}
	lemmatizer := data.NewDictLemmatizer(lemmaDict)

	// No defaults here: a read-only consumer must never seed rules
	locks := usecase.NewChatLocks()
	compiler := usecase.NewPatternCompiler(cfg.ToVariantTables(), cfg.Streak.PatternCacheSize)
	triggerUC := usecase.NewTriggerUsecase(triggerRepo, lemmatizer, compiler, locks, nil, cfg.Streak.RuleCacheTTL())
	streakUC := usecase.NewStreakUsecase(eventRepo, nil, locks, cfg.Streak.UndoMax)

	srv := mcpserver.NewServer(streakUC, triggerUC)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "[MCP] Starting streak MCP server on stdio")
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
