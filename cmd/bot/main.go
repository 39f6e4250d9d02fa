package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Kirun13/gigachat-bot-v2/internal/api"
	"github.com/Kirun13/gigachat-bot-v2/internal/biz"
	"github.com/Kirun13/gigachat-bot-v2/internal/biz/usecase"
	"github.com/Kirun13/gigachat-bot-v2/internal/conf"
	"github.com/Kirun13/gigachat-bot-v2/internal/data"
	"github.com/Kirun13/gigachat-bot-v2/internal/infra/feishu"
	"github.com/Kirun13/gigachat-bot-v2/internal/server"
	"github.com/Kirun13/gigachat-bot-v2/internal/service"
	"github.com/Kirun13/gigachat-bot-v2/lemma"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize clients
	feishuClient := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)

	var lemmaClient *lemma.Client
	if cfg.Lemma.APIKey != "" {
		lemmaClient = lemma.NewClient(cfg.Lemma.APIKey, cfg.Lemma.BaseURL, cfg.Lemma.Model)
		fmt.Println("[Bot] Remote lemma normalizer enabled")
	}

	// Initialize repository layer
	eventRepo, err := data.NewEventRepo(cfg.Streak.DBPath)
	if err != nil {
		log.Fatalf("Failed to open event repo: %v", err)
	}
	triggerRepo, err := data.NewTriggerRepo(cfg.Streak.DBPath)
	if err != nil {
		log.Fatalf("Failed to open trigger repo: %v", err)
	}
	messageRepo := data.NewFeishuRepo(feishuClient)

	var lemmaDict map[string]string
	var defaultWords, commandWords []string
	if cfg.Detection != nil {
		lemmaDict = cfg.Detection.LemmaDict
		defaultWords = cfg.Detection.DefaultWords
		commandWords = cfg.Detection.CommandWords
	}
	lemmatizer := data.NewRemoteLemmatizer(lemmaClient, data.NewDictLemmatizer(lemmaDict))

	fmt.Printf("[Bot] Streak DB: %s\n", cfg.Streak.DBPath)

	// Initialize usecase layer
	locks := usecase.NewChatLocks()
	compiler := usecase.NewPatternCompiler(cfg.ToVariantTables(), cfg.Streak.PatternCacheSize)
	exclusions := usecase.NewExclusionFilter(commandWords)

	triggerUC := usecase.NewTriggerUsecase(triggerRepo, lemmatizer, compiler, locks, defaultWords, cfg.Streak.RuleCacheTTL())
	detectUC := usecase.NewDetectionUsecase(triggerUC, lemmatizer, compiler, exclusions)
	streakUC := usecase.NewStreakUsecase(eventRepo, detectUC, locks, cfg.Streak.UndoMax)
	ucs := &biz.Usecases{Trigger: triggerUC, Detection: detectUC, Streak: streakUC}

	// Initialize service layer
	streakSvc := service.NewStreakService(ucs.Streak, ucs.Trigger, messageRepo, cfg.Feishu.BotName)

	// Initialize HTTP API server
	apiServer := api.NewServer(ucs.Streak, ucs.Trigger, cfg.API.Port)
	go func() {
		if err := apiServer.Start(); err != nil {
			fmt.Printf("[Bot] API server error: %v\n", err)
		}
	}()

	// Initialize server
	srv := server.NewFeishuServer(feishuClient, streakSvc)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		srv.Stop()
		apiServer.Stop()
		eventRepo.Close()
		triggerRepo.Close()
		os.Exit(0)
	}()

	fmt.Println("Starting streak bot...")
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
