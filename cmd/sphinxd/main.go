package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v9"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sashabaranov/go-openai"

	"github.com/lennythecreator/sphinx/pkg/advisor"
	"github.com/lennythecreator/sphinx/pkg/api"
	"github.com/lennythecreator/sphinx/pkg/api/handler"
	"github.com/lennythecreator/sphinx/pkg/auth"
	"github.com/lennythecreator/sphinx/pkg/completion"
	"github.com/lennythecreator/sphinx/pkg/database"
	"github.com/lennythecreator/sphinx/pkg/logger"
	"github.com/lennythecreator/sphinx/pkg/repository"
	"github.com/lennythecreator/sphinx/pkg/tools"
	"github.com/lennythecreator/sphinx/pkg/workers"
)

type Config struct {
	Addr          string `env:"ADDR" envDefault:":8080"`
	OpenAIToken   string `env:"OPEN_AI_TOKEN,required"`
	OpenAIModel   string `env:"OPEN_AI_MODEL" envDefault:"gpt-4-turbo"`
	JWTSecret     string `env:"JWT_SECRET,required"`
	SerpAPIKey    string `env:"SERP_API_KEY"`
	YoutubeAPIKey string `env:"YOUTUBE_API_KEY"`
	BooksAPIKey   string `env:"BOOKS_API_KEY"`
	PgURL         string `env:"DATABASE_URL,required"`
}

func main() {
	slog.SetDefault(slog.New(logger.NewHandler(os.Stderr, logger.DefaultOptions)))

	if err := runMain(); err != nil {
		slog.Error("shutting down due to error", logger.Err(err))
		os.Exit(1)
	}
	slog.Info("shutdown complete")
}

func runMain() error {
	workerGroup, err := setupWorkers()
	if err != nil {
		return err
	}

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case s := <-sigCh:
			slog.Info("shutting down due to signal", "signal", s.String())
			cancelFn()
		case <-ctx.Done():
		}
	}()

	return workerGroup.Start(ctx)
}

func setupWorkers() (workers.Group, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing env config: %w", err)
	}

	db, err := database.NewPostgres(cfg.PgURL)
	if err != nil {
		return nil, fmt.Errorf("creating db: %w", err)
	}

	tokenManager, err := auth.NewTokenManager(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("creating token manager: %w", err)
	}

	usersRepository := repository.NewUsersRepository(db)
	registry := advisor.NewRegistry()

	booksAPIKey := cfg.BooksAPIKey
	if booksAPIKey == "" {
		booksAPIKey = cfg.YoutubeAPIKey
	}
	advisorTools := []completion.Tool{
		tools.NewSearchJob(cfg.SerpAPIKey),
		tools.NewFindJobSalary(cfg.SerpAPIKey),
		tools.NewFindVideo(cfg.YoutubeAPIKey),
		tools.NewFindBook(booksAPIKey),
	}

	openAIClient := openai.NewClient(cfg.OpenAIToken)
	chatService := completion.NewService(openAIClient, cfg.OpenAIModel, advisorTools)
	// The council runs without tools.
	councilService := completion.NewService(openAIClient, cfg.OpenAIModel, nil)

	router := api.NewRouter(
		handler.NewAuth(usersRepository, tokenManager),
		handler.NewAgents(registry),
		handler.NewChat(chatService),
		handler.NewProjects(councilService),
		tokenManager,
	)

	var workerGroup workers.Group

	worker, err := workers.NewAPIServer(cfg.Addr, router)
	if err != nil {
		return nil, fmt.Errorf("creating api server: %w", err)
	}
	workerGroup = append(workerGroup, worker)

	return workerGroup, nil
}
