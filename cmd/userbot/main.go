package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/Artemka1806/ai-telegram-userbot/internal/biz"
	"github.com/Artemka1806/ai-telegram-userbot/internal/biz/usecase"
	"github.com/Artemka1806/ai-telegram-userbot/internal/conf"
	"github.com/Artemka1806/ai-telegram-userbot/internal/data"
	"github.com/Artemka1806/ai-telegram-userbot/internal/infra/telegram"
	"github.com/Artemka1806/ai-telegram-userbot/internal/server"
	"github.com/Artemka1806/ai-telegram-userbot/internal/service"
)

var (
	envFile string
	verbose bool

	logger *zap.Logger
	level  = zap.NewAtomicLevel()
)

var rootCmd = &cobra.Command{
	Use:   "userbot",
	Short: "Telegram userbot that drafts messages with Gemini",
	Long: `Attaches to your own Telegram account and answers commands you type
in any chat, e.g. ". text", ".h text", ".m 50", ".? " for the full list.

Run "userbot login" once to create the session, then "userbot run".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Level = level
		if verbose {
			level.SetLevel(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runBot,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Listen for commands until interrupted",
	RunE:  runBot,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in interactively and save the session",
	RunE:  login,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Delete the saved session",
	RunE:  logout,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file to load")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(runCmd, loginCmd, logoutCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*conf.Config, error) {
	cfg, err := conf.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Debug {
		level.SetLevel(zapcore.DebugLevel)
	}
	return cfg, nil
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := data.NewSessionStore(cfg.SessionDBPath(), cfg.Telegram.SessionName)
	if err != nil {
		return err
	}
	defer store.Close()
	if id, err := store.UserID(ctx); err == nil && id != 0 {
		logger.Info("Using saved session", zap.Int64("user_id", id), zap.String("session", cfg.Telegram.SessionName))
	}

	tgCfg := telegram.Config{
		APIID:   cfg.Telegram.APIID,
		APIHash: cfg.Telegram.APIHash,
		Storage: store,
		Logger:  logger,
	}
	// first run from a terminal logs in on the spot
	if term.IsTerminal(int(os.Stdin.Fd())) {
		tgCfg.Authenticator = telegram.NewTerminalAuth(cfg.Telegram.Phone, cfg.Telegram.Password)
	}
	client := telegram.NewClient(tgCfg)

	// Initialize repository layer
	repos, err := data.NewRepositories(ctx, client, data.Options{
		Gemini: data.GeminiConfig{
			APIKey:          cfg.Gemini.APIKey,
			Model:           cfg.Gemini.Model,
			ImageModel:      cfg.Gemini.ImageModel,
			MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
			Temperature:     cfg.Gemini.Temperature,
			TopP:            cfg.Gemini.TopP,
			TopK:            cfg.Gemini.TopK,
		},
		OpenAI: data.OpenAIConfig{
			APIKey:       cfg.OpenAI.APIKey,
			BaseURL:      cfg.OpenAI.BaseURL,
			Model:        cfg.OpenAI.Model,
			SystemPrompt: cfg.Prompts.Reaction.SystemPrompt,
		},
		ReactionsEnabled: cfg.ReactionsEnabled,
		RegistryPath:     cfg.Storage.AutoResponseFile,
		TempDir:          cfg.Storage.TempDir,
		PDFFontPath:      cfg.Storage.PDFFontPath,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create repositories: %w", err)
	}
	defer repos.Close()

	// Initialize usecase layer
	ucs, err := newUsecases(cfg, repos)
	if err != nil {
		return err
	}

	// Initialize service layer
	commandSvc := service.NewCommandService(repos.Chat, ucs.Parser, ucs.Dispatcher, ucs.Delivery, logger)
	autoReplySvc := service.NewAutoReplyService(
		repos.Chat,
		ucs.AutoResponse,
		ucs.Reaction,
		ucs.Dispatcher,
		ucs.Delivery,
		cfg.Command.ContextLimit,
		logger,
	)

	srv := server.NewTelegramServer(client, commandSvc, autoReplySvc, logger)

	logger.Info("Starting userbot",
		zap.String("model", cfg.Gemini.Model),
		zap.String("trigger", cfg.Command.Trigger),
		zap.Bool("reactions", cfg.ReactionsEnabled),
		zap.String("prompts", cfg.Prompts.Source))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		srv.Stop()
		return nil
	})
	return g.Wait()
}

func newUsecases(cfg *conf.Config, repos *data.Repositories) (*biz.Usecases, error) {
	parser, err := usecase.NewCommandParser(cfg.ToCommandConfig())
	if err != nil {
		return nil, fmt.Errorf("build command parser: %w", err)
	}

	contextUC := usecase.NewContextRetrieverUsecase(repos.Chat, logger)
	autoUC := usecase.NewAutoResponseUsecase(repos.Registry, logger)
	dispatcher := usecase.NewDispatcherUsecase(
		repos.Chat,
		repos.Model,
		repos.Converter,
		contextUC,
		usecase.NewPromptAssembler(cfg.ToPromptConfig()),
		parser,
		autoUC,
		cfg.Storage.TempDir,
		logger,
	)

	return &biz.Usecases{
		Parser:       parser,
		Context:      contextUC,
		Dispatcher:   dispatcher,
		Delivery:     usecase.NewDeliveryUsecase(repos.Chat, cfg.Delivery.MaxMessageLength, cfg.Delivery.ChunkDelay, logger),
		AutoResponse: autoUC,
		Reaction:     usecase.NewReactionUsecase(repos.Reaction, logger),
	}, nil
}

func login(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := data.NewSessionStore(cfg.SessionDBPath(), cfg.Telegram.SessionName)
	if err != nil {
		return err
	}
	defer store.Close()

	client := telegram.NewClient(telegram.Config{
		APIID:         cfg.Telegram.APIID,
		APIHash:       cfg.Telegram.APIHash,
		Storage:       store,
		Authenticator: telegram.NewTerminalAuth(cfg.Telegram.Phone, cfg.Telegram.Password),
		Logger:        logger,
	})
	self, err := client.Login(ctx)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if err := store.SetUserID(ctx, self.ID); err != nil {
		return err
	}

	name := self.FirstName
	if self.Username != "" {
		name += " (@" + self.Username + ")"
	}
	fmt.Printf("Logged in as %s, session saved to %s\n", name, cfg.SessionDBPath())
	return nil
}

func logout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := data.NewSessionStore(cfg.SessionDBPath(), cfg.Telegram.SessionName)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Delete(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("Session %q deleted\n", cfg.Telegram.SessionName)
	return nil
}
