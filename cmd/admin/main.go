package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	domainLike "simplelikes/internal/domain/like"
	infraPostgres "simplelikes/internal/infra/postgres"
	"simplelikes/internal/pkg/apptime"
	"simplelikes/internal/pkg/profilelink"
	"simplelikes/internal/platform/config"
	"simplelikes/internal/platform/database"
	"simplelikes/internal/platform/i18n"
	"simplelikes/internal/platform/logger"
	"simplelikes/internal/platform/migration"
	"simplelikes/internal/platform/telemetry"
	usecaseLike "simplelikes/internal/usecase/like"
)

func main() {
	if err := run(context.Background(), os.Args, os.Stdout); err != nil {
		slog.Error("admin command failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 2 {
		printUsage()
		return fmt.Errorf("missing command")
	}
	switch args[1] {
	case "schema":
		return runSchema(ctx, args[2:], out)
	case "likes":
		return runLikes(ctx, args[2:], out)
	case "users":
		return runUsers(ctx, args[2:], out)
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", args[1])
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  admin schema up|down|version")
	fmt.Fprintln(os.Stderr, "  admin schema force --version 2")
	fmt.Fprintln(os.Stderr, "  admin likes toggle --post 10 --user 3")
	fmt.Fprintln(os.Stderr, "  admin likes show --post 10 [--viewer 3] [--language german]")
	fmt.Fprintln(os.Stderr, "  admin users upsert --uid 3 --username alice [--avatar a.png --usergroup 2 --displaygroup 2]")
}

// env bundles what every subcommand needs.
type env struct {
	cfg *config.Config
	log *slog.Logger
}

func bootstrap() (*env, func(), error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := apptime.SetLocation(cfg.App.TimeZone); err != nil {
		return nil, nil, fmt.Errorf("load timezone: %w", err)
	}

	sentryEnabled, err := telemetry.InitSentry(cfg.Sentry, map[string]string{"binary": "admin"})
	if err != nil {
		return nil, nil, fmt.Errorf("init sentry: %w", err)
	}

	log := logger.New(logger.Config{
		Level:   logger.Level(cfg.App.LogLevel),
		Format:  logger.Format(cfg.App.LogFormat),
		Service: "simplelikes-admin",
		Output:  os.Stderr,
	})
	if sentryEnabled {
		log = logger.WrapWithSentry(log)
	}
	logger.SetDefault(log)

	cleanup := func() {
		if sentryEnabled {
			telemetry.Flush(2 * time.Second)
		}
	}
	return &env{cfg: cfg, log: log}, cleanup, nil
}

func (e *env) connect(ctx context.Context) (*database.DB, error) {
	db, err := database.New(ctx, database.Config{
		ConnectionString: e.cfg.Database.ConnectionString(),
		MaxConns:         2,
		MinConns:         1,
		MaxConnLifetime:  e.cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  e.cfg.Database.MaxConnIdleTime,
		ConnectTimeout:   e.cfg.Database.ConnectTimeout,
		TimeZone:         e.cfg.App.TimeZone,
	}, e.log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

func runSchema(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 {
		printUsage()
		return fmt.Errorf("missing schema subcommand")
	}
	sub := args[0]
	var forceVersion int
	switch sub {
	case "up", "down", "version":
	case "force":
		flags := flag.NewFlagSet("schema force", flag.ContinueOnError)
		flags.SetOutput(io.Discard)
		version := flags.Int("version", -1, "version to record")
		if err := flags.Parse(args[1:]); err != nil {
			return err
		}
		if *version < 0 {
			return fmt.Errorf("--version is required")
		}
		forceVersion = *version
	default:
		printUsage()
		return fmt.Errorf("unknown schema subcommand: %s", sub)
	}

	e, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()

	runner, err := migration.New(migration.Config{
		DatabaseURL:    e.cfg.Database.ConnectionString(),
		MigrationsPath: e.cfg.App.MigrationsPath,
		Logger:         e.log,
	})
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer func() {
		if err := runner.Close(); err != nil {
			e.log.Warn("failed to close migration runner", "error", err)
		}
	}()

	switch sub {
	case "up":
		return runner.Up()
	case "down":
		return runner.Down()
	case "force":
		return runner.Force(forceVersion)
	}
	version, dirty, err := runner.Version()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "version=%d dirty=%t\n", version, dirty)
	return nil
}

func runLikes(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 {
		printUsage()
		return fmt.Errorf("missing likes subcommand")
	}
	switch args[0] {
	case "toggle":
		return runLikesToggle(ctx, args[1:], out)
	case "show":
		return runLikesShow(ctx, args[1:], out)
	default:
		printUsage()
		return fmt.Errorf("unknown likes subcommand: %s", args[0])
	}
}

func runLikesToggle(ctx context.Context, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("likes toggle", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	postID := flags.Int64("post", 0, "post id")
	userID := flags.Int64("user", 0, "user id")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if err := domainLike.ValidateIDs(*postID, *userID); err != nil {
		return err
	}

	e, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()

	db, err := e.connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := usecaseLike.NewService(infraPostgres.NewLikeRepository(db.Pool), nil, nil, e.log)
	result, err := svc.Toggle(ctx, *postID, *userID)
	if err != nil {
		return fmt.Errorf("toggle: %w", err)
	}
	fmt.Fprintf(out, "post=%d user=%d result=%s code=%d\n", *postID, *userID, result, int(result))
	return nil
}

func runLikesShow(ctx context.Context, args []string, out io.Writer) error {
	flags := flag.NewFlagSet("likes show", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	postID := flags.Int64("post", 0, "post id")
	viewerID := flags.Int64("viewer", 0, "viewing user id, 0 for a guest")
	language := flags.String("language", "", "language pack, defaults to LIKES_LANGUAGE")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *postID <= 0 {
		return fmt.Errorf("--post must be positive")
	}

	e, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()

	lang := strings.TrimSpace(*language)
	if lang == "" {
		lang = e.cfg.Likes.Language
	}
	catalog, err := i18n.LoadCatalog()
	if err != nil {
		return fmt.Errorf("load language packs: %w", err)
	}
	translator, err := catalog.Translator(lang)
	if err != nil {
		return fmt.Errorf("select language: %w", err)
	}
	links, err := profilelink.New(e.cfg.Likes.ProfileBaseURL)
	if err != nil {
		return fmt.Errorf("profile links: %w", err)
	}

	db, err := e.connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := usecaseLike.NewService(infraPostgres.NewLikeRepository(db.Pool), nil, nil, e.log)
	summarizer := usecaseLike.NewSummarizer(svc, usecaseLike.NewFormatter(translator, links, translator, nil), e.cfg.Likes, e.log)
	summary, err := summarizer.SummarizePost(ctx, *postID, *viewerID)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}

	fmt.Fprintf(out, "post=%d likes=%d\n", summary.PostID, summary.Count)
	for _, rec := range summary.Likes {
		fmt.Fprintf(out, "  %d\t%s\t%s\n", rec.UserID, rec.Username, apptime.FormatTimestamp(rec.CreatedAt.In(apptime.Location())))
	}
	fmt.Fprintln(out, summary.Text)
	return nil
}

func runUsers(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 || args[0] != "upsert" {
		printUsage()
		return fmt.Errorf("missing or unknown users subcommand")
	}
	flags := flag.NewFlagSet("users upsert", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	uid := flags.Int64("uid", 0, "user id")
	username := flags.String("username", "", "display name")
	avatar := flags.String("avatar", "", "avatar path")
	usergroup := flags.Int("usergroup", 0, "primary group")
	displaygroup := flags.Int("displaygroup", 0, "display group")
	if err := flags.Parse(args[1:]); err != nil {
		return err
	}
	if strings.TrimSpace(*username) == "" {
		return fmt.Errorf("--username is required")
	}

	e, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()

	db, err := e.connect(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := infraPostgres.NewUserRepository(db.Pool)
	if err := repo.Upsert(ctx, *uid, domainLike.Profile{
		Username:     *username,
		Avatar:       *avatar,
		UserGroup:    *usergroup,
		DisplayGroup: *displaygroup,
	}); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	fmt.Fprintf(out, "user %d saved\n", *uid)
	return nil
}
