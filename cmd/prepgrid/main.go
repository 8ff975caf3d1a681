package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"github.com/prepgrid/prepgrid/internal/coach"
	"github.com/prepgrid/prepgrid/internal/handler"
	appI18n "github.com/prepgrid/prepgrid/internal/i18n"
	"github.com/prepgrid/prepgrid/internal/model"
	"github.com/prepgrid/prepgrid/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "prepgrid",
		Short: "Exam practice server with timed sessions and scoring",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `prepgrid --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP practice server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "prepgrid.db", "SQLite database path")
	f.StringSliceP("exams", "e", []string{"exams/mathematics_2024.json"}, "Paths to exam JSON files (repeatable)")
	f.StringP("lang", "l", "en", "UI language (en, ru)")
	f.Int("duration", 0, "Override exam duration in seconds (0 = use each exam's own)")
	f.Int("threshold", 0, "Override passing threshold percentage (0 = use each exam's own)")
	f.StringP("mode", "m", "practice", "Default attempt mode (practice, exam)")
	f.String("llm-url", "http://localhost:11434/v1", "OpenAI-compatible API base URL for the study coach")
	f.String("llm-key", "ollama", "API key for the study coach")
	f.String("llm-model", "", "Study coach model name (empty disables the coach)")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-password", "", "Initial admin password (or set PREPGRID_ADMIN_PASSWORD)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export completed attempts as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "prepgrid.db", "SQLite database path")
	f.Int64("exam-id", 0, "Only export attempts for this exam (0 = all)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("PREPGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("prepgrid")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/prepgrid")
	v.AddConfigPath("/etc/prepgrid")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	defaultMode := model.Mode(strings.ToLower(v.GetString("mode")))
	if defaultMode != model.ModePractice && defaultMode != model.ModeExam {
		return fmt.Errorf("invalid mode %q: must be practice or exam", v.GetString("mode"))
	}

	// Open database.
	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// Seed default admin user if no users exist.
	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	// Load exams from all specified files.
	if err := loadExams(db, v.GetStringSlice("exams")); err != nil {
		return fmt.Errorf("load exams: %w", err)
	}

	// Initialize i18n.
	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// The study coach is optional; an empty model name leaves it off.
	var coachClient *coach.Client
	if modelName := v.GetString("llm-model"); modelName != "" {
		coachClient, err = coach.New(v.GetString("llm-url"), v.GetString("llm-key"), modelName)
		if err != nil {
			return fmt.Errorf("create coach client: %w", err)
		}
		if err := coachClient.Ping(context.Background()); err != nil {
			return fmt.Errorf("coach health check: %w", err)
		}
		slog.Info("coach endpoint OK", "url", v.GetString("llm-url"), "model", modelName)
	}

	serverCfg := model.ServerConfig{
		DurationSeconds:  v.GetInt("duration"),
		PassingThreshold: v.GetInt("threshold"),
		DefaultMode:      defaultMode,
		SecureCookies:    v.GetBool("secure-cookies"),
	}

	h, err := handler.New(db, coachClient, serverCfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"default_mode", defaultMode,
		"duration_override", serverCfg.DurationSeconds,
		"threshold_override", serverCfg.PassingThreshold,
		"coach", coachClient != nil,
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	attempts, err := db.ListAttempts()
	if err != nil {
		return fmt.Errorf("list attempts: %w", err)
	}

	export := model.AttemptExport{Attempts: attempts}
	if examID := v.GetInt64("exam-id"); examID != 0 {
		exam, err := db.GetExam(examID)
		if err != nil {
			return fmt.Errorf("get exam %d: %w", examID, err)
		}
		export.ExamCode = exam.Code
		export.Subject = exam.Subject
		export.Year = exam.Year

		filtered := attempts[:0]
		for _, a := range attempts {
			if a.ExamID == examID {
				filtered = append(filtered, a)
			}
		}
		export.Attempts = filtered
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func loadExams(db *store.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}

		if storedHash == hash {
			slog.Info("exam file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("exam file changed since last import, skipping to avoid breaking saved attempts",
				"path", path)
			continue
		}

		var imp model.ExamImport
		if err := json.Unmarshal(data, &imp); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		existing, err := db.GetExamByKey(imp.Code, imp.Subject, imp.Year)
		if err != nil {
			return fmt.Errorf("look up exam from %s: %w", path, err)
		}
		if existing != nil {
			slog.Warn("exam already exists, skipping", "path", path, "code", imp.Code, "subject", imp.Subject, "year", imp.Year)
			continue
		}

		examID, err := db.CreateExam(model.Exam{
			Code:             imp.Code,
			Subject:          imp.Subject,
			Year:             imp.Year,
			Title:            imp.Title,
			DurationSeconds:  imp.DurationSeconds,
			PassingThreshold: imp.PassingThreshold,
			DefaultMode:      imp.DefaultMode,
		})
		if err != nil {
			return fmt.Errorf("create exam from %s: %w", path, err)
		}

		for _, qi := range imp.Questions {
			_, err := db.InsertQuestion(model.Question{
				ExamID:        examID,
				Text:          qi.Text,
				Options:       qi.Options,
				CorrectOption: qi.CorrectOption,
				Difficulty:    qi.Difficulty,
				Subject:       qi.Subject,
				Hint:          qi.Hint,
				Explanation:   qi.Explanation,
			})
			if err != nil {
				return fmt.Errorf("insert question from %s: %w", path, err)
			}
		}

		if err := db.SetImportedFileHash(path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported exam", "path", path, "title", imp.Title, "questions", len(imp.Questions))
	}

	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func seedAdmin(db *store.Store, password string) error {
	count, err := db.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		slog.Warn("no admin password set, skipping admin seed; attempts will be anonymous")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	_, err = db.CreateUser(model.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: string(hash),
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", "admin")
	return nil
}
