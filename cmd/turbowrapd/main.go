// turbowrapd is the orchestration daemon: it loads configuration, wires the
// task queue and the Review/Fix orchestrators against their concrete
// adapters, and exposes a minimal HTTP surface for health checks and
// request submission.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/turbowrap/turbowrap/pkg/artifact/fsartifact"
	"github.com/turbowrap/turbowrap/pkg/checkpoint"
	"github.com/turbowrap/turbowrap/pkg/config"
	"github.com/turbowrap/turbowrap/pkg/fix"
	"github.com/turbowrap/turbowrap/pkg/gitadapter"
	"github.com/turbowrap/turbowrap/pkg/llminvoke"
	"github.com/turbowrap/turbowrap/pkg/logging"
	"github.com/turbowrap/turbowrap/pkg/review"
	"github.com/turbowrap/turbowrap/pkg/store/pgstore"
	"github.com/turbowrap/turbowrap/pkg/taskqueue"
	"github.com/turbowrap/turbowrap/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir", getEnv("CONFIG_DIR", "./deploy/config"), "Path to configuration directory")
	flag.Parse()

	logger := logging.FromEnv()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		logger.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "debug"))

	cfg, err := config.Initialize(*configDir)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	ctx := context.Background()

	st, err := pgstore.New(ctx, pgstore.Config{DSN: getEnv("DATABASE_URL", ""), MaxOpenConns: 10})
	if err != nil {
		log.Fatalf("failed to connect to store: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "error", err)
		}
	}()
	logger.Info("connected to store")

	sink, err := fsartifact.New(getEnv("ARTIFACT_DIR", "./data/artifacts"))
	if err != nil {
		log.Fatalf("failed to open artifact sink: %v", err)
	}

	invoker := llminvoke.NewCLIInvoker(llminvoke.CLIConfig{
		PrimaryCommand:    strings.Fields(getEnv("LLM_PRIMARY_CLI_COMMAND", "turbowrap-llm --role primary")),
		ChallengerCommand: strings.Fields(getEnv("LLM_CHALLENGER_CLI_COMMAND", "turbowrap-llm --role challenger")),
		WorkDir:           getEnv("LLM_CLI_WORKDIR", "."),
	}, sink)

	checkpoints := checkpoint.NewManager(st)
	queue := taskqueue.New()

	reviewOrch := &review.Orchestrator{Invoker: invoker, Checkpoints: checkpoints, Config: *cfg}

	reposRoot := getEnv("REPOS_ROOT", "./data/repos")
	commitAuthorName := getEnv("GIT_AUTHOR_NAME", "turbowrapd")
	commitAuthorEmail := getEnv("GIT_AUTHOR_EMAIL", "turbowrapd@localhost")

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "healthy",
			"version":          version.Full(),
			"queue_depth":      queue.Len(),
			"queue_processing": queue.ProcessingCount(),
		})
	})
	router.POST("/reviews", func(c *gin.Context) {
		var req review.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := reviewOrch.Review(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})
	router.POST("/fixes", func(c *gin.Context) {
		var req fix.Request
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		repoPath := filepath.Join(reposRoot, req.RepositoryID)
		git, err := gitadapter.New(repoPath, commitAuthorName, commitAuthorEmail)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		fixOrch := &fix.Orchestrator{Invoker: invoker, Git: git, Config: *cfg}
		result, err := fixOrch.Fix(c.Request.Context(), req)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, result)
	})

	logger.Info("turbowrapd starting", "http_port", httpPort)
	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
