// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/albeach/DIVE-V3-sub011/audit"
	"github.com/albeach/DIVE-V3-sub011/config"
	"github.com/albeach/DIVE-V3-sub011/controller"
	"github.com/albeach/DIVE-V3-sub011/dao"
	"github.com/albeach/DIVE-V3-sub011/db"
	"github.com/albeach/DIVE-V3-sub011/evaluator"
	"github.com/albeach/DIVE-V3-sub011/kas"
	logger "github.com/albeach/DIVE-V3-sub011/logging"
	"github.com/albeach/DIVE-V3-sub011/pdp"
	"github.com/albeach/DIVE-V3-sub011/pep"
	"github.com/albeach/DIVE-V3-sub011/registry"
	"github.com/albeach/DIVE-V3-sub011/revocation"
	"github.com/albeach/DIVE-V3-sub011/router"
	"github.com/albeach/DIVE-V3-sub011/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	// Initialize backends in parallel
	var initGroup errgroup.Group
	initGroup.Go(db.InitNeo4j)
	initGroup.Go(db.InitRedis)
	if err := initGroup.Wait(); err != nil {
		logger.Fatal("Failed to initialize backends", zap.Error(err))
	}
	defer db.CloseNeo4j()
	defer db.CloseRedis()

	// Initialize EventBus
	eventBus := util.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventBus.Start(ctx)

	// Audit sink: Elasticsearch when configured, structured logs otherwise
	var auditRepository audit.Repository
	if esURL := config.GetString("elasticsearch.url"); esURL != "" {
		esRepository, err := audit.NewElasticsearchRepository(esURL)
		if err != nil {
			logger.Fatal("Failed to initialize Elasticsearch audit repository", zap.Error(err))
		}
		auditRepository = esRepository
	} else {
		auditRepository = audit.NewLogRepository()
	}
	auditService := audit.NewService(auditRepository)

	// Federation instance registry backed by Neo4j
	instanceDAO := dao.NewInstanceRegistryDAO(db.Neo4jDriver)
	instanceRegistry := registry.NewInstanceRegistry(instanceDAO, config.GetString("federation.instanceId"))
	if err := instanceRegistry.Refresh(ctx); err != nil {
		logger.Warn("Initial registry refresh failed, starting with empty snapshot", zap.Error(err))
	}
	instanceRegistry.StartRefresh(ctx, config.GetDuration("federation.refreshInterval"))

	// Revocation store with cross-instance pub/sub sync
	revocationStore := revocation.NewStore(
		db.RedisClient,
		config.GetString("revocation.channel"),
		config.GetString("federation.instanceId"),
		eventBus,
	)
	revocationStore.StartSync(ctx)

	// Authorization pipeline
	pdpClient := pdp.NewHTTPClient(config.GetString("pdp.url"), config.GetDuration("pdp.timeout"))
	pepService := pep.NewPEP(pdpClient, revocationStore, config.GetDuration("pdp.decisionTTL"))
	authzEvaluator := evaluator.NewEvaluator(pepService, instanceRegistry, auditService)

	// Peer revocations invalidate locally cached decisions
	purgeOnRevocation := func(ctx context.Context, event util.Event) error {
		pepService.PurgeCache()
		return nil
	}
	eventBus.Subscribe(revocation.EventTokenRevoked, purgeOnRevocation)
	eventBus.Subscribe(revocation.EventSubjectRevoked, purgeOnRevocation)

	// Multi-KAS key router
	keyRouter := kas.NewRouter(
		kas.NewHTTPKASClient(config.GetDuration("kas.callTimeout")),
		instanceRegistry,
		kas.BreakerConfig{
			FailureThreshold: config.GetInt("kas.failureThreshold"),
			Cooldown:         config.GetDuration("kas.cooldown"),
		},
		config.GetDuration("kas.callTimeout"),
		config.GetDuration("kas.chainBudget"),
	)

	// Initialize controllers
	controllers := controller.InitializeControllers(
		authzEvaluator,
		keyRouter,
		instanceRegistry,
		revocationStore,
		auditService,
		util.NewValidationUtil(),
	)

	// Set up Gin
	engine := router.SetupRouter(
		controllers,
		config.GetInt("server.rateLimit.requests"),
		config.GetDuration("server.rateLimit.duration"),
	)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: engine,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server",
			zap.String("port", config.GetString("server.port")),
			zap.String("instanceId", config.GetString("federation.instanceId")))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exiting")
}
