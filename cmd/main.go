package main

import (
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/ports/outbound"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/application/services"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/config"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/infrastructure/adapters"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/infrastructure/gin_interface/controllers"
	"github.com/tmansmann0/PhoneLeadResponseAutomator/middleware"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatal().Err(err).Msg("Failed to load .env file")
	}

	loggingConfig, err := config.GetLoggingConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get logging config")
	}

	level, err := zerolog.ParseLevel(loggingConfig.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	serverConfig, err := config.GetServerConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get server config")
	}

	pipelineConfig, err := config.GetPipelineConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get pipeline config")
	}

	gptConfig, err := config.GetGptConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get gpt config")
	}

	elevenLabsConfig, err := config.GetElevenLabsConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get eleven labs config")
	}

	s3Config, err := config.GetS3Config()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get s3 config")
	}

	gatewayConfig, err := config.GetGatewayConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to get gateway config")
	}

	zeroLogger := adapters.NewZerologWrapperWithWriter(adapters.NewLogWriter(loggingConfig))

	panicHandler := func(p interface{}) {
		zeroLogger.Error(fmt.Errorf("%v", p), "Panic in worker pool")
	}

	workerPool, err := ants.NewPool(serverConfig.PipelineWorkers, ants.WithPanicHandler(panicHandler))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create worker pool")
	}
	defer workerPool.Release()

	// Background cleanup never queues behind pipeline runs.
	cleanupPool, err := ants.NewPool(serverConfig.PipelineWorkers, ants.WithNonblocking(true), ants.WithPanicHandler(panicHandler))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create cleanup pool")
	}
	defer cleanupPool.Release()

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            aws.Config{Region: aws.String(s3Config.Region)},
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create aws session")
	}

	var submissionStore outbound.SubmissionStorePort
	switch serverConfig.RecordStore {
	case config.RecordStoreSqlite:
		sqliteStore, err := adapters.OpenSqliteSubmissionStore(config.GetSqliteConfig().Path, zeroLogger)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open sqlite submission log")
		}
		defer sqliteStore.Close()
		submissionStore = sqliteStore
	default:
		dynamoConfig, err := config.GetDynamoConfig()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to get dynamo config")
		}
		submissionStore = adapters.NewDynamoSubmissionStore(zeroLogger, dynamodb.New(sess), dynamoConfig)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	httpClient := &http.Client{Timeout: pipelineConfig.StageTimeout + 5*time.Second}
	contentFetcher := adapters.NewContentFetcher(zeroLogger, httpClient)

	pipeline := services.NewSubmissionPipelineOrchestrator(zeroLogger, pipelineConfig, services.PipelineDependencies{
		ScriptGenerator:    adapters.NewScriptGenerator(gptConfig, cleanupPool, zeroLogger),
		SpeechSynthesizer:  adapters.NewSpeechSynthesizer(contentFetcher, elevenLabsConfig, zeroLogger),
		AudioSpool:         adapters.NewFileAudioSpool(pipelineConfig.SpoolDir, zeroLogger),
		AudioPublisher:     adapters.NewS3AudioPublisher(s3.New(sess), s3Config, zeroLogger),
		DeliveryDispatcher: adapters.NewSlybroadcastDispatcher(contentFetcher, gatewayConfig, zeroLogger),
		SubmissionStore:    submissionStore,
		DedupRegistry:      adapters.NewMemoryDedupRegistry(pipelineConfig.DedupCooldown),
		Metrics:            adapters.NewPrometheusPipelineMetrics(registry),
		WorkerPool:         cleanupPool,
	})

	spoolSweeper := adapters.NewSpoolSweeper(pipelineConfig.SpoolDir, pipelineConfig.SpoolMaxAge, zeroLogger)
	if err := spoolSweeper.Start(pipelineConfig.SpoolSweepSchedule); err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule spool sweeper")
	}
	defer spoolSweeper.Stop()

	submissionController := controllers.NewSubmissionController(zeroLogger, workerPool, pipeline, serverConfig.CookieMaxAge)
	opsController := controllers.NewOpsController(registry)

	router := gin.New()
	router.Use(gin.Recovery())

	err = router.SetTrustedProxies(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set trusted proxies!")
	}

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RequestLoggerMiddleware(zeroLogger))

	submissionController.RegisterRoutes(router)
	opsController.RegisterRoutes(router)

	zeroLogger.InfoWithFields("Starting server", map[string]interface{}{
		"address":      serverConfig.Address,
		"record_store": serverConfig.RecordStore,
	})
	err = router.Run(serverConfig.Address)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start server!")
	}
}
