package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"CimplrCorpSaas/api/analysis"
	"CimplrCorpSaas/internal/appmanager"
	"CimplrCorpSaas/internal/artifacts"
	"CimplrCorpSaas/internal/config"
	"CimplrCorpSaas/internal/extractor"
	"CimplrCorpSaas/internal/llmclassifier"
	"CimplrCorpSaas/internal/orchestrator"
	"CimplrCorpSaas/internal/sessionregistry"
	"CimplrCorpSaas/internal/store"
)

func buildExtractor(cfg *config.Config) extractor.Extractor {
	if len(cfg.ExtractorURLs) > 0 {
		return extractor.NewHTTPExtractor(cfg.ExtractorURLs, config.DefaultExtractorTimeout)
	}
	if len(cfg.ExtractorPaths) > 0 {
		return extractor.NewSubprocessExtractor(cfg.ExtractorPaths[0], config.DefaultExtractorTimeout)
	}
	log.Fatal("no PDF_EXTRACTOR_URL or PDF_EXTRACTOR_PATH configured")
	return nil
}

func buildArtifactStore(cfg *config.Config) artifacts.Store {
	if cfg.AWSS3Bucket != "" {
		return artifacts.NewS3Store(cfg.AWSS3Bucket, cfg.AWSRegion)
	}
	return artifacts.NewLocalStore(cfg.LocalArtifactDir)
}

func buildClassifier(ctx context.Context, cfg *config.Config) orchestrator.LLMClassifier {
	if cfg.LLMAPIKey == "" {
		return nil
	}
	classifier, err := llmclassifier.New(ctx, cfg.LLMAPIKey, cfg.LLMModel)
	if err != nil {
		log.Fatal("failed to build LLM classifier:", err)
	}
	return classifier
}

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx := context.Background()
	st, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to store:", err)
	}

	registry := sessionregistry.New(st)
	ext := buildExtractor(cfg)
	classifier := buildClassifier(ctx, cfg)
	artifactStore := buildArtifactStore(cfg)

	orch := orchestrator.New(st, registry, ext, classifier, artifactStore, cfg.LLMTimeout(), cfg.Currency)
	reconciler := orchestrator.NewReconciler(orch, cfg.ReconcileSchedule, config.DefaultReconcileStaleAfter)

	appmanager.SetAnalysisDeps(analysis.Deps{
		Orchestrator:    orch,
		Store:           st,
		Registry:        registry,
		Port:            cfg.Port,
		MaxFileSize:     cfg.MaxFileSize,
		CORSAllowList:   cfg.CORSAllowList,
		ShutdownTimeout: config.DefaultShutdownTimeout,
	})
	appmanager.SetReconciler(reconciler)

	manager := appmanager.NewAppManager()

	servicesCfg, err := appmanager.LoadServiceSequence("services.yaml")
	if err != nil {
		log.Fatal("failed to load service sequence:", err)
	}
	manager.AutoRegisterServices(servicesCfg)

	if err := manager.StartAll(); err != nil {
		log.Fatal("failed to start:", err)
	}
	registry.StartHeartbeat()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	registry.StopHeartbeat()
	if err := manager.StopAll(); err != nil {
		log.Fatal("failed to stop:", err)
	}
	st.Close()
}
