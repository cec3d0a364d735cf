package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"umlexport/internal/config"
	"umlexport/internal/database"
	"umlexport/internal/emitter"
	"umlexport/internal/handlers"
	"umlexport/internal/middlewares"
	"umlexport/internal/packager"
	"umlexport/internal/repositories"
	"umlexport/internal/routes"
	"umlexport/internal/services"
	"umlexport/internal/storage"
)

func NewServer(cfg *config.Config) (*http.Server, error) {
	var diagrams services.DiagramStore
	var exports services.ExportLog

	if cfg.Database.Enabled() {
		if err := database.EnsureDatabaseExists(cfg.Database); err != nil {
			return nil, err
		}
		pool, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, err
		}
		if err := database.RunMigrations(context.Background(), pool); err != nil {
			return nil, err
		}
		diagrams = repositories.NewDiagramRepository(pool)
		exports = repositories.NewExportRepository(pool)
	} else {
		log.Warn().Msg("DB_HOST is not set; only inline exports are available")
	}

	var packagerOpts []packager.Option
	if cfg.Mirror.Enabled() {
		mirror, err := storage.NewArchiveMirror(cfg.Mirror)
		if err != nil {
			return nil, fmt.Errorf("archive mirror: %w", err)
		}
		packagerOpts = append(packagerOpts, packager.WithMirror(mirror))
		log.Info().Str("endpoint", cfg.Mirror.Endpoint).Str("bucket", cfg.Mirror.Bucket).Msg("archive mirror enabled")
	}

	em, err := emitter.New(emitter.WithWorkers(cfg.Export.Workers))
	if err != nil {
		return nil, err
	}
	pk := packager.New(packager.Config{
		WorkDir:         cfg.Export.WorkDir,
		CompressTimeout: cfg.Export.CompressTimeout,
		StreamTimeout:   cfg.Export.StreamTimeout,
	}, packagerOpts...)

	// Dependency injection
	exportService, err := services.NewExportService(diagrams, exports, em, pk, services.ExportOptions{
		StrictTypes:     cfg.Export.StrictTypes,
		FailOnAmbiguity: cfg.Export.FailOnAmbiguity,
		ModelCacheSize:  cfg.Export.ModelCacheSize,
	})
	if err != nil {
		return nil, err
	}
	exportHandler := handlers.NewExportHandler(exportService)

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middlewares.RequestID, middlewares.Logger)
	router.Use(cors.New(corsConfig(cfg.FrontendURL)))
	routes.RegisterRoutes(router, exportHandler)

	server := &http.Server{
		Addr:        cfg.Port,
		Handler:     router,
		IdleTimeout: time.Minute,
		ReadTimeout: 10 * time.Second,
		// Streaming is bounded by the export stream timeout instead.
		WriteTimeout: cfg.Export.CompressTimeout + cfg.Export.StreamTimeout + 30*time.Second,
	}

	return server, nil
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	c.AllowHeaders = append(c.AllowHeaders, "Authorization", middlewares.RequestIDHeader)
	c.ExposeHeaders = []string{"Content-Disposition", "Content-Length", middlewares.RequestIDHeader}
	return c
}
