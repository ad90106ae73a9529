package routes

import (
	"net/http"

	"parking-bknd/internal/config"
	"parking-bknd/internal/engine"
	"parking-bknd/internal/handlers"
	"parking-bknd/internal/logger"
	"parking-bknd/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/uptrace/bun"
)

func NewRouter(db *bun.DB, cfg *config.Config, logr *logger.Logger) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// CORS middleware with config
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	enforcer := engine.NewEnforcer(engine.Thresholds{
		BayZoneOverlapRatio: cfg.BayZoneOverlapRatio,
		SensorBayMeters:     cfg.SensorBayMeters,
		ViolationBayMeters:  cfg.ViolationBayMeters,
	})
	generator := engine.NewGenerator(engine.LayoutConfig{
		BayWidthM:    cfg.BayWidthMeters,
		BayLengthM:   cfg.BayLengthMeters,
		BaySpacingM:  cfg.BaySpacingMeters,
		AvgBayAreaM2: cfg.AvgBayAreaSqm,
		MinBays:      cfg.MinBayCount,
		MaxBays:      cfg.MaxBayCount,
		// Generation filters with the same ratio the enforcer applies, so a
		// generated bay never fails the persistence-time containment check.
		MinZoneOverlap: cfg.BayZoneOverlapRatio,
	})

	zoneSvc := services.NewZoneService(db, enforcer, generator)
	baySvc := services.NewBayService(db, enforcer)
	sensorSvc := services.NewSensorService(db, enforcer)
	violationSvc := services.NewViolationService(db, enforcer)
	terminalSvc := services.NewTerminalService(db)
	streetSvc := services.NewStreetService(db)
	poiSvc := services.NewPOIService(db)
	importSvc := services.NewImportService(db)
	analysisSvc := services.NewAnalysisService(db)

	zoneHandler := handlers.NewZoneHandler(zoneSvc, logr.Logger)
	bayHandler := handlers.NewBayHandler(baySvc, logr.Logger)
	sensorHandler := handlers.NewSensorHandler(sensorSvc, logr.Logger)
	violationHandler := handlers.NewViolationHandler(violationSvc, logr.Logger)
	terminalHandler := handlers.NewTerminalHandler(terminalSvc, logr.Logger)
	streetHandler := handlers.NewStreetHandler(streetSvc, logr.Logger)
	poiHandler := handlers.NewPOIHandler(poiSvc, logr.Logger)
	importHandler := handlers.NewImportHandler(importSvc, logr.Logger)
	analysisHandler := handlers.NewAnalysisHandler(analysisSvc, logr.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("ok"))
		if err != nil {
			return
		}
	})

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/zones", func(r chi.Router) {
			r.Get("/", zoneHandler.ListZones)
			r.Post("/", zoneHandler.CreateZone)
			r.Get("/lookup", zoneHandler.ContainingZones)

			r.Get("/{id}", zoneHandler.GetZone)
			r.Put("/{id}", zoneHandler.UpdateZone)
			r.Delete("/{id}", zoneHandler.DeleteZone)
			r.Post("/{id}/generate-bays", zoneHandler.GenerateBays)
			r.Get("/{id}/occupancy", zoneHandler.Occupancy)
		})

		r.Route("/bays", func(r chi.Router) {
			r.Get("/", bayHandler.ListBays)
			r.Post("/", bayHandler.CreateBay)
			r.Get("/nearby", bayHandler.Nearby)

			r.Get("/{id}", bayHandler.GetBay)
			r.Put("/{id}", bayHandler.UpdateBay)
			r.Patch("/{id}/status", bayHandler.SetStatus)
		})

		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", sensorHandler.ListSensors)
			r.Post("/", sensorHandler.CreateSensor)
			r.Get("/{id}", sensorHandler.GetSensor)
			r.Put("/{id}", sensorHandler.UpdateSensor)
			r.Delete("/{id}", sensorHandler.DeleteSensor)
		})

		r.Route("/violations", func(r chi.Router) {
			r.Get("/", violationHandler.ListViolations)
			r.Post("/", violationHandler.IssueViolation)
			r.Get("/{id}", violationHandler.GetViolation)
			r.Put("/{id}", violationHandler.UpdateViolation)
			r.Delete("/{id}", violationHandler.DeleteViolation)
		})

		r.Route("/terminals", func(r chi.Router) {
			r.Get("/", terminalHandler.ListTerminals)
			r.Post("/", terminalHandler.CreateTerminal)
			r.Get("/{id}", terminalHandler.GetTerminal)
			r.Put("/{id}", terminalHandler.UpdateTerminal)
			r.Delete("/{id}", terminalHandler.DeleteTerminal)
		})

		r.Route("/streets", func(r chi.Router) {
			r.Get("/", streetHandler.ListStreets)
			r.Post("/", streetHandler.CreateStreet)
			r.Get("/{id}", streetHandler.GetStreet)
			r.Put("/{id}", streetHandler.UpdateStreet)
			r.Delete("/{id}", streetHandler.DeleteStreet)
		})

		r.Route("/pois", func(r chi.Router) {
			r.Get("/", poiHandler.ListPOIs)
			r.Post("/", poiHandler.CreatePOI)
			r.Get("/{id}", poiHandler.GetPOI)
			r.Delete("/{id}", poiHandler.DeletePOI)
		})

		r.Route("/import", func(r chi.Router) {
			r.Get("/log", importHandler.QueryLog)
			r.Post("/{source}", importHandler.ImportBatch)
		})

		r.Route("/analysis", func(r chi.Router) {
			r.Get("/occupancy-heatmap", analysisHandler.OccupancyHeatmap)
			r.Get("/occupancy-grid", analysisHandler.OccupancyGrid)
			r.Get("/violation-hotspots", analysisHandler.ViolationHotspots)
			r.Get("/accessibility", analysisHandler.Accessibility)
			r.Get("/dashboard", analysisHandler.Dashboard)
		})

	})

	return r
}
