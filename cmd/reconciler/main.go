package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hospiq/scheduling/internal/adapters/database"
	"github.com/hospiq/scheduling/internal/adapters/events"
	"github.com/hospiq/scheduling/internal/application/services"
	"github.com/hospiq/scheduling/internal/domain/entities"
	"github.com/hospiq/scheduling/internal/domain/providers"
	"github.com/hospiq/scheduling/internal/infrastructure/clients/postgres"
	redisclient "github.com/hospiq/scheduling/internal/infrastructure/clients/redis"
	"github.com/hospiq/scheduling/internal/infrastructure/observability"
	"github.com/hospiq/scheduling/pkg/config"
)

func main() {
	var windowDays int
	var drainHistory bool

	flag.IntVar(&windowDays, "window-days", 14, "How many days ahead to sweep for double bookings")
	flag.BoolVar(&drainHistory, "drain-history", false, "Also run the history bus writer while sweeping")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	observability.InitLogger(cfg.Service.Name+"-reconciler", cfg.Service.Environment)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pgClient.Close()

	appointmentRepo := database.NewAppointmentAdapter(pgClient)
	availabilityRepo := database.NewAvailabilityAdapter(pgClient)
	doctorRepo := database.NewDoctorAdapter(pgClient)
	serviceRepo := database.NewServiceAdapter(pgClient)
	historyRepo := database.NewHistoryAdapter(pgClient)

	clock := providers.NewRealClock()

	var historyBus providers.HistoryBus
	if drainHistory {
		redisCli, err := redisclient.NewClient(&cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer redisCli.Close()
		historyBus = events.NewRedisHistoryBus(redisCli)
		defer historyBus.Close()
	}

	historySvc := services.NewHistoryService(historyRepo, historyBus, clock)
	availabilitySvc := services.NewAvailabilityService(availabilityRepo, clock)
	conflictSvc := services.NewConflictService(appointmentRepo)
	rankingSvc := services.NewRankingService(doctorRepo, serviceRepo)
	assignmentSvc := services.NewAssignmentService(
		rankingSvc, availabilitySvc, conflictSvc, clock,
		time.Duration(cfg.Scheduling.LookaheadDays)*24*time.Hour,
	)
	reconciler := services.NewReconciliationService(appointmentRepo, doctorRepo, assignmentSvc, historySvc, clock)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if drainHistory {
		go func() {
			if err := historySvc.RunWriter(ctx); err != nil {
				log.Warn().Err(err).Msg("history writer stopped")
			}
		}()
	}

	now := clock.Now()
	window := entities.NewInterval(now, now.AddDate(0, 0, windowDays))

	start := time.Now()
	summary, err := reconciler.Sweep(ctx, window)
	if err != nil {
		log.Fatal().Err(err).Msg("reconciliation sweep failed")
	}

	log.Info().
		Dur("elapsed", time.Since(start)).
		Int("doctors_checked", summary.DoctorsChecked).
		Int("conflicts_found", summary.ConflictsFound).
		Int("demoted", summary.Demoted).
		Msg("reconciliation sweep complete")
}
