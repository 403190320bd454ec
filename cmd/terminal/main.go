package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jhoicas/pos-inventario/internal/application/inventory"
	"github.com/jhoicas/pos-inventario/internal/application/offlinequeue"
	"github.com/jhoicas/pos-inventario/internal/application/sales"
	"github.com/jhoicas/pos-inventario/internal/infrastructure/localstore"
	"github.com/jhoicas/pos-inventario/internal/infrastructure/natsbus"
	"github.com/jhoicas/pos-inventario/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/pos-inventario/internal/interfaces/http"
	"github.com/jhoicas/pos-inventario/pkg/config"
	"github.com/jhoicas/pos-inventario/pkg/logger"
	"github.com/spf13/afero"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("location_id", cfg.App.LocationID).
		Msg("iniciando terminal")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("configuración de PostgreSQL")
	}
	defer pool.Close()

	// Sin almacén central se arranca igual: las ventas van a la cola offline.
	if err := postgres.Ping(ctx, pool); err != nil {
		log.Warn().Err(err).Msg("almacén central no disponible, arrancando offline")
	} else if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migración del esquema")
	}

	bus, err := natsbus.Connect(cfg.NATS.URL, cfg.App.Name+"-"+cfg.App.LocationID, log)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a NATS")
	}
	defer func() { _ = bus.Close() }()

	recipeRepo := postgres.NewRecipeRepository(pool)
	stockRepo := postgres.NewStockRepository(pool)
	movementRepo := postgres.NewStockMovementRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	ledger := inventory.NewLedgerService(txRunner, stockRepo, movementRepo, cfg.Ledger.QuantityScale)
	consumption := inventory.NewConsumptionService(recipeRepo, ledger, log,
		inventory.WithMovementPublisher(bus, cfg.NATS.MovementsSubject),
	)
	replayer := offlinequeue.NewReplayer(orderRepo, consumption)

	store, err := localstore.NewFileStore(afero.NewOsFs(), cfg.Queue.Dir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento local de la cola")
	}
	queue := offlinequeue.New(store, replayer, offlinequeue.Config{
		OrderTimeout:  cfg.Queue.OrderTimeout,
		Parallelism:   cfg.Queue.Parallelism,
		RetryInterval: cfg.Queue.RetryInterval,
	}, log)
	salesUC := sales.NewUseCase(bus, replayer, queue, consumption, cfg.Queue.OrderTimeout, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		st, err := queue.Stats(c.UserContext())
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"status": "error", "error": err.Error()})
		}
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  cfg.App.Name,
			"location": cfg.App.LocationID,
			"online":   bus.Online(),
			"pending":  st.Pending,
		})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		SalesUC:    salesUC,
		Queue:      queue,
		Stock:      ledger,
		LocationID: cfg.App.LocationID,
	})

	syncDone := make(chan struct{})
	go func() {
		defer close(syncDone)
		_ = queue.Run(ctx, bus)
	}()

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	select {
	case <-syncDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("la pasada de sincronización no terminó a tiempo; los pendientes siguen en disco")
	}

	log.Info().Msg("terminal detenido")
}
