package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/pos-inventario/internal/application/offlinequeue"
	"github.com/jhoicas/pos-inventario/internal/application/sales"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	SalesUC    *sales.UseCase
	Queue      *offlinequeue.Queue
	Stock      StockService
	LocationID string
}

// Router registra las rutas de la API local del terminal. Escucha solo en la red del local
// (ver HTTP_HOST), por eso no hay autenticación.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	salesHandler := NewSalesHandler(deps.SalesUC, deps.LocationID)
	api.Post("/sales", salesHandler.Checkout)
	api.Post("/refunds", salesHandler.Refund)

	stock := api.Group("/stock")
	stockHandler := NewStockHandler(deps.Stock)
	stock.Post("/transfers", stockHandler.Transfer)
	stock.Get("/:location/:item", stockHandler.Get)
	api.Get("/orders/:id/movements", stockHandler.OrderMovements)

	queue := api.Group("/queue")
	queueHandler := NewQueueHandler(deps.Queue)
	queue.Get("/", queueHandler.List)
	queue.Get("/stats", queueHandler.Stats)
	queue.Post("/sync", queueHandler.Sync)
	queue.Post("/:id/printed", queueHandler.MarkPrinted)
	queue.Delete("/:id", queueHandler.Remove)
}
