package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	KitchenSends = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "kitchen_sends_total",
		Help:      "Batches of lines sent to the kitchen.",
	})

	SalesFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "sales_finalized_total",
		Help:      "Payments finalized, by payment method.",
	}, []string{"method"})

	OrdersVoided = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "orders_voided_total",
		Help:      "Orders voided with authorization.",
	})

	LedgerQueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "ledger_queued_total",
		Help:      "Sales written to the local outbox because the ledger was unavailable.",
	})

	LedgerSynced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "ledger_synced_total",
		Help:      "Outbox entries flushed to the ledger.",
	})

	TicketFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "ticket_dispatch_failures_total",
		Help:      "Tickets that could not be dispatched, by kind.",
	}, []string{"kind"})

	TicketsPrinted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "tickets_printed_total",
		Help:      "Tickets delivered to the print sink, by kind.",
	}, []string{"kind"})

	InventorySkips = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "inventory_skipped_total",
		Help:      "Recipe components skipped during stock deduction.",
	})

	StaleOrderRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "stale_order_retries_total",
		Help:      "Order operations replayed because another terminal saved first.",
	})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pos",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pos",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
)

// Middleware records request count and latency labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func Handler() http.Handler { return promhttp.Handler() }
