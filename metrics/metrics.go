package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "scamazon"

var (
	// Requests HTTP请求计数
	Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})

	// LatencyMS HTTP请求耗时
	LatencyMS = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	// Checkouts 结账结果计数: success | empty | conflict | invalid | error
	Checkouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "checkouts_total",
		Help:      "Checkout attempts by outcome.",
	}, []string{"result"})

	// OrdersCreated 结账生成的订单数
	OrdersCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "created_total",
		Help:      "Orders created by checkout.",
	})

	// Transitions 退货/发货结果计数
	Transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "transitions_total",
		Help:      "Return and delivery attempts by outcome.",
	}, []string{"action", "result"})
)

func init() {
	prometheus.MustRegister(Requests, LatencyMS, Checkouts, OrdersCreated, Transitions)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
