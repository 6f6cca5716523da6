package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Actions counts check-in/check-out attempts by action and outcome.
	Actions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendgw_actions_total",
		Help: "Attendance actions processed by the gateway.",
	}, []string{"action", "result"})

	// GeoDowngrades counts sessions whose geo capability was downgraded
	// after the server rejected location fields.
	GeoDowngrades = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendgw_geo_downgrades_total",
		Help: "Geo capability downgrades discovered against the backend schema.",
	})

	// RPCFailures counts failed backend calls by failure kind.
	RPCFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendgw_rpc_failures_total",
		Help: "Failed Odoo RPC calls by failure kind.",
	}, []string{"kind"})

	// PhotoUploads counts worker photo uploads by outcome.
	PhotoUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendgw_photo_uploads_total",
		Help: "Face photo uploads processed by the worker.",
	}, []string{"result"})
)
