package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hgw_turns_total",
			Help: "Inbound turn lifecycle counter by stage and channel",
		},
		[]string{"stage", "channel"}, // received|duplicate|replied|fallback|failed , whatsapp|sms
	)

	DeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hgw_deliveries_total",
			Help: "Broadcast delivery outcomes by status and channel",
		},
		[]string{"status", "channel"}, // delivered|failed|rate_limited , whatsapp|sms
	)

	BroadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hgw_broadcasts_total",
			Help: "Broadcast calls by result",
		},
		[]string{"result"}, // completed|rejected|unavailable
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		TurnsTotal,
		DeliveriesTotal,
		BroadcastsTotal,
	)
}
