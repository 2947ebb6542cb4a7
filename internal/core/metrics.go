package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	promNumValidators = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "stakepool",
		Name:      "validator_count",
	})
	promNumPools = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "stakepool",
		Name:      "pool_count",
	})
	promStakerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "stakepool",
		Name:      "staker_count",
	})
	promTotalStaked = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "stakepool",
		Name:      "staked_total_algo",
		Help:      "total algo currently staked across all pools, in whole units",
	})
	promEpochPayouts = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "stakepool",
		Name:      "epoch_payouts_total",
	})
	promCommissionPaid = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "stakepool",
		Name:      "commission_paid_total_algo",
	})
)
