// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	procTerminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_proc_terminate_total",
		Help: "Signals sent to capture device processes by signal and result",
	}, []string{"signal", "result"})

	procWaitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_proc_wait_total",
		Help: "Capture device process exit outcomes",
	}, []string{"outcome"})
)

// IncProcTerminate records a termination signal outcome.
func IncProcTerminate(signal, result string) {
	procTerminateTotal.WithLabelValues(signal, result).Inc()
}

// IncProcWait records a process exit outcome.
func IncProcWait(outcome string) {
	procWaitTotal.WithLabelValues(outcome).Inc()
}
