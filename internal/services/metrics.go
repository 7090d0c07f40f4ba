package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// aiRequests counts assistance calls by type and outcome (ok|not_found|error).
	aiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documind_ai_requests_total",
			Help: "Total number of AI assistance requests.",
		},
		[]string{"assistance_type", "outcome"},
	)

	// docMutations counts successful document writes by operation.
	docMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documind_documents_mutations_total",
			Help: "Total number of document create/update/delete operations.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(aiRequests, docMutations)
}
