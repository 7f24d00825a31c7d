// Package emergency provides the business boundary for beacon's alert
// workflow. It defines the Service (trigger orchestration, alert lifecycle),
// Fanout (concurrent channel dispatch with deterministic aggregation), Store
// interface (persistence), and domain models.
package emergency
