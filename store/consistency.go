package store

import "context"

// ConsistencyLevel defines the consistency requirements for reads outside of a transaction.
type ConsistencyLevel int

const (
	// StrongConsistency reads from the primary database. This is the default.
	StrongConsistency ConsistencyLevel = iota

	// EventualConsistency allows reads from a replica, if one is configured.
	// Suitable for listings and reports that can tolerate slightly stale data.
	EventualConsistency
)

type contextKey string

// ConsistencyLevelKey is the context key used to store consistency level preferences.
const ConsistencyLevelKey contextKey = "store.consistency_level"

// WithStrongConsistency returns a context that makes reads go to the primary database.
func WithStrongConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, StrongConsistency)
}

// WithEventualConsistency returns a context that allows reads from a replica database.
//
// Example usage:
//
//	ctx = store.WithEventualConsistency(ctx)
//	loans, err := s.FindLoans(ctx, store.LoanFilter{Statuses: core.ActiveLoanStatuses})
func WithEventualConsistency(ctx context.Context) context.Context {
	return context.WithValue(ctx, ConsistencyLevelKey, EventualConsistency)
}

// GetConsistencyLevel extracts the consistency level from the context, defaulting to StrongConsistency.
// Transactions always run on the primary regardless of this setting.
func GetConsistencyLevel(ctx context.Context) ConsistencyLevel {
	if level, ok := ctx.Value(ConsistencyLevelKey).(ConsistencyLevel); ok {
		return level
	}

	return StrongConsistency
}

func (c ConsistencyLevel) String() string {
	switch c {
	case StrongConsistency:
		return "strong"
	case EventualConsistency:
		return "eventual"
	default:
		return "unknown"
	}
}
