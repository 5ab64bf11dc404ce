package oteladapters_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/library-circulation-go/circulation"
	"github.com/AntonStoeckl/library-circulation-go/core"
	"github.com/AntonStoeckl/library-circulation-go/store/memengine"
	. "github.com/AntonStoeckl/library-circulation-go/testutil/helper" //nolint:revive
)

func Test_Coordinator_WithOTelAdapters_TracesAndMeasuresOperations(t *testing.T) {
	// arrange
	tracing, exporter := givenTracingCollector(t)
	metrics, reader := givenMetricsCollector(t)

	coordinator, err := circulation.New(
		memengine.NewStore(),
		NewFixedClock(time.Date(2024, time.March, 1, 10, 30, 0, 0, time.UTC)),
		circulation.DefaultPolicy(),
		circulation.WithTracing(tracing),
		circulation.WithMetrics(metrics),
	)
	require.NoError(t, err, "error in arranging test data")

	ctx := context.Background()
	user := GivenUserWasRegistered(t, ctx, coordinator)
	book := GivenBookWasAdded(t, ctx, coordinator, 1)
	member := GivenMemberWasRegistered(t, ctx, coordinator, core.MembershipBasic)
	GivenLoanWasCreated(t, ctx, coordinator, member.ID, book.ID, user.ID)
	other := GivenMemberWasRegistered(t, ctx, coordinator, core.MembershipBasic)

	// act
	_, err = coordinator.CreateLoan(ctx, other.ID, book.ID, user.ID)

	// assert
	require.ErrorIs(t, err, core.ErrPolicyViolation)

	var createLoanSpans []string
	for _, span := range exporter.GetSpans() {
		if span.Name != circulation.SpanNamePrefix+circulation.OpCreateLoan {
			continue
		}

		assert.Equal(t, codes.Ok, span.Status.Code, "rejections are not span errors")

		for _, attr := range span.Attributes {
			if string(attr.Key) == circulation.LogAttrOutcome {
				createLoanSpans = append(createLoanSpans, attr.Value.AsString())
			}
		}
	}
	assert.ElementsMatch(t, []string{circulation.OutcomeSuccess, circulation.OutcomeRejected}, createLoanSpans)

	calls := findMetric[metricdata.Sum[int64]](t, reader, circulation.OperationCallsMetric)
	var total int64
	for _, dataPoint := range calls.DataPoints {
		total += dataPoint.Value
	}
	assert.Equal(t, int64(6), total, "one call per operation: user, book, two members, two loans")
}
