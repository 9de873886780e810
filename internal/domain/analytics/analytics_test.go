package analytics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t.Add(10 * time.Hour)
}

func TestOverall(t *testing.T) {
	m := Overall([]InspectionFact{
		{TotalInspected: 100, DefectsFound: 3},
		{TotalInspected: 200, DefectsFound: 6},
	})
	assert.Equal(t, int64(2), m.TotalInspections)
	assert.Equal(t, int64(300), m.TotalItemsInspected)
	assert.Equal(t, int64(9), m.TotalDefectsFound)
	assert.Equal(t, "3.00", m.OverallDefectRate.StringFixed(2))

	empty := Overall(nil)
	assert.Equal(t, "0.00", empty.OverallDefectRate.StringFixed(2))
}

func TestCountBy(t *testing.T) {
	counts := CountBy([]DefectFact{
		{Type: "visual"}, {Type: "finish"}, {Type: "visual"}, {Type: "assembly"},
	}, ByType)
	require.Len(t, counts, 3)
	assert.Equal(t, Count{ID: "visual", Count: 2}, counts[0])
	assert.Equal(t, "assembly", counts[1].ID)
	assert.Equal(t, "finish", counts[2].ID)
}

func TestDailyAndMonthlyTrend(t *testing.T) {
	facts := []InspectionFact{
		{Date: day("2024-11-02"), TotalInspected: 10, DefectsFound: 1},
		{Date: day("2024-02-01"), TotalInspected: 50, DefectsFound: 5},
		{Date: day("2024-02-01"), TotalInspected: 50, DefectsFound: 0},
	}

	daily := DailyTrend(facts)
	require.Len(t, daily, 2)
	assert.Equal(t, "2024-02-01", daily[0].Period)
	assert.Equal(t, int64(2), daily[0].InspectionCount)
	assert.Equal(t, "5.00", daily[0].DefectRate.StringFixed(2))

	monthly := MonthlyTrend(facts)
	require.Len(t, monthly, 2)
	// chronological, not lexical
	assert.Equal(t, "2024-2", monthly[0].Period)
	assert.Equal(t, "2024-11", monthly[1].Period)
}

func TestTopProductRates(t *testing.T) {
	names := map[uuid.UUID]string{}
	var facts []InspectionFact
	for i := 0; i < 7; i++ {
		id := uuid.New()
		names[id] = string(rune('A' + i))
		facts = append(facts, InspectionFact{ProductID: id, TotalInspected: 100, DefectsFound: int64(i)})
	}
	facts = append(facts, InspectionFact{ProductID: uuid.New(), TotalInspected: 1, DefectsFound: 1})

	top := TopProductRates(facts, names, 5)
	require.Len(t, top, 5)
	assert.Equal(t, "G", top[0].ProductName)
	assert.True(t, top[0].DefectRate.Equal(decimal.NewFromInt(6)))
	assert.Equal(t, "C", top[4].ProductName)
}

func TestInspectorPerformances(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	people := map[uuid.UUID]Inspector{
		alice: {Name: "alice", Department: "QA"},
		bob:   {Name: "bob"},
	}
	perf := InspectorPerformances([]InspectionFact{
		{InspectorID: bob, TotalInspected: 10, DefectsFound: 1},
		{InspectorID: alice, TotalInspected: 10},
		{InspectorID: alice, TotalInspected: 30, DefectsFound: 2},
	}, people)

	require.Len(t, perf, 2)
	assert.Equal(t, "alice", perf[0].InspectorName)
	assert.Equal(t, "QA", perf[0].InspectorDepartment)
	assert.Equal(t, int64(2), perf[0].InspectionCount)
	assert.Equal(t, "20.00", perf[0].AverageInspectionSize.StringFixed(2))
	assert.Equal(t, "5.00", perf[0].DefectRate.StringFixed(2))
}

func TestAI(t *testing.T) {
	m := AI([]DefectFact{
		{DetectedBy: "ai", AIConfidence: 90},
		{DetectedBy: "manual"},
		{DetectedBy: "ai", AIConfidence: 65.5},
	})
	assert.Equal(t, int64(2), m.TotalDetections)
	assert.Equal(t, "77.75", m.AvgConfidence.StringFixed(2))
	assert.Equal(t, "65.50", m.MinConfidence.StringFixed(2))
	assert.Equal(t, "90.00", m.MaxConfidence.StringFixed(2))

	assert.Equal(t, "0.00", AI(nil).AvgConfidence.StringFixed(2))
}

func TestSeverityTrend(t *testing.T) {
	trend := SeverityTrend([]DefectFact{
		{CreatedAt: day("2024-03-02"), Severity: "critical"},
		{CreatedAt: day("2024-03-01"), Severity: "minor"},
		{CreatedAt: day("2024-03-02"), Severity: "major"},
	})
	require.Len(t, trend, 2)
	assert.Equal(t, SeverityTrendPoint{Date: "2024-03-02", Count: 2, Critical: 1, Major: 1}, trend[1])
}

func TestPeriodStart(t *testing.T) {
	// Wednesday
	now := time.Date(2024, time.May, 15, 14, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, time.May, 15, 0, 0, 0, 0, time.UTC), PeriodDay.Start(now))
	assert.Equal(t, time.Date(2024, time.May, 12, 0, 0, 0, 0, time.UTC), PeriodWeek.Start(now))
	assert.Equal(t, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), PeriodMonth.Start(now))
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), PeriodYear.Start(now))
	assert.Equal(t, PeriodWeek, ParsePeriod("fortnight"))
}

func TestBuildStatusReport(t *testing.T) {
	r := BuildStatusReport(PeriodYear, []InspectionFact{
		{Date: day("2024-01-05"), Status: "failed"},
		{Date: day("2024-01-20"), Status: "completed"},
		{Date: day("2024-03-01"), Status: "completed"},
	})
	assert.Equal(t, int64(3), r.Total)
	assert.Equal(t, int64(0), r.StatusCounts["pending"])
	assert.Equal(t, int64(2), r.StatusCounts["completed"])
	require.Len(t, r.DailyBreakdown, 2)
	assert.Equal(t, "2024-01", r.DailyBreakdown[0].Date)
	assert.Equal(t, int64(2), r.DailyBreakdown[0].TotalCount)
	assert.Equal(t, []StatusCount{{Status: "completed", Count: 1}, {Status: "failed", Count: 1}}, r.DailyBreakdown[0].Statuses)
}

func TestQueryCacheKey(t *testing.T) {
	id := uuid.New()
	a := Query{ProductID: &id}
	b := Query{}
	assert.NotEqual(t, a.CacheKey(), b.CacheKey())
	assert.Equal(t, "analytics:quality", b.CacheKey())
}
