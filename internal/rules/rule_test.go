package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cdtdelta/logweave/internal/model"
)

func eventSet(t *testing.T, events ...string) *model.RecordSet {
	t.Helper()
	rows := make([]model.Record, len(events))
	for i, ev := range events {
		rows[i] = model.Record{ev}
	}
	return logSet(t, []string{"event"}, rows...)
}

func idleRunning() *StateRule {
	return &StateRule{
		Initial: 0,
		States: []State{
			{Name: "Idle", Transitions: []Transition{
				{Target: 1, Conditions: Guard{{{"event", Equals, "start"}}}},
			}},
			{Name: "Running", Transitions: []Transition{
				{Target: 0, Conditions: Guard{{{"event", Equals, "stop"}}}},
			}},
		},
	}
}

// --- Flag Rule Tests ---

func TestFlagRulePrecedence(t *testing.T) {
	fr := &FlagRule{
		DefaultValue: "none",
		Flags: []Flag{
			{Name: "A", Conditions: Guard{{{"level", Equals, "error"}}}},
			{Name: "B", Conditions: Guard{{{"level", Contains, "err"}}}},
		},
	}
	rs := logSet(t, []string{"level"}, model.Record{"error"}, model.Record{"stderr"}, model.Record{"info"})

	assert.Equal(t, []string{"A", "B", "none"}, fr.Evaluate(rs))
}

func TestFlagRuleOutputDomain(t *testing.T) {
	fr := &FlagRule{
		DefaultValue: "other",
		Flags: []Flag{
			{Name: "net", Conditions: Guard{{{"msg", RegexMatch, `conn(ect|ection)`}}}},
			{Name: "disk", Conditions: Guard{{{"msg", Contains, "disk"}}, {{"msg", Contains, "io"}}}},
			{Name: "broken", Conditions: Guard{{{"msg", RegexMatch, `(`}}}},
		},
	}
	rs := logSet(t, []string{"msg"},
		model.Record{"connection reset"}, model.Record{"disk full"}, model.Record{"io wait"},
		model.Record{""}, model.Record{"("}, model.Record{"unrelated"})

	allowed := map[string]bool{"other": true, "net": true, "disk": true, "broken": true}
	got := fr.Evaluate(rs)
	require.Len(t, got, rs.Len())
	for i, v := range got {
		assert.True(t, allowed[v], "row %d produced %q", i, v)
	}
	assert.Equal(t, []string{"net", "disk", "disk", "other", "other", "other"}, got)
}

func TestFlagRuleNoFlags(t *testing.T) {
	fr := &FlagRule{DefaultValue: "n/a"}
	rs := eventSet(t, "a", "b")
	assert.Equal(t, []string{"n/a", "n/a"}, fr.Evaluate(rs))
}

// --- State Rule Tests ---

func TestStateRuleCarriesState(t *testing.T) {
	rs := eventSet(t, "start", "tick", "stop", "tick")
	assert.Equal(t, []string{"Running", "Running", "Idle", "Idle"}, idleRunning().Evaluate(rs))
}

func TestStateRuleFirstTransitionWins(t *testing.T) {
	sr := &StateRule{
		States: []State{
			{Name: "S0", Transitions: []Transition{
				{Target: 1, Conditions: Guard{{{"event", StartsWith, "go"}}}},
				{Target: 2, Conditions: Guard{{{"event", Equals, "go"}}}},
			}},
			{Name: "S1"},
			{Name: "S2"},
		},
	}
	rs := eventSet(t, "x", "go", "go")
	assert.Equal(t, []string{"S0", "S1", "S1"}, sr.Evaluate(rs))
}

func TestStateRuleIsRepeatable(t *testing.T) {
	rs := eventSet(t, "start", "stop", "start")
	sr := idleRunning()
	first := sr.Evaluate(rs)
	second := sr.Evaluate(rs)
	assert.Equal(t, first, second)
}

func TestStateRuleDegenerate(t *testing.T) {
	rs := eventSet(t, "a", "b")
	assert.Equal(t, []string{"", ""}, (&StateRule{}).Evaluate(rs))

	empty := model.NewRecordSet([]model.Header{{Name: "event"}}, nil)
	assert.Empty(t, idleRunning().Evaluate(empty))
}

func TestRuleNilBody(t *testing.T) {
	rs := eventSet(t, "a")
	assert.Equal(t, []string{""}, Rule{Column: "x"}.Evaluate(rs))
}
