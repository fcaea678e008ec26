package reportspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllFilterOpsAreValid(t *testing.T) {
	for _, op := range AllFilterOps() {
		assert.True(t, op.IsValid())
	}
}

func TestUnknownFilterOpIsInvalid(t *testing.T) {
	assert.False(t, FilterOp("NOT_AN_OP").IsValid())
}

func TestFilterValuesWrapsScalar(t *testing.T) {
	f := Filter{Column: "orders.status", Op: OpEquals, Value: "paid"}
	assert.Equal(t, []any{"paid"}, f.Values())
}

func TestFilterValuesPassesThroughSlice(t *testing.T) {
	f := Filter{Column: "orders.status", Op: OpIn, Value: []any{"paid", "refunded"}}
	assert.Equal(t, []any{"paid", "refunded"}, f.Values())
}

func TestValidateModeHintsRejectsBothSet(t *testing.T) {
	s := Spec{RawSQL: "SELECT 1", BaseSQL: "SELECT 2"}
	assert.Error(t, s.ValidateModeHints())
}

func TestValidateModeHintsAllowsOneOrNeither(t *testing.T) {
	assert.NoError(t, Spec{}.ValidateModeHints())
	assert.NoError(t, Spec{RawSQL: "SELECT 1"}.ValidateModeHints())
	assert.NoError(t, Spec{BaseSQL: "SELECT 1"}.ValidateModeHints())
}
