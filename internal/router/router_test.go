package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportSuccessResetsAndSelectsCheap(t *testing.T) {
	r := New(3)
	r.ReportFailure("x")
	r.ReportFailure("x")
	r.ReportSuccess()

	status := r.Status()
	assert.Equal(t, Cheap, status.CurrentModel)
	assert.Equal(t, 0, status.ConsecutiveFailures)
}

func TestEscalatesAtThreshold(t *testing.T) {
	r := New(3)
	for i := 0; i < 2; i++ {
		r.ReportFailure("boom")
		assert.Equal(t, Cheap, r.Current(), "should not escalate before threshold")
	}
	r.ReportFailure("boom")
	assert.Equal(t, Capable, r.Current())
	assert.Equal(t, 1, r.Status().Escalations)
}

func TestDeescalatesAfterSuccessFollowingEscalation(t *testing.T) {
	r := New(1)
	r.ReportFailure("boom")
	assert.Equal(t, Capable, r.Current())

	r.ReportSuccess()
	assert.Equal(t, Cheap, r.Current())
	assert.Equal(t, 0, r.Status().ConsecutiveFailures)
}

func TestCallCounterAppliesToModelBeforeSwitch(t *testing.T) {
	r := New(1)
	r.ReportFailure("boom") // call was on cheap, then switches to capable
	status := r.Status()
	assert.Equal(t, 1, status.CheapCalls)
	assert.Equal(t, 0, status.CapableCalls)
	assert.Equal(t, Capable, status.CurrentModel)
}
