package repairflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskforge/servicedesk/internal/domain"
)

func ts(t time.Time) *time.Time { return &t }

func TestCurrentStageAndNextAction(t *testing.T) {
	now := time.Now()

	t.Run("fresh record starts at pickup", func(t *testing.T) {
		d := &domain.RepairDetails{}
		assert.Equal(t, StagePickup, CurrentStage(d))
		action := NextAction(d)
		require.NotNil(t, action)
		assert.Equal(t, "Confirm Pickup", action.Label)
	})

	t.Run("pickup set means departure is the sole action", func(t *testing.T) {
		d := &domain.RepairDetails{PickupTime: ts(now)}
		assert.Equal(t, StageDeparture, CurrentStage(d))
		action := NextAction(d)
		require.NotNil(t, action)
		assert.Equal(t, "Depart for Customer", action.Label)
		assert.NotEqual(t, "Arrived at Location", action.Label)
	})

	t.Run("fully closed record exposes no action", func(t *testing.T) {
		d := &domain.RepairDetails{
			PickupTime:      ts(now),
			TechLeftTime:    ts(now),
			TechReachedTime: ts(now),
			ResolutionTime:  ts(now),
			DeliveryTime:    ts(now),
			ClosingTime:     ts(now),
		}
		assert.Equal(t, StageDone, CurrentStage(d))
		assert.Nil(t, NextAction(d))
	})
}

func TestAdvance(t *testing.T) {
	now := time.Now()

	t.Run("walks the full sequence in order", func(t *testing.T) {
		d := &domain.RepairDetails{}
		for _, stage := range Order {
			require.NoError(t, Advance(d, stage, now))
		}
		assert.True(t, d.Closed())
	})

	t.Run("rejects skipping a stage", func(t *testing.T) {
		d := &domain.RepairDetails{PickupTime: ts(now)}
		err := Advance(d, StageArrival, now)
		assert.ErrorIs(t, err, ErrOutOfOrder)
		assert.Nil(t, d.TechReachedTime)
	})

	t.Run("rejects any mutation after close", func(t *testing.T) {
		d := &domain.RepairDetails{
			PickupTime:      ts(now),
			TechLeftTime:    ts(now),
			TechReachedTime: ts(now),
			ResolutionTime:  ts(now),
			DeliveryTime:    ts(now),
			ClosingTime:     ts(now),
		}
		assert.ErrorIs(t, Advance(d, StageClosed, now), ErrClosed)
	})
}

func TestAssignTechnician(t *testing.T) {
	now := time.Now()

	t.Run("unavailable before arrival", func(t *testing.T) {
		d := &domain.RepairDetails{PickupTime: ts(now), TechLeftTime: ts(now)}
		assert.False(t, CanAssignTechnician(d))
		assert.ErrorIs(t, AssignTechnician(d, 7, domain.VisitTypeCheck), ErrTechAssignUnavailable)
	})

	t.Run("available once arrived and unassigned", func(t *testing.T) {
		d := &domain.RepairDetails{PickupTime: ts(now), TechLeftTime: ts(now), TechReachedTime: ts(now)}
		require.True(t, CanAssignTechnician(d))
		require.NoError(t, AssignTechnician(d, 7, domain.VisitTypeFix))
		require.NotNil(t, d.VisitingTechID)
		assert.EqualValues(t, 7, *d.VisitingTechID)
		assert.Equal(t, domain.VisitTypeFix, *d.VisitType)
	})

	t.Run("not re-assignable once set", func(t *testing.T) {
		tech := int64(7)
		d := &domain.RepairDetails{
			PickupTime: ts(now), TechLeftTime: ts(now), TechReachedTime: ts(now),
			VisitingTechID: &tech,
		}
		assert.False(t, CanAssignTechnician(d))
	})
}
