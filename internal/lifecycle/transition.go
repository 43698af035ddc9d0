package lifecycle

import (
	"time"

	"github.com/google/uuid"
	"github.com/rookgm/orderflow/internal/models"
)

// TransitionMeta describes who records a transition and any step details
type TransitionMeta struct {
	UpdatedBy      models.Actor
	Description    string
	Location       string
	AdditionalInfo string
	// Now overrides the step timestamp, zero means time.Now
	Now time.Time
}

// NewStep builds the current tracking step for status
func NewStep(status models.OrderStatus, meta TransitionMeta) models.TrackingStep {
	now := meta.Now
	if now.IsZero() {
		now = time.Now()
	}
	actor := meta.UpdatedBy
	if actor == "" {
		actor = models.ActorSystem
	}
	md, _ := Metadata(status)

	return models.TrackingStep{
		ID:             uuid.New(),
		Status:         status,
		DisplayTitle:   md.Title,
		Description:    meta.Description,
		Date:           now.UTC(),
		Completed:      false,
		Current:        true,
		Location:       meta.Location,
		UpdatedBy:      actor,
		AdditionalInfo: meta.AdditionalInfo,
	}
}

// RecordTransition validates the move to status and returns a copy of order with the
// previous current step closed and the new step appended. order is not modified.
func RecordTransition(order models.Order, status models.OrderStatus, meta TransitionMeta) (models.Order, error) {
	if !Known(status) {
		return order, models.ErrUnknownStatus
	}
	if !IsLegal(order.Status, status) {
		return order, &models.IllegalTransitionError{
			From:    order.Status,
			To:      status,
			Allowed: AllowedNext(order.Status),
		}
	}

	steps := make([]models.TrackingStep, len(order.TrackingSteps), len(order.TrackingSteps)+1)
	copy(steps, order.TrackingSteps)
	for i := range steps {
		if steps[i].Current {
			steps[i].Current = false
			steps[i].Completed = true
		}
	}

	step := NewStep(status, meta)
	order.TrackingSteps = append(steps, step)
	order.Status = status
	order.UpdatedAt = step.Date

	return order, nil
}
