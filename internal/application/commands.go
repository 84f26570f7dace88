package application

import "github.com/vendroute/packing-player/pkg/errors"

// StartSessionCommand starts guided playback for a packing session.
type StartSessionCommand struct {
	RunID            string `json:"runId" binding:"required"`
	PackingSessionID string `json:"packingSessionId" binding:"required"`
}

// Validate validates the command
func (c StartSessionCommand) Validate() *errors.AppError {
	fields := make(map[string]string)
	if c.RunID == "" {
		fields["runId"] = "this field is required"
	}
	if c.PackingSessionID == "" {
		fields["packingSessionId"] = "this field is required"
	}
	if len(fields) > 0 {
		return errors.ErrValidationWithFields("invalid start session command", fields)
	}
	return nil
}
