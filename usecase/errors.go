package usecase

import (
	"errors"

	"social-dashboard/domain/model"
)

func statusCodeOf(err error) *int {
	var pe *model.PlatformError
	if errors.As(err, &pe) && pe.StatusCode != 0 {
		code := pe.StatusCode
		return &code
	}
	return nil
}
