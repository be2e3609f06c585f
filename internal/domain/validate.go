package domain

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
		_, err := ParseClock(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(fmt.Sprintf("register clock validation: %v", err))
	}
	return v
}

// ValidateStop checks a stop record arriving from the catalog, storage or a share token.
func ValidateStop(s Stop) error {
	if err := validate.Struct(s); err != nil {
		return toValidationError(err)
	}
	if s.Coordinates != nil && !s.Coordinates.Valid() {
		return NewValidationError("coordinates", fmt.Sprintf("stop %q has non-finite or out of range coordinates", string(s.ID)))
	}
	return nil
}

// ValidatePlan checks every stop, the start time, the transport mode and id uniqueness.
func ValidatePlan(p Plan) error {
	if err := validate.Struct(p); err != nil {
		return toValidationError(err)
	}
	if _, ok := ParseTransportMode(string(p.TransportMode)); !ok {
		return NewValidationError("transportMode", fmt.Sprintf("unknown transport mode %q", string(p.TransportMode)))
	}

	seen := make(map[StopID]struct{}, len(p.Cafes))
	for _, s := range p.Cafes {
		if s.Coordinates != nil && !s.Coordinates.Valid() {
			return NewValidationError("coordinates", fmt.Sprintf("stop %q has non-finite or out of range coordinates", string(s.ID)))
		}
		if _, ok := seen[s.ID]; ok {
			return NewValidationError("cafes", fmt.Sprintf("duplicate stop id %q", string(s.ID)))
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// ValidateArchivedPlan checks an archive entry read back from storage.
func ValidateArchivedPlan(a ArchivedPlan) error {
	if a.ID == "" {
		return NewValidationError("id", "archived plan id must be non-empty")
	}
	return ValidatePlan(a.Plan)
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return NewValidationError(fe.Namespace(), fmt.Sprintf("failed %q constraint (value %v)", fe.Tag(), fe.Value()))
	}
	return NewValidationError("", err.Error())
}
