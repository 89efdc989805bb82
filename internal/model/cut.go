package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CutSettings configures the CNC toolpaths generated for nested sheets.
type CutSettings struct {
	Dialect      string  `json:"dialect" yaml:"dialect"`                                  // G-code dialect name
	ToolDiameter float64 `json:"tool_diameter" yaml:"tool_diameter" validate:"gte=0"`     // End mill diameter
	FeedRate     float64 `json:"feed_rate" yaml:"feed_rate" validate:"gt=0"`              // Cutting feed per minute
	PlungeRate   float64 `json:"plunge_rate" yaml:"plunge_rate" validate:"gt=0"`          // Plunge feed per minute
	SpindleSpeed int     `json:"spindle_speed" yaml:"spindle_speed" validate:"gte=0"`     // RPM, 0 leaves the spindle alone
	SafeZ        float64 `json:"safe_z" yaml:"safe_z" validate:"gt=0"`                    // Retract height
	CutDepth     float64 `json:"cut_depth" yaml:"cut_depth" validate:"gt=0"`              // Material thickness
	PassDepth    float64 `json:"pass_depth" yaml:"pass_depth" validate:"gt=0,ltefield=CutDepth"`
	LeadIn       float64 `json:"lead_in" yaml:"lead_in" validate:"gte=0"` // Straight approach length, 0 plunges on the path
	UseClimb     bool    `json:"use_climb" yaml:"use_climb"`               // Clockwise around each outline
}

// DefaultCutSettings returns settings for an 18 mm sheet and a 6 mm end mill.
func DefaultCutSettings() CutSettings {
	return CutSettings{
		Dialect:      "Generic",
		ToolDiameter: 6.0,
		FeedRate:     1500.0,
		PlungeRate:   500.0,
		SpindleSpeed: 18000,
		SafeZ:        5.0,
		CutDepth:     18.0,
		PassDepth:    6.0,
		UseClimb:     true,
	}
}

// ValidateCut checks cut settings. The returned error wraps ErrInvalidInput.
func ValidateCut(s CutSettings) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	messages := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		messages = append(messages, formatValidationError(e))
	}
	return fmt.Errorf("%w: cut settings:\n  - %s", ErrInvalidInput, strings.Join(messages, "\n  - "))
}
