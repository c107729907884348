package intake

import (
	"fmt"
)

// Stage is the conversation's position in the intake flow.
type Stage int

const (
	AwaitingBudget Stage = iota
	AwaitingHouseholdSize
	AwaitingLocation
	AwaitingRestrictions
	AwaitingPreferences
	AwaitingConfirmation
	Researching
	Generating
	Complete
)

var stageNames = map[Stage]string{
	AwaitingBudget:        "AWAITING_BUDGET",
	AwaitingHouseholdSize: "AWAITING_HOUSEHOLD_SIZE",
	AwaitingLocation:      "AWAITING_LOCATION",
	AwaitingRestrictions:  "AWAITING_RESTRICTIONS",
	AwaitingPreferences:   "AWAITING_PREFERENCES",
	AwaitingConfirmation:  "AWAITING_CONFIRMATION",
	Researching:           "RESEARCHING",
	Generating:            "GENERATING",
	Complete:              "COMPLETE",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(b []byte) error {
	for stage, name := range stageNames {
		if name == string(b) {
			*s = stage
			return nil
		}
	}
	return fmt.Errorf("unknown stage %q", string(b))
}

// Collecting reports whether the stage waits for a profile field.
func (s Stage) Collecting() bool {
	return s >= AwaitingBudget && s <= AwaitingPreferences
}

// Event drives a stage transition.
type Event int

const (
	EventFieldAccepted Event = iota
	EventFieldRevised
	EventConfirmed
	EventEditBudget
	EventEditHouseholdSize
	EventEditLocation
	EventEditRestrictions
	EventEditPreferences
	EventPricesReady
	EventPlanReady
	EventPlanFailed
	EventRestart
)

var eventNames = map[Event]string{
	EventFieldAccepted:     "field_accepted",
	EventFieldRevised:      "field_revised",
	EventConfirmed:         "confirmed",
	EventEditBudget:        "edit_budget",
	EventEditHouseholdSize: "edit_household_size",
	EventEditLocation:      "edit_location",
	EventEditRestrictions:  "edit_restrictions",
	EventEditPreferences:   "edit_preferences",
	EventPricesReady:       "prices_ready",
	EventPlanReady:         "plan_ready",
	EventPlanFailed:        "plan_failed",
	EventRestart:           "restart",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// transitions is the complete set of legal moves. Anything absent is rejected.
var transitions = map[Stage]map[Event]Stage{
	AwaitingBudget: {
		EventFieldAccepted: AwaitingHouseholdSize,
		EventFieldRevised:  AwaitingConfirmation,
	},
	AwaitingHouseholdSize: {
		EventFieldAccepted: AwaitingLocation,
		EventFieldRevised:  AwaitingConfirmation,
	},
	AwaitingLocation: {
		EventFieldAccepted: AwaitingRestrictions,
		EventFieldRevised:  AwaitingConfirmation,
	},
	AwaitingRestrictions: {
		EventFieldAccepted: AwaitingPreferences,
		EventFieldRevised:  AwaitingConfirmation,
	},
	AwaitingPreferences: {
		EventFieldAccepted: AwaitingConfirmation,
		EventFieldRevised:  AwaitingConfirmation,
	},
	AwaitingConfirmation: {
		EventConfirmed:         Researching,
		EventEditBudget:        AwaitingBudget,
		EventEditHouseholdSize: AwaitingHouseholdSize,
		EventEditLocation:      AwaitingLocation,
		EventEditRestrictions:  AwaitingRestrictions,
		EventEditPreferences:   AwaitingPreferences,
	},
	Researching: {
		EventPricesReady: Generating,
		EventPlanFailed:  AwaitingConfirmation,
	},
	Generating: {
		EventPlanReady:  Complete,
		EventPlanFailed: AwaitingConfirmation,
	},
	Complete: {
		EventRestart: AwaitingBudget,
	},
}

// Transition returns the stage reached from s on ev.
func Transition(s Stage, ev Event) (Stage, error) {
	if next, ok := transitions[s][ev]; ok {
		return next, nil
	}
	return s, fmt.Errorf("no transition from %s on %s", s, ev)
}

// Field is one of the five profile fields.
type Field int

const (
	FieldBudget Field = iota
	FieldHouseholdSize
	FieldLocation
	FieldRestrictions
	FieldPreferences
)

var fieldStages = map[Field]Stage{
	FieldBudget:        AwaitingBudget,
	FieldHouseholdSize: AwaitingHouseholdSize,
	FieldLocation:      AwaitingLocation,
	FieldRestrictions:  AwaitingRestrictions,
	FieldPreferences:   AwaitingPreferences,
}

var editEvents = map[Field]Event{
	FieldBudget:        EventEditBudget,
	FieldHouseholdSize: EventEditHouseholdSize,
	FieldLocation:      EventEditLocation,
	FieldRestrictions:  EventEditRestrictions,
	FieldPreferences:   EventEditPreferences,
}

var fieldLabels = map[Field]string{
	FieldBudget:        "weekly budget",
	FieldHouseholdSize: "household size",
	FieldLocation:      "location",
	FieldRestrictions:  "dietary restrictions",
	FieldPreferences:   "food preferences",
}

func (f Field) String() string { return fieldLabels[f] }

// Stage returns the stage that collects f.
func (f Field) Stage() Stage { return fieldStages[f] }

func fieldForStage(s Stage) (Field, bool) {
	for f, st := range fieldStages {
		if st == s {
			return f, true
		}
	}
	return 0, false
}
