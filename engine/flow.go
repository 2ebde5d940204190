package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StepType discriminates the Request/Condition/Loop tagged union.
type StepType string

const (
	StepRequest   StepType = "request"
	StepCondition StepType = "condition"
	StepLoop      StepType = "loop"
)

var validMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "OPTIONS": true, "HEAD": true,
}

// Step is one node of a flow's step tree. Only the fields relevant to Type
// are populated; step IDs are opaque and need not be unique.
type Step struct {
	ID   string
	Name string
	Type StepType

	// Request fields.
	Method    string
	URL       string
	Headers   map[string]string
	Body      Value // Missing when absent; substituted fresh at execution time
	Extract   map[string]string
	OnFailure string // "stop" | "continue"

	// Condition fields.
	ConditionData ConditionData
	Then          []Step
	Else          []Step

	// Loop fields.
	Source       string
	LoopVariable string
	Steps        []Step
}

// Flow is a declarative program of steps executed against a target service.
// Unknown top-level JSON fields (e.g. UI layout metadata) are ignored
// silently because encoding/json ignores fields with no matching tag by
// default.
type Flow struct {
	ID          string
	Name        string
	Description string
	Headers     map[string]string
	StaticVars  Value // Kind Map
	Steps       []Step
}

type stepJSON struct {
	ID            string             `json:"id"`
	Name          string             `json:"name,omitempty"`
	Type          string             `json:"type"`
	Method        string             `json:"method,omitempty"`
	URL           string             `json:"url,omitempty"`
	Headers       map[string]string  `json:"headers,omitempty"`
	Body          json.RawMessage    `json:"body,omitempty"`
	Extract       map[string]string  `json:"extract,omitempty"`
	OnFailure     string             `json:"onFailure,omitempty"`
	ConditionData *conditionDataJSON `json:"conditionData,omitempty"`
	Then          []stepJSON         `json:"then,omitempty"`
	Else          []stepJSON         `json:"else,omitempty"`
	Source        string             `json:"source,omitempty"`
	LoopVariable  string             `json:"loopVariable,omitempty"`
	Steps         []stepJSON         `json:"steps,omitempty"`
}

type conditionDataJSON struct {
	Variable string `json:"variable"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

type flowJSON struct {
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	StaticVars  json.RawMessage   `json:"staticVars,omitempty"`
	Steps       []stepJSON        `json:"steps"`
}

// ParseFlow parses and validates a Flow from its JSON wire format.
func ParseFlow(data []byte) (*Flow, error) {
	var raw flowJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Message: "invalid flow JSON", Cause: err}
	}

	flow := &Flow{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		Headers:     raw.Headers,
	}

	if len(raw.StaticVars) > 0 {
		v, err := DecodeOrderedJSON(raw.StaticVars)
		if err != nil {
			return nil, &ValidationError{Message: "invalid staticVars", Cause: err}
		}
		flow.StaticVars = v
	} else {
		flow.StaticVars = Map()
	}

	flow.Steps = make([]Step, len(raw.Steps))
	for i := range raw.Steps {
		if err := stepFromJSON(raw.Steps[i], &flow.Steps[i]); err != nil {
			return nil, &ValidationError{Message: "invalid step", Cause: err}
		}
	}

	if flow.Name == "" {
		return nil, &ValidationError{Message: "flow name is required"}
	}
	if len(flow.Steps) == 0 {
		return nil, &ValidationError{Message: "flow must have at least one step"}
	}

	return flow, nil
}

func stepFromJSON(raw stepJSON, s *Step) error {
	s.ID = raw.ID
	s.Name = raw.Name
	s.Type = StepType(raw.Type)

	switch s.Type {
	case StepRequest:
		method := strings.ToUpper(raw.Method)
		if !validMethods[method] {
			return fmt.Errorf("step %s: invalid method %q", raw.ID, raw.Method)
		}
		s.Method = method
		s.URL = raw.URL
		s.Headers = raw.Headers
		s.Extract = raw.Extract
		s.OnFailure = raw.OnFailure
		if s.OnFailure == "" {
			s.OnFailure = "stop"
		}
		if s.OnFailure != "stop" && s.OnFailure != "continue" {
			return fmt.Errorf("step %s: invalid onFailure %q", raw.ID, raw.OnFailure)
		}
		if len(raw.Body) > 0 {
			v, err := DecodeOrderedJSON(raw.Body)
			if err != nil {
				return fmt.Errorf("step %s: invalid body: %w", raw.ID, err)
			}
			s.Body = v
		} else {
			s.Body = Missing
		}
		return nil

	case StepCondition:
		if raw.ConditionData == nil {
			return fmt.Errorf("step %s: condition step requires conditionData", raw.ID)
		}
		s.ConditionData = ConditionData{
			Variable: raw.ConditionData.Variable,
			Operator: raw.ConditionData.Operator,
			Value:    raw.ConditionData.Value,
		}
		s.Then = make([]Step, len(raw.Then))
		for i := range raw.Then {
			if err := stepFromJSON(raw.Then[i], &s.Then[i]); err != nil {
				return err
			}
		}
		s.Else = make([]Step, len(raw.Else))
		for i := range raw.Else {
			if err := stepFromJSON(raw.Else[i], &s.Else[i]); err != nil {
				return err
			}
		}
		return nil

	case StepLoop:
		s.Source = raw.Source
		s.LoopVariable = raw.LoopVariable
		if s.LoopVariable == "" {
			s.LoopVariable = "item"
		}
		s.Steps = make([]Step, len(raw.Steps))
		for i := range raw.Steps {
			if err := stepFromJSON(raw.Steps[i], &s.Steps[i]); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("step %s: unknown type %q", raw.ID, raw.Type)
	}
}
