package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted multi-client session.
type Scenario struct {
	// Name identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	Description string `yaml:"description"`

	// Clients names one engine each. Defaults to a single "main" client.
	Clients []string `yaml:"clients,omitempty"`

	// Seed items are stored before any engine attaches. They get IDs
	// "1", "2", ... in order, like every later create.
	Seed []SeedItem `yaml:"seed,omitempty"`

	Steps []Step `yaml:"steps"`
}

// SeedItem is an item present before the session starts.
type SeedItem struct {
	Title     string `yaml:"title"`
	Completed bool   `yaml:"completed,omitempty"`
}

// Step is one action, optionally followed by checks. Exactly one action
// field may be set; a step with only Expect is a pure check.
type Step struct {
	// Client selects the engine for client-scoped actions and checks.
	Client string `yaml:"client,omitempty"`

	Create      *string       `yaml:"create,omitempty"`
	Type        *string       `yaml:"type,omitempty"`
	ClearSearch bool          `yaml:"clear_search,omitempty"`
	Advance     time.Duration `yaml:"advance,omitempty"`
	Update      *UpdateStep   `yaml:"update,omitempty"`
	Delete      *string       `yaml:"delete,omitempty"`
	Publish     *string       `yaml:"publish,omitempty"`
	Offline     *bool         `yaml:"offline,omitempty"`

	// Error is the expected outcome of the action: "ok" (the default),
	// "validation", "not_found" or "transport".
	Error string `yaml:"error,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// UpdateStep sets the completed flag of an item. Omitting Completed sends
// an update that changes nothing.
type UpdateStep struct {
	ID        string `yaml:"id"`
	Completed *bool  `yaml:"completed,omitempty"`
}

// Expect checks the settled state of one client. Nil fields are not checked.
type Expect struct {
	// Items lists titles in presented order.
	Items []string `yaml:"items,omitempty"`

	// IDs lists item IDs in presented order.
	IDs []string `yaml:"ids,omitempty"`

	// Completed lists the IDs of completed items, in presented order.
	Completed []string `yaml:"completed,omitempty"`

	Search       *string `yaml:"search,omitempty"`
	Notification *string `yaml:"notification,omitempty"`

	// Error is the kind of the client's last error: "none", "validation",
	// "not_found" or "transport".
	Error *string `yaml:"error,omitempty"`
}

// Outcome kinds shared by Step.Error and Expect.Error.
const (
	OutcomeOK         = "ok"
	OutcomeNone       = "none"
	OutcomeValidation = "validation"
	OutcomeNotFound   = "not_found"
	OutcomeTransport  = "transport"
)

// DefaultClient is the client name used when a scenario lists none.
const DefaultClient = "main"

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// clientNames returns the configured clients or the default one.
func (s *Scenario) clientNames() []string {
	if len(s.Clients) == 0 {
		return []string{DefaultClient}
	}
	return s.Clients
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	known := make(map[string]bool)
	for _, name := range s.clientNames() {
		if name == "" {
			return fmt.Errorf("clients: names must not be empty")
		}
		if known[name] {
			return fmt.Errorf("clients: duplicate name %q", name)
		}
		known[name] = true
	}

	for i, seed := range s.Seed {
		if seed.Title == "" {
			return fmt.Errorf("seed[%d]: title is required", i)
		}
	}

	for i, step := range s.Steps {
		if step.Client != "" && !known[step.Client] {
			return fmt.Errorf("steps[%d]: unknown client %q", i, step.Client)
		}
		n := step.actionCount()
		if n > 1 {
			return fmt.Errorf("steps[%d]: only one action per step", i)
		}
		if n == 0 && step.Expect == nil {
			return fmt.Errorf("steps[%d]: needs an action or expect", i)
		}
		if step.Advance < 0 {
			return fmt.Errorf("steps[%d]: advance must be positive", i)
		}
		if step.Update != nil && step.Update.ID == "" {
			return fmt.Errorf("steps[%d].update: id is required", i)
		}
		switch step.Error {
		case "", OutcomeOK, OutcomeValidation, OutcomeNotFound, OutcomeTransport:
		default:
			return fmt.Errorf("steps[%d]: unknown error kind %q", i, step.Error)
		}
		if step.Error != "" && n == 0 {
			return fmt.Errorf("steps[%d]: error needs an action", i)
		}
		if e := step.Expect; e != nil && e.Error != nil {
			switch *e.Error {
			case OutcomeNone, OutcomeValidation, OutcomeNotFound, OutcomeTransport:
			default:
				return fmt.Errorf("steps[%d].expect: unknown error kind %q", i, *e.Error)
			}
		}
	}
	return nil
}

func (s Step) actionCount() int {
	n := 0
	for _, set := range []bool{
		s.Create != nil,
		s.Type != nil,
		s.ClearSearch,
		s.Advance != 0,
		s.Update != nil,
		s.Delete != nil,
		s.Publish != nil,
		s.Offline != nil,
	} {
		if set {
			n++
		}
	}
	return n
}
