package scenario

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/npcbrain/internal/game/actor"
	"github.com/cory-johannsen/npcbrain/internal/game/npc"
)

// yamlScenarioFile is the top-level YAML structure for scenario files.
type yamlScenarioFile struct {
	Scenario yamlScenario `yaml:"scenario"`
}

type yamlScenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Ticks       int            `yaml:"ticks"`
	TemplateDir string         `yaml:"template_dir"`
	Templates   []npc.Template `yaml:"templates"`
	Spawns      []yamlSpawn    `yaml:"spawns"`
	Bonds       []yamlBond     `yaml:"bonds"`
	Trades      []yamlTrade    `yaml:"trades"`
}

type yamlSpawn struct {
	Template   string     `yaml:"template"`
	Name       string     `yaml:"name"`
	Side       string     `yaml:"side"`
	Position   actor.Vec3 `yaml:"position"`
	Hostile    bool       `yaml:"hostile"`
	Health     float64    `yaml:"health"`
	Reputation float64    `yaml:"reputation"`
	Defending  bool       `yaml:"defending"`
}

type yamlBond struct {
	From       string  `yaml:"from"`
	To         string  `yaml:"to"`
	Level      string  `yaml:"level"`
	Trust      float64 `yaml:"trust"`
	Friendship float64 `yaml:"friendship"`
}

type yamlTrade struct {
	Seller    string    `yaml:"seller"`
	Buyer     string    `yaml:"buyer"`
	Item      string    `yaml:"item"`
	BasePrice float64   `yaml:"base_price"`
	Offers    []float64 `yaml:"offers"`
}

// LoadFromFile reads and validates a scenario file. A template_dir in the
// file is resolved relative to the file's directory and its templates are
// merged with the inline ones.
//
// Precondition: path must point to a scenario YAML file.
// Postcondition: Returns a validated Scenario or a non-nil error.
func LoadFromFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file %s: %w", path, err)
	}
	file, err := parse(data)
	if err != nil {
		return nil, err
	}

	var extra []*npc.Template
	if dir := file.Scenario.TemplateDir; dir != "" {
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(filepath.Dir(path), dir)
		}
		extra, err = npc.LoadTemplates(dir)
		if err != nil {
			return nil, fmt.Errorf("loading scenario templates: %w", err)
		}
	}
	return convert(file.Scenario, extra)
}

// LoadFromBytes parses and validates a scenario from YAML bytes. template_dir
// is ignored; every template must be inline.
//
// Postcondition: Returns a validated Scenario or a non-nil error.
func LoadFromBytes(data []byte) (*Scenario, error) {
	file, err := parse(data)
	if err != nil {
		return nil, err
	}
	return convert(file.Scenario, nil)
}

func parse(data []byte) (*yamlScenarioFile, error) {
	var file yamlScenarioFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}
	return &file, nil
}

func convert(y yamlScenario, extra []*npc.Template) (*Scenario, error) {
	s := &Scenario{
		Name:        y.Name,
		Description: y.Description,
		Ticks:       y.Ticks,
		Templates:   make(map[string]*npc.Template, len(y.Templates)+len(extra)),
	}

	for _, tmpl := range extra {
		s.Templates[tmpl.ID] = tmpl
	}
	for i := range y.Templates {
		tmpl := &y.Templates[i]
		if err := tmpl.Validate(); err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidScenario, y.Name, err)
		}
		if _, dup := s.Templates[tmpl.ID]; dup {
			return nil, fmt.Errorf("%w %q: duplicate template %q", ErrInvalidScenario, y.Name, tmpl.ID)
		}
		s.Templates[tmpl.ID] = tmpl
	}

	for _, sp := range y.Spawns {
		s.Spawns = append(s.Spawns, Spawn(sp))
	}
	for _, b := range y.Bonds {
		level := actor.Stranger
		if b.Level != "" {
			var ok bool
			if level, ok = actor.ParseRelationshipLevel(b.Level); !ok {
				return nil, fmt.Errorf("%w %q: bond %s->%s: unknown level %q", ErrInvalidScenario, y.Name, b.From, b.To, b.Level)
			}
		}
		s.Bonds = append(s.Bonds, Bond{From: b.From, To: b.To, Level: level, Trust: b.Trust, Friendship: b.Friendship})
	}
	for _, t := range y.Trades {
		s.Trades = append(s.Trades, Trade(t))
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
