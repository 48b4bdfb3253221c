// Package catalog describes the games the service can run: which block
// objects a child can build, how each one is captured, which scene
// background to show for a given set of captures, and the trivia attached
// to each object.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"gopkg.in/yaml.v3"
)

// Mode selects how a category is cut out of the camera frame.
type Mode string

const (
	// ModeDetect runs the detector and cuts out the best matching box.
	ModeDetect Mode = "detect"
	// ModeGuide crops whatever is inside the on-screen guide rectangle.
	ModeGuide Mode = "guide"
)

var (
	ErrUnknownGame     = errors.New("unknown game")
	ErrUnknownCategory = errors.New("unknown category")
	ErrNoFacts         = errors.New("no facts for category")
)

//go:embed default.yaml
var defaultCatalog []byte

type Fact struct {
	Name  string `yaml:"name" json:"name"`
	Image string `yaml:"image" json:"image"`
	Text  string `yaml:"text" json:"text"`
}

type Category struct {
	Label  string `yaml:"label" json:"label"`
	Title  string `yaml:"title" json:"title"`
	Hint   string `yaml:"hint" json:"hint"`
	Sample string `yaml:"sample" json:"sample"`
	Mode   Mode   `yaml:"mode" json:"mode"`
	Facts  []Fact `yaml:"facts" json:"-"`
}

type Scene struct {
	Requires   []string `yaml:"requires" json:"requires"`
	Background string   `yaml:"background" json:"background"`
}

type Game struct {
	Name       string     `yaml:"name" json:"name"`
	Title      string     `yaml:"title" json:"title"`
	Background string     `yaml:"background" json:"background"`
	Categories []Category `yaml:"categories" json:"categories"`
	Scenes     []Scene    `yaml:"scenes" json:"scenes"`
}

type Catalog struct {
	Games []Game `yaml:"games"`
}

// Load reads a catalog file, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Games) == 0 {
		return errors.New("catalog has no games")
	}
	games := make(map[string]bool)
	for _, g := range c.Games {
		if g.Name == "" {
			return errors.New("game without a name")
		}
		if games[g.Name] {
			return fmt.Errorf("duplicate game %q", g.Name)
		}
		games[g.Name] = true

		if len(g.Categories) == 0 {
			return fmt.Errorf("game %q has no categories", g.Name)
		}
		labels := make(map[string]bool)
		for _, cat := range g.Categories {
			if cat.Label == "" {
				return fmt.Errorf("game %q: category without a label", g.Name)
			}
			if labels[cat.Label] {
				return fmt.Errorf("game %q: duplicate category %q", g.Name, cat.Label)
			}
			labels[cat.Label] = true
			if cat.Mode != ModeDetect && cat.Mode != ModeGuide {
				return fmt.Errorf("game %q: category %q has unknown mode %q", g.Name, cat.Label, cat.Mode)
			}
		}
		for _, s := range g.Scenes {
			for _, req := range s.Requires {
				if !labels[req] {
					return fmt.Errorf("game %q: scene %q requires unknown category %q", g.Name, s.Background, req)
				}
			}
		}
	}
	return nil
}

// Game returns the game with the given name.
func (c *Catalog) Game(name string) (*Game, error) {
	for i := range c.Games {
		if c.Games[i].Name == name {
			return &c.Games[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownGame, name)
}

// Category returns the category with the given label.
func (g *Game) Category(label string) (*Category, error) {
	for i := range g.Categories {
		if g.Categories[i].Label == label {
			return &g.Categories[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownCategory, label)
}

// Labels lists the category labels in catalog order.
func (g *Game) Labels() []string {
	labels := make([]string, len(g.Categories))
	for i, c := range g.Categories {
		labels[i] = c.Label
	}
	return labels
}

// Background picks the scene for the captured labels: the satisfied scene
// with the most requirements wins, ties go to the one listed first.
func (g *Game) Background(captured []string) string {
	have := make(map[string]bool, len(captured))
	for _, c := range captured {
		have[c] = true
	}

	best := g.Background
	bestCount := 0
	for _, s := range g.Scenes {
		if len(s.Requires) <= bestCount {
			continue
		}
		satisfied := true
		for _, req := range s.Requires {
			if !have[req] {
				satisfied = false
				break
			}
		}
		if satisfied {
			best = s.Background
			bestCount = len(s.Requires)
		}
	}
	return best
}

// RandomFact picks one of the category's facts.
func (c *Category) RandomFact(rng *rand.Rand) (Fact, error) {
	if len(c.Facts) == 0 {
		return Fact{}, fmt.Errorf("%w: %s", ErrNoFacts, c.Label)
	}
	if rng == nil {
		return c.Facts[rand.IntN(len(c.Facts))], nil
	}
	return c.Facts[rng.IntN(len(c.Facts))], nil
}
