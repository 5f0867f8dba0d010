package game

import (
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultTexts is the built-in passage corpus; one is picked at random per race.
var DefaultTexts = []string{
	"The boy's name was Santiago. Dusk was falling as the boy arrived with his herd at an abandoned church.",
	"Minecraft is a popular sandbox game that allows players to explore, build, and survive in a blocky, pixelated world.",
	"Every day, millions of Indian women and men perform the invisible work that keeps families functioning.",
}

// LoadTexts reads a YAML list of passages to replace the built-in corpus.
func LoadTexts(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read texts file: %w", err)
	}

	var texts []string
	if err := yaml.Unmarshal(data, &texts); err != nil {
		return nil, fmt.Errorf("failed to parse texts file: %w", err)
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts file %s contains no passages", path)
	}
	return texts, nil
}

func pickText(texts []string) string {
	return texts[rand.Intn(len(texts))]
}
