package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/Kirun13/gigachat-bot-v2/internal/biz/usecase"
)

// DetectionConfig contains the character tables and word lists that drive
// trigger detection, loaded from YAML
type DetectionConfig struct {
	DefaultWords    []string          `yaml:"default_words"`
	LemmaDict       map[string]string `yaml:"lemma_dict"`
	Transliteration map[string]string `yaml:"transliteration"`
	Confusables     map[string]string `yaml:"confusables"`
	ZeroWidthChars  []string          `yaml:"zero_width_chars"`
	MinWordLength   int               `yaml:"min_word_length"`
	MaxSeparator    int               `yaml:"max_separator_width"`
	CommandWords    []string          `yaml:"command_words"`
}

// LoadDetectionConfig loads detection configuration from a YAML file,
// merging it over the built-in defaults
func LoadDetectionConfig(configPath string) (*DetectionConfig, error) {
	// Try multiple paths
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/detection.yaml",
			"./configs/detection.yaml",
			"/etc/gigachat-bot/detection.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "detection.yaml"))
		}
		if wd, err := os.Getwd(); err == nil {
			paths = append(paths, filepath.Join(wd, "configs", "detection.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	var err error

	for _, p := range paths {
		data, err = os.ReadFile(p)
		if err == nil {
			loadedPath = p
			break
		}
	}

	if data == nil {
		fmt.Println("[Config] No detection.yaml found, using defaults")
		return DefaultDetectionConfig(), nil
	}

	fmt.Printf("[Config] Loading detection tables from: %s\n", loadedPath)

	cfg := DefaultDetectionConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return DefaultDetectionConfig(), fmt.Errorf("failed to parse detection config: %w", err)
	}
	return cfg, nil
}

// DefaultDetectionConfig returns the built-in detection tables. The
// transliteration table maps Cyrillic letters to their Latin renderings;
// the confusable table groups visually interchangeable characters.
func DefaultDetectionConfig() *DetectionConfig {
	return &DetectionConfig{
		MinWordLength: 3,
		MaxSeparator:  2,
		Transliteration: map[string]string{
			"а": "a", "б": "b", "в": "v", "г": "g", "д": "d",
			"е": "e", "ж": "zh", "з": "z", "и": "i", "й": "y",
			"к": "k", "л": "l", "м": "m", "н": "n", "о": "o",
			"п": "p", "р": "r", "с": "s", "т": "t", "у": "u",
			"ф": "f", "х": "h", "ц": "ts", "ч": "ch", "ш": "sh",
			"щ": "sch", "ы": "y", "э": "e", "ю": "yu", "я": "ya",
		},
		Confusables: map[string]string{
			"a": "@4а",
			"b": "6ь",
			"e": "3е",
			"i": "1!і",
			"o": "0о",
			"s": "5$",
			"t": "7т",
			"x": "х",
			"y": "у",
			"а": "a@4",
			"е": "e3",
			"о": "o0",
			"с": "c",
			"р": "p",
			"х": "x",
			"у": "y",
		},
		ZeroWidthChars: []string{
			"\u200b", "\u200c", "\u200d", "\ufeff", "\u00ad", "\u2060",
		},
		CommandWords: []string{
			"start", "help", "counter", "leaderboard", "triggers",
			"reset", "undo", "addword", "removeword",
			"enablerule", "disablerule",
		},
	}
}

// ToVariantTables converts the YAML tables to the pattern generator's
// rune-keyed form. Multi-rune keys are skipped.
func (c *DetectionConfig) ToVariantTables() usecase.VariantTables {
	translit := make(map[rune]string, len(c.Transliteration))
	for key, val := range c.Transliteration {
		runes := []rune(key)
		if len(runes) != 1 {
			continue
		}
		translit[runes[0]] = val
	}

	confusable := make(map[rune]string, len(c.Confusables))
	for key, val := range c.Confusables {
		runes := []rune(key)
		if len(runes) != 1 {
			continue
		}
		confusable[runes[0]] = val
	}

	var zeroWidth []rune
	for _, s := range c.ZeroWidthChars {
		for _, r := range s {
			zeroWidth = append(zeroWidth, r)
		}
	}

	return usecase.VariantTables{
		Translit:     translit,
		Confusable:   confusable,
		ZeroWidth:    zeroWidth,
		MinWordLen:   c.MinWordLength,
		MaxSeparator: c.MaxSeparator,
	}
}
