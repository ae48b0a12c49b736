package neat

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Config stores the configuration parameters for the evolutionary engine.
type Config struct {
	NEAT         NEATConfig
	Genome       GenomeConfig
	Speciation   SpeciationConfig
	Reproduction ReproductionConfig
}

// NEATConfig holds run-level parameters.
type NEATConfig struct {
	PopulationSize int `ini:"population_size"`
	// Seed for the engine's random source. Zero means seed from the clock;
	// set a nonzero value for reproducible runs.
	Seed                 int64   `ini:"seed"`
	ParsimonyCoefficient float64 `ini:"parsimony_coefficient"`
}

// GenomeConfig holds parameters for genome structure and mutation.
type GenomeConfig struct {
	InputCount     int  `ini:"input_count"`
	OutputCount    int  `ini:"output_count"`
	UseBias        bool `ini:"use_bias"`
	AllowRecurrent bool `ini:"allow_recurrent"`
	// Probability of wiring each input->output pair at initialization.
	InitialConnectionFraction float64 `ini:"initial_connection_fraction"`

	WeightMutateRate      float64 `ini:"weight_mutate_rate"`
	WeightPerturbRate     float64 `ini:"weight_perturb_rate"`
	WeightPerturbStrength float64 `ini:"weight_perturb_strength"`
	WeightResetRange      float64 `ini:"weight_reset_range"`
	AddNodeRate           float64 `ini:"add_node_rate"`
	AddConnectionRate     float64 `ini:"add_connection_rate"`
	DisableConnectionRate float64 `ini:"disable_connection_rate"`
}

// SpeciationConfig holds compatibility-distance and stagnation parameters.
type SpeciationConfig struct {
	// CompatibilityThreshold is adjusted at runtime by the proportional
	// controller that steers the population toward TargetSpeciesCount.
	CompatibilityThreshold    float64 `ini:"compatibility_threshold"`
	MinCompatibilityThreshold float64 `ini:"min_compatibility_threshold"`
	C1Excess                  float64 `ini:"c1_excess"`
	C2Disjoint                float64 `ini:"c2_disjoint"`
	C3WeightDiff              float64 `ini:"c3_weight_diff"`
	TargetSpeciesCount        int     `ini:"target_species_count"`
	ThresholdStep             float64 `ini:"threshold_step"`
	StagnationThreshold       int     `ini:"stagnation_threshold"`
	StagnationKillThreshold   int     `ini:"stagnation_kill_threshold"`
	MinSpeciesProtected       int     `ini:"min_species_protected"`
}

// ReproductionConfig holds offspring-production parameters.
type ReproductionConfig struct {
	EliteFraction             float64 `ini:"elite_fraction"`
	SurvivalFraction          float64 `ini:"survival_fraction"`
	CrossoverRate             float64 `ini:"crossover_rate"`
	InterspeciesCrossoverRate float64 `ini:"interspecies_crossover_rate"`
	DisabledGeneInheritRate   float64 `ini:"disabled_gene_inherit_rate"`
}

// DefaultConfig returns a configuration with workable defaults for every
// parameter. Callers typically start here and override input/output counts.
func DefaultConfig() *Config {
	return &Config{
		NEAT: NEATConfig{
			PopulationSize:       150,
			Seed:                 0,
			ParsimonyCoefficient: 0.0,
		},
		Genome: GenomeConfig{
			InputCount:                1,
			OutputCount:               1,
			UseBias:                   true,
			AllowRecurrent:            false,
			InitialConnectionFraction: 1.0,
			WeightMutateRate:          0.8,
			WeightPerturbRate:         0.9,
			WeightPerturbStrength:     0.5,
			WeightResetRange:          2.0,
			AddNodeRate:               0.03,
			AddConnectionRate:         0.05,
			DisableConnectionRate:     0.01,
		},
		Speciation: SpeciationConfig{
			CompatibilityThreshold:    3.0,
			MinCompatibilityThreshold: 0.5,
			C1Excess:                  1.0,
			C2Disjoint:                1.0,
			C3WeightDiff:              0.4,
			TargetSpeciesCount:        10,
			ThresholdStep:             0.1,
			StagnationThreshold:       15,
			StagnationKillThreshold:   20,
			MinSpeciesProtected:       2,
		},
		Reproduction: ReproductionConfig{
			EliteFraction:             0.1,
			SurvivalFraction:          0.2,
			CrossoverRate:             0.75,
			InterspeciesCrossoverRate: 0.001,
			DisabledGeneInheritRate:   0.75,
		},
	}
}

// LoadConfig loads configuration parameters from an INI file. Keys not
// present in the file keep their defaults.
func LoadConfig(filePath string) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:         true,
		UnescapeValueCommentSymbols: true,
	}, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", filePath, err)
	}

	config := DefaultConfig()

	if err := cfg.Section("NEAT").MapTo(&config.NEAT); err != nil {
		return nil, fmt.Errorf("failed to map [NEAT] section: %w", err)
	}
	if err := cfg.Section("Genome").MapTo(&config.Genome); err != nil {
		return nil, fmt.Errorf("failed to map [Genome] section: %w", err)
	}
	if err := cfg.Section("Speciation").MapTo(&config.Speciation); err != nil {
		return nil, fmt.Errorf("failed to map [Speciation] section: %w", err)
	}
	if err := cfg.Section("Reproduction").MapTo(&config.Reproduction); err != nil {
		return nil, fmt.Errorf("failed to map [Reproduction] section: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.NEAT.PopulationSize <= 0 {
		return fmt.Errorf("config error: population_size must be positive")
	}
	if c.Genome.InputCount <= 0 {
		return fmt.Errorf("config error: input_count must be positive")
	}
	if c.Genome.OutputCount <= 0 {
		return fmt.Errorf("config error: output_count must be positive")
	}
	if c.Genome.InitialConnectionFraction < 0 || c.Genome.InitialConnectionFraction > 1 {
		return fmt.Errorf("config error: initial_connection_fraction must be between 0 and 1")
	}
	rates := map[string]float64{
		"weight_mutate_rate":          c.Genome.WeightMutateRate,
		"weight_perturb_rate":         c.Genome.WeightPerturbRate,
		"add_node_rate":               c.Genome.AddNodeRate,
		"add_connection_rate":         c.Genome.AddConnectionRate,
		"disable_connection_rate":     c.Genome.DisableConnectionRate,
		"elite_fraction":              c.Reproduction.EliteFraction,
		"survival_fraction":           c.Reproduction.SurvivalFraction,
		"crossover_rate":              c.Reproduction.CrossoverRate,
		"interspecies_crossover_rate": c.Reproduction.InterspeciesCrossoverRate,
		"disabled_gene_inherit_rate":  c.Reproduction.DisabledGeneInheritRate,
	}
	for name, v := range rates {
		if v < 0 || v > 1 {
			return fmt.Errorf("config error: %s must be between 0 and 1", name)
		}
	}
	if c.Genome.WeightPerturbStrength < 0 {
		return fmt.Errorf("config error: weight_perturb_strength cannot be negative")
	}
	if c.Genome.WeightResetRange < 0 {
		return fmt.Errorf("config error: weight_reset_range cannot be negative")
	}
	if c.Speciation.CompatibilityThreshold < 0 {
		return fmt.Errorf("config error: compatibility_threshold cannot be negative")
	}
	if c.Speciation.MinCompatibilityThreshold < 0 {
		return fmt.Errorf("config error: min_compatibility_threshold cannot be negative")
	}
	if c.Speciation.C1Excess < 0 || c.Speciation.C2Disjoint < 0 || c.Speciation.C3WeightDiff < 0 {
		return fmt.Errorf("config error: compatibility coefficients cannot be negative")
	}
	if c.Speciation.TargetSpeciesCount <= 0 {
		return fmt.Errorf("config error: target_species_count must be positive")
	}
	if c.Speciation.ThresholdStep < 0 {
		return fmt.Errorf("config error: threshold_step cannot be negative")
	}
	if c.Speciation.StagnationKillThreshold <= 0 {
		return fmt.Errorf("config error: stagnation_kill_threshold must be positive")
	}
	if c.Speciation.MinSpeciesProtected < 0 {
		return fmt.Errorf("config error: min_species_protected cannot be negative")
	}
	if c.NEAT.ParsimonyCoefficient < 0 {
		return fmt.Errorf("config error: parsimony_coefficient cannot be negative")
	}
	return nil
}
