// =============================================================================
// 📦 AuditFlow 配置加载器
// =============================================================================
// 统一加载 persona、系统提示词与产品目录配置
//
// 使用方法:
//
//	cfg, err := config.Load("personas.yaml")
//
// 配置在进程启动时一次性加载并校验，随后只读注入各组件；
// 运行中途不会隐式重读。缺失 persona 或必填字段是致命配置错误。
// =============================================================================
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/BaSui01/auditflow/types"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// ScorerQuestion binds a persona to its true/false judgment dimension.
type ScorerQuestion struct {
	Category         string `yaml:"category"`
	TrueDescription  string `yaml:"true_description"`
	FalseDescription string `yaml:"false_description"`
}

// Persona is one simulated-customer / attack configuration.
// Temperature is optional; nil falls back to the engine default.
type Persona struct {
	ID           string         `yaml:"-"`
	TestType     string         `yaml:"test_type"`
	SystemPrompt string         `yaml:"system_prompt"`
	Temperature  *float32       `yaml:"temperature"`
	Objective    string         `yaml:"objective"`
	Scorer       ScorerQuestion `yaml:"scorer"`
}

// Product is one catalogue entry handed to the chatbot in structured
// recommendation mode. Field casing follows the upstream API schema.
type Product struct {
	Name       string `yaml:"name" json:"name"`
	Provider   string `yaml:"provider" json:"provider"`
	Resolution string `yaml:"resolution" json:"resolution"`
	SensorType string `yaml:"sensor_type" json:"sensor_type"`
	OfferingID string `yaml:"offering_id" json:"offering_id"`
	ProductID  string `yaml:"product_id" json:"product_id"`
	Category   string `yaml:"category" json:"category"` // archive / tasking
	ImageURL   string `yaml:"image_url" json:"image_url"`
}

// SystemPrompts carries the two chatbot-mode prompts.
type SystemPrompts struct {
	GeneralQA       string `yaml:"general_qa_prompt"`
	Recommendations string `yaml:"recommendations_prompt"`
	IntentProbe     string `yaml:"intent_probe_prompt"`
}

// Config is the full, immutable run configuration.
// Personas preserves YAML document order: audit processing order equals
// persona enumeration order.
type Config struct {
	Personas  []Persona
	Prompts   SystemPrompts
	Catalogue []Product

	index map[string]*Persona
}

// rawConfig mirrors the YAML document; personas is kept as a node so that
// mapping order can be preserved (yaml.v3 maps would lose it).
type rawConfig struct {
	Personas  yaml.Node     `yaml:"personas"`
	Prompts   SystemPrompts `yaml:"system_prompts"`
	Catalogue []Product     `yaml:"catalogue"`
}

// =============================================================================
// 📥 加载与校验
// =============================================================================

// Load reads, parses, and validates the YAML configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.ErrConfiguration, fmt.Sprintf("read config %s", path)).WithCause(err)
	}
	return Parse(data)
}

// Parse parses and validates a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, types.NewError(types.ErrConfiguration, "parse config").WithCause(err)
	}

	cfg := &Config{
		Prompts:   raw.Prompts,
		Catalogue: raw.Catalogue,
		index:     make(map[string]*Persona),
	}

	if raw.Personas.Kind != 0 {
		if raw.Personas.Kind != yaml.MappingNode {
			return nil, types.NewError(types.ErrConfiguration, "personas must be a mapping")
		}
		// Content holds alternating key/value nodes in document order.
		for i := 0; i+1 < len(raw.Personas.Content); i += 2 {
			keyNode := raw.Personas.Content[i]
			valNode := raw.Personas.Content[i+1]

			var p Persona
			if err := valNode.Decode(&p); err != nil {
				return nil, types.NewError(types.ErrConfiguration, fmt.Sprintf("decode persona %q", keyNode.Value)).WithCause(err)
			}
			p.ID = keyNode.Value
			cfg.Personas = append(cfg.Personas, p)
		}
	}

	for i := range cfg.Personas {
		cfg.index[cfg.Personas[i].ID] = &cfg.Personas[i]
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for _, p := range c.Personas {
		if p.SystemPrompt == "" {
			return types.NewError(types.ErrConfiguration, "missing system_prompt").WithPersona(p.ID)
		}
		if p.Objective == "" {
			return types.NewError(types.ErrConfiguration, "missing objective").WithPersona(p.ID)
		}
		if p.Scorer.TrueDescription == "" || p.Scorer.FalseDescription == "" {
			return types.NewError(types.ErrConfiguration, "missing scorer descriptions").WithPersona(p.ID)
		}
		if t := p.Temperature; t != nil && (*t < 0 || *t > 2) {
			return types.NewError(types.ErrConfiguration, fmt.Sprintf("temperature %v out of range [0, 2]", *t)).WithPersona(p.ID)
		}
	}
	return nil
}

// Persona resolves a persona by id. The second return value reports whether
// the persona exists; callers treat a miss as a fatal configuration error.
func (c *Config) Persona(id string) (*Persona, bool) {
	p, ok := c.index[id]
	return p, ok
}
