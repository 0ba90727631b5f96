package provider

import "github.com/rhuss/tooldrive/pkg/api"

// Price is the cost per 1000 prompt and completion units.
type Price struct {
	Prompt     float64 `yaml:"prompt" json:"prompt"`
	Completion float64 `yaml:"completion" json:"completion"`
}

// Pricing maps model names to prices. The key "*" applies to models
// without their own entry.
type Pricing map[string]Price

// Cost returns the price of usage on model, or zero when no price is
// configured.
func (p Pricing) Cost(model string, usage api.Usage) float64 {
	price, ok := p[model]
	if !ok {
		if price, ok = p["*"]; !ok {
			return 0
		}
	}
	return float64(usage.PromptUnits)/1000*price.Prompt +
		float64(usage.CompletionUnits)/1000*price.Completion
}
