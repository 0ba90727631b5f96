package tools

import (
	"slices"

	"github.com/rhuss/tooldrive/pkg/api"
	"github.com/rhuss/tooldrive/pkg/catalog"
)

// AllowList restricts a run to a subset of the catalog. An empty list
// allows every tool.
type AllowList []string

// Permits reports whether the named tool may be called.
func (a AllowList) Permits(name string) bool {
	return len(a) == 0 || slices.Contains(a, name)
}

// Filter returns the tools the list permits, keeping their order.
func (a AllowList) Filter(all []catalog.Tool) []catalog.Tool {
	if len(a) == 0 {
		return all
	}
	out := make([]catalog.Tool, 0, len(a))
	for _, t := range all {
		if a.Permits(t.Name) {
			out = append(out, t)
		}
	}
	return out
}

// Rejected returns the result fed back to the model for a call outside
// the allow list.
func Rejected(call api.ToolCallRequest) api.ToolExecutionResult {
	return api.Failed(call, "tool "+call.Name+" is not in the allowed_tools list")
}
