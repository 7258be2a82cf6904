// Package autoload registers all built-in LLM providers.
// Import for side effects:
//
//	import _ "squadflow/pkg/llm/autoload"
package autoload

import (
	_ "squadflow/pkg/llm/gemini"
	_ "squadflow/pkg/llm/ollamalm"
	_ "squadflow/pkg/llm/openailm"
)
