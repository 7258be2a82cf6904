// Package autoload registers all built-in channel factories.
// Import for side effects:
//
//	import _ "squadflow/pkg/channels/autoload"
package autoload

import (
	_ "squadflow/pkg/channels/telegram"
	_ "squadflow/pkg/channels/web"
)
