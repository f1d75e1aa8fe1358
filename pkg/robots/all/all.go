// Package all is a convenience wrapper that registers all known robot drivers.
// Importing this package enables the purpleeye factory to find drivers for any
// supported robot.
package all

// Import each driver package for its side-effects (the init() function).
import (
	_ "github.com/mlsorensen/purpleeye/pkg/robots/eye"
	_ "github.com/mlsorensen/purpleeye/pkg/robots/mock"
	// When you add a [model] robot, you would add this line:
	// _ "github.com/mlsorensen/purpleeye/pkg/robots/[model]"
)
