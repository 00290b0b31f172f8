package ir

// Version constants for the plan model and compiler.
const (
	// IRVersion is the plan model version.
	IRVersion = "1"

	// CompilerVersion is the ctmflow compiler version.
	CompilerVersion = "0.1.0"
)
