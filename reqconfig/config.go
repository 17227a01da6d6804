// Package reqconfig holds the enumerated configuration surface of spec
// section 6, split out of the root façade package so that the lower
// parser layers (which need these limits to enforce OVERLIMIT) do not
// import the façade and create a cycle.
package reqconfig

// Config enumerates every limit and knob the core parsers honor. The
// teacher has no config struct of its own; this generalizes its
// constructor-with-defaults idiom (net/textproto/tm.go's
// NewDefaultTextMessage) to the spec's enumerated surface.
type Config struct {
	// MaxBodyBytes caps total bytes fed to the body parser before
	// OVERLIMIT. Zero means unbounded.
	MaxBodyBytes uint64
	// MaxBrigadeBytes is the spill-to-disk threshold per upload part.
	MaxBrigadeBytes uint64
	// DisableUploads, if set, makes any filename part OVERLIMIT.
	DisableUploads bool
	// TempDir is where upload spill files are created.
	TempDir string
	// ReadBlockSize hints the environment adapter's read chunk size.
	ReadBlockSize uint32
	// MaxParams caps entries in a single parser's output table.
	MaxParams uint32
	// MaxHeaders caps headers per multipart part.
	MaxHeaders uint32
	// MaxNesting caps multipart nesting depth.
	MaxNesting uint8
}

// DefaultConfig returns the spec section 6 defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxBodyBytes:    0, // unbounded
		MaxBrigadeBytes: 256 << 10,
		DisableUploads:  false,
		TempDir:         "",
		ReadBlockSize:   64 << 10,
		MaxParams:       4096,
		MaxHeaders:      64,
		MaxNesting:      8,
	}
}
