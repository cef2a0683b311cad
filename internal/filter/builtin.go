package filter

// Names of the compiled-in filters.
const (
	RawName           = "raw"
	MakeNoiseName     = "gcc_make"
	DiagnosticsName   = "gcc_json"
	CrashDetectorName = "crash_detector"
)

// Builtins returns the compiled-in registrations.
func Builtins() []Registration {
	return []Registration{
		{
			Name:        RawName,
			Description: "strip ANSI escape sequences",
			Tier:        TierBuiltin,
			Origin:      "builtin",
			Factory:     func(map[string]any) (Filter, error) { return Raw{}, nil },
		},
		{
			Name:        MakeNoiseName,
			Description: "drop recursive make noise, keep diagnostics with context",
			Tier:        TierBuiltin,
			Origin:      "builtin",
			Factory: func(cfg map[string]any) (Filter, error) {
				return NewMakeNoise(stringOption(cfg, "path_strip")), nil
			},
		},
		{
			Name:        DiagnosticsName,
			Description: "compiler diagnostics as JSON",
			Tier:        TierBuiltin,
			Origin:      "builtin",
			Factory:     func(map[string]any) (Filter, error) { return Diagnostics{}, nil },
		},
		{
			Name:        CrashDetectorName,
			Description: "prepend a fatal entry when the output shows a runtime crash",
			Tier:        TierBuiltin,
			Origin:      "builtin",
			Factory:     func(map[string]any) (Filter, error) { return CrashDetector{}, nil },
		},
	}
}

// Raw strips ANSI escape sequences and passes everything else through.
type Raw struct{}

func (Raw) Process(text string) (string, error) { return StripANSI(text), nil }
