package catalog

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Embedded unified-schema fixtures.
const (
	DemoKeplerCSV = `mission,id,name,disposition,period_days,radius_re,snr
Kepler,1234567,Kepler-10 b,CONFIRMED,0.837,1.42,25
Kepler,7654321,Kepler-XYZ c,CANDIDATE,12.5,2.3,12`

	DemoTESSCSV = `mission,id,name,disposition,period_days,radius_re,snr
TESS,123456789,TOI-700 d,CONFIRMED,37.4,1.14,`
)

// Sample names a built-in or published dataset.
type Sample struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// Text is set for embedded samples.
	Text string `json:"-"`
	// File is set for published samples, relative to the data directory.
	File string `json:"file,omitempty"`
}

// Embedded reports whether the sample ships with the binary.
func (s Sample) Embedded() bool { return s.File == "" }

var samples = map[string]Sample{
	"demo:kepler":   {Name: "demo:kepler", Description: "Demo (unified tiny, Kepler)", Text: DemoKeplerCSV},
	"demo:tess":     {Name: "demo:tess", Description: "Demo (unified tiny, TESS)", Text: DemoTESSCSV},
	"public:kepler": {Name: "public:kepler", Description: "Kepler KOI (live data export)", File: "kepler_koi.csv"},
	"public:tess":   {Name: "public:tess", Description: "TESS TOI (live data export)", File: "tess_toi.csv"},
}

// UnknownSampleError is returned for sample names that are not registered.
type UnknownSampleError struct {
	Name      string
	Available []string
}

func (e *UnknownSampleError) Error() string {
	return fmt.Sprintf("unknown sample %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// IsSampleRef reports whether ref uses a sample prefix.
func IsSampleRef(ref string) bool {
	return strings.HasPrefix(ref, "demo:") || strings.HasPrefix(ref, "public:")
}

// LookupSample finds a sample by name.
func LookupSample(name string) (Sample, error) {
	s, ok := samples[name]
	if !ok {
		return Sample{}, &UnknownSampleError{Name: name, Available: SampleNames()}
	}
	return s, nil
}

// SampleNames lists registered sample names, sorted.
func SampleNames() []string {
	names := make([]string, 0, len(samples))
	for n := range samples {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Samples lists registered samples sorted by name.
func Samples() []Sample {
	out := make([]Sample, 0, len(samples))
	for _, n := range SampleNames() {
		out = append(out, samples[n])
	}
	return out
}

// Path resolves a published sample against dataDir. Embedded samples return "".
func (s Sample) Path(dataDir string) string {
	if s.Embedded() {
		return ""
	}
	return filepath.Join(dataDir, s.File)
}
