package catalog

// Capabilities describes what the presentation layer can offer for a step icon.
type Capabilities struct {
	Glyph       string
	CameraProof bool
	Checklist   bool
	SensorFeed  bool
}

var iconCapabilities = map[string]Capabilities{
	"tractor": {Glyph: "🚜", CameraProof: true},
	"seed":    {Glyph: "🌱", CameraProof: true},
	"sprout":  {Glyph: "🌿", CameraProof: true},
	"droplet": {Glyph: "💧", CameraProof: true, SensorFeed: true},
	"shield":  {Glyph: "🛡", CameraProof: true, Checklist: true},
	"sickle":  {Glyph: "🌾", CameraProof: true},
	"sun":     {Glyph: "☀", CameraProof: true},
	"gauge":   {Glyph: "📟", SensorFeed: true},
	"basket":  {Glyph: "🧺", CameraProof: true},
}

var fallbackCapabilities = Capabilities{Glyph: "•", CameraProof: true}

// IconCapabilities maps a step's icon tag to its presentation capabilities.
// Unknown tags fall back to a plain bullet with camera proof.
func IconCapabilities(icon string) Capabilities {
	if c, ok := iconCapabilities[icon]; ok {
		return c
	}
	return fallbackCapabilities
}
