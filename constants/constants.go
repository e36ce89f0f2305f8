package constants

import "os"

func GetMediaDir() string {
	path := os.Getenv("MEDIA_PATH")
	if path != "" {
		return path
	}
	return "./scores"
}

func GetListenAddr() string {
	addr := os.Getenv("SIGHTREADER_ADDR")
	if addr != "" {
		return addr
	}
	return ":8080"
}

// GetDynamoEndpoint returns "" when metadata lookups are disabled.
func GetDynamoEndpoint() string {
	return os.Getenv("DYNAMODB_ENDPOINT")
}

const MetadataTable = "sightreader-metadata"

// Normalizer policy.
const (
	VelocityWindowSize = 3
	// Used for a simulated press when no press velocity has been seen yet.
	FallbackVelocity = 64
)

// Output policy.
const (
	ReleaseVelocity = 64
	SustainCC       = 64
	SostenutoCC     = 66
	UnaCordaCC      = 67
)

// Default 4/4 when a MIDI file carries no meter.
const (
	DefaultMeterNum   = 4
	DefaultMeterDenom = 4
)
