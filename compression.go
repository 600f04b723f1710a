package hindex

// CompressionType selects the codec wrapping a serialized index stream.
type CompressionType uint8

const (
	// CompressionZSTD is the default codec (better ratio, good for cold data).
	CompressionZSTD CompressionType = 1
	// CompressionLZ4 trades ratio for speed (good for hot data).
	CompressionLZ4 CompressionType = 2
)
