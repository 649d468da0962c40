package domain

// KeyPrefix namespaces all assistant keys in the store.
const KeyPrefix = "assistant:"

// DefaultVectorDimensions is the embedding dimensionality when the config does
// not specify one.
const DefaultVectorDimensions = 768
