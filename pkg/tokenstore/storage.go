package tokenstore

// Storage is a synchronous string key/value area. Implementations must be
// safe for concurrent use. Get reports ok=false for a missing key; error is
// reserved for failures of the underlying medium.
type Storage interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(keys ...string) error
}
