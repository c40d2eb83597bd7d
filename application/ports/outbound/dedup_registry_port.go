package outbound

// DedupRegistryPort tracks phone numbers that already went through the
// pipeline. Reserve is an atomic test-and-set: of any number of concurrent
// callers for the same phone number, exactly one gets true.
type DedupRegistryPort interface {
	Reserve(phoneNumber string) bool
	Commit(phoneNumber string)
	Release(phoneNumber string)
}
