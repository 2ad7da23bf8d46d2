package bytecache

// Hooks are lightweight callbacks for high-signal cache events.
// Implementations MUST be cheap and non-blocking; the cache calls them on
// hot paths. Wrap with hooks/async to decouple slow sinks.
type Hooks interface {
	// Aged-out entries were reclaimed to make room for an admission.
	Evicted(count int, bytes uint64)

	// An admission was rejected: even after reclaiming every aged-out
	// entry the marginal cost does not fit the budget.
	AdmissionRejected(cost, usage uint64)

	// A stored artifact was dropped because it could not be read back
	// (file-backed variant; reason ∈ {"corrupt_meta", "missing_blob",
	// "value_decode"}).
	SelfHeal(key, reason string)
}

// NopHooks is the default no-op.
type NopHooks struct{}

func (NopHooks) Evicted(int, uint64)              {}
func (NopHooks) AdmissionRejected(uint64, uint64) {}
func (NopHooks) SelfHeal(string, string)          {}
