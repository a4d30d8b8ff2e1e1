package match

// EngineStats is an engine-wide, point-in-time counter snapshot. Updated
// under the engine's stats lock on every Submit/Cancel; read without
// touching any book lock (lock ordering: instrument map -> book ->
// stats -> trade sink, per the book's critical section discipline).
type EngineStats struct {
	TotalOrders     uint64
	ActiveOrders    uint64
	TotalTrades     uint64
	CancelledOrders uint64
	RejectedOrders  uint64
}
