package operations

// Broadcaster receives operation snapshots as they change. The websocket
// hub adapter implements it for live clients; NopBroadcaster drops them.
type Broadcaster interface {
	BroadcastOperation(snapshot Snapshot)
}

// NopBroadcaster ignores every snapshot.
type NopBroadcaster struct{}

func (NopBroadcaster) BroadcastOperation(Snapshot) {}
