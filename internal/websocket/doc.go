// Package websocket pushes live operation progress to browser clients.
// A single Hub fans events.Message frames out over gorilla/websocket
// connections; OperationBroadcaster feeds it snapshots from the
// operations manager.
package websocket
