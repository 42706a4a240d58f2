package handlers

import "context"

// contextKey тип для ключей контекста
type contextKey string

const (
	// PeerIDKey ключ для хранения peer_id в контексте
	PeerIDKey contextKey = "peer_id"
	// CollaborationKey ключ для хранения коллаборации, на которую выдан токен
	CollaborationKey contextKey = "collaboration"
)

// GetPeerID извлекает peer_id из контекста запроса
func GetPeerID(ctx context.Context) (string, bool) {
	peerID, ok := ctx.Value(PeerIDKey).(string)
	return peerID, ok
}

// GetCollaboration извлекает коллаборацию токена из контекста запроса
func GetCollaboration(ctx context.Context) (string, bool) {
	collaboration, ok := ctx.Value(CollaborationKey).(string)
	return collaboration, ok
}
