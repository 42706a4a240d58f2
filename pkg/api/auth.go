package api

// TokenRequest представляет запрос пира на получение токена доступа
type TokenRequest struct {
	PeerID        string `json:"peer_id"`       // идентификатор реплики пира
	Collaboration string `json:"collaboration"` // имя коллаборации
	AuthKeyHash   string `json:"auth_key_hash"` // SHA256 хеш auth_key (hex-encoded)
}

// TokenResponse представляет ответ с токеном доступа
type TokenResponse struct {
	AccessToken string `json:"access_token"` // JWT access token
	TokenType   string `json:"token_type"`   // всегда "Bearer"
	ExpiresIn   int64  `json:"expires_in"`   // время жизни токена в секундах
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status         string   `json:"status"`
	Version        string   `json:"version,omitempty"`
	ReplicaID      string   `json:"replica_id,omitempty"`
	Collaborations []string `json:"collaborations,omitempty"`
}
