package api

import "encoding/json"

// Clock векторные часы в сетевом представлении: реплика -> счетчик
type Clock map[string]uint64

// ClockResponse текущие часы коллаборации
type ClockResponse struct {
	Clock     Clock  `json:"clock"`
	Name      string `json:"name"`
	ReplicaID string `json:"replica_id"`
}

// PullRequest запрос пира на догоняющую синхронизацию
type PullRequest struct {
	Since    Clock  `json:"since"`     // часы, известные пиру
	PeerID   string `json:"peer_id"`   // идентификатор реплики пира
	IsPinner bool   `json:"is_pinner"` // пир принимает только полные снимки
}

// PullResponse записи для пира.
// Каждая запись закодирована кортежем [previousClock, authorClock, [name, type, delta]].
type PullResponse struct {
	Clock     Clock             `json:"clock"`      // часы отправителя
	ReplicaID string            `json:"replica_id"` // идентификатор отправителя
	Records   []json.RawMessage `json:"records"`
	Snapshot  bool              `json:"snapshot"` // записи являются полными снимками
}

// PushRequest отправка записей на узел
type PushRequest struct {
	Clock    Clock             `json:"clock"`   // часы отправителя
	PeerID   string            `json:"peer_id"` // идентификатор реплики отправителя
	Records  []json.RawMessage `json:"records"`
	Snapshot bool              `json:"snapshot"` // применять с force
}

// PushResponse результат применения записей
type PushResponse struct {
	Clock    Clock `json:"clock"`    // часы узла после применения
	Accepted int   `json:"accepted"` // принятые записи
	Rejected int   `json:"rejected"` // устаревшие записи
}

// SnapshotResponse полные снимки всех реплик коллаборации
type SnapshotResponse struct {
	Clock   Clock             `json:"clock"`
	Records []json.RawMessage `json:"records"`
}

// ValueResponse значение реплики
type ValueResponse struct {
	Value any    `json:"value"`
	Clock Clock  `json:"clock"`
	Name  string `json:"name"`
	Type  string `json:"type"`
}

// MutateRequest локальная мутация реплики.
// Пустой Sub означает корневую реплику; для вложенной Type обязателен.
type MutateRequest struct {
	Sub     string `json:"sub,omitempty"`
	Type    string `json:"type,omitempty"`
	Mutator string `json:"mutator"`
	Args    []any  `json:"args"`
}

// MutateResponse часы после мутации
type MutateResponse struct {
	Clock Clock `json:"clock"`
}
