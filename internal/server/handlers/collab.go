package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/iudanet/deltasync/internal/crdt"
	"github.com/iudanet/deltasync/internal/models"
	"github.com/iudanet/deltasync/internal/node"
	"github.com/iudanet/deltasync/internal/replica"
	"github.com/iudanet/deltasync/internal/validation"
	"github.com/iudanet/deltasync/internal/vclock"
	"github.com/iudanet/deltasync/pkg/api"
)

// Host коллаборации, доступные через HTTP
type Host interface {
	ReplicaID() string
	Lookup(name string) (*node.Hosted, bool)
	Sub(ctx context.Context, h *node.Hosted, name, typeName string) (*replica.Collaboration, error)
	Refresh(h *node.Hosted)
}

// CollabHandler обслуживает обмен записями журнала с пирами
type CollabHandler struct {
	logger *slog.Logger
	host   Host
}

// NewCollabHandler создает handler коллабораций
func NewCollabHandler(logger *slog.Logger, host Host) *CollabHandler {
	return &CollabHandler{
		logger: logger,
		host:   host,
	}
}

// resolve находит коллаборацию из пути запроса.
// Токен пира действует только для той коллаборации, на которую выдан.
func (h *CollabHandler) resolve(w http.ResponseWriter, r *http.Request) (*node.Hosted, bool) {
	name := r.PathValue("name")

	if allowed, ok := GetCollaboration(r.Context()); ok && allowed != name {
		h.logger.WarnContext(r.Context(), "token collaboration mismatch",
			slog.String("collaboration", name), slog.String("token_collaboration", allowed))
		sendError(w, h.logger, "token is not valid for this collaboration", http.StatusForbidden)
		return nil, false
	}

	hosted, ok := h.host.Lookup(name)
	if !ok {
		sendError(w, h.logger, fmt.Sprintf("collaboration %q not found", name), http.StatusNotFound)
		return nil, false
	}
	return hosted, true
}

// checkPeer сверяет peer_id из тела запроса с peer_id токена
func (h *CollabHandler) checkPeer(w http.ResponseWriter, r *http.Request, peerID string) bool {
	if err := validation.ValidatePeerID(peerID); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return false
	}
	if authenticated, ok := GetPeerID(r.Context()); ok && authenticated != peerID {
		h.logger.WarnContext(r.Context(), "peer_id mismatch",
			slog.String("expected", authenticated), slog.String("got", peerID))
		sendError(w, h.logger, "peer_id mismatch", http.StatusForbidden)
		return false
	}
	return true
}

// Clock обрабатывает GET /api/v1/collab/{name}/clock
func (h *CollabHandler) Clock(w http.ResponseWriter, r *http.Request) {
	hosted, ok := h.resolve(w, r)
	if !ok {
		return
	}

	sendJSON(w, h.logger, api.ClockResponse{
		Clock:     api.Clock(hosted.Collab.Shared().Clock()),
		Name:      hosted.Collab.Name(),
		ReplicaID: h.host.ReplicaID(),
	}, http.StatusOK)
}

// Pull обрабатывает POST /api/v1/collab/{name}/pull
// Возвращает сжатые батчи от часов пира или полные снимки при причинном разрыве
func (h *CollabHandler) Pull(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hosted, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var req api.PullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode pull request", slog.Any("error", err))
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}
	if !h.checkPeer(w, r, req.PeerID) {
		return
	}

	since := vclock.Clock(req.Since)
	clock := hosted.Collab.Shared().Clock()
	hosted.Tracker.Sending(req.PeerID, clock, req.IsPinner)

	var (
		records  []models.DeltaRecord
		snapshot bool
	)
	if req.IsPinner {
		records, snapshot = hosted.Collab.Snapshots(), true
	} else {
		records, snapshot = hosted.Collab.CatchUp(since, req.PeerID)
	}

	encoded, err := models.EncodeRecords(records)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to encode records", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(w, h.logger, api.PullResponse{
		Clock:     api.Clock(clock),
		ReplicaID: h.host.ReplicaID(),
		Records:   encoded,
		Snapshot:  snapshot,
	}, http.StatusOK)

	hosted.Tracker.Sent(req.PeerID, clock, req.IsPinner)

	h.logger.DebugContext(ctx, "pull served",
		slog.String("peer_id", req.PeerID),
		slog.Int("records", len(records)),
		slog.Bool("snapshot", snapshot))
}

// Push обрабатывает POST /api/v1/collab/{name}/push
// Применяет записи пира; устаревшие записи отклоняются без ошибки
func (h *CollabHandler) Push(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hosted, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var req api.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode push request", slog.Any("error", err))
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}
	if !h.checkPeer(w, r, req.PeerID) {
		return
	}

	records, err := models.DecodeRecords(req.Records)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid delta record", slog.String("peer_id", req.PeerID), slog.Any("error", err))
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}

	peerClock := vclock.Clock(req.Clock)
	hosted.Tracker.Receiving(req.PeerID, peerClock)

	accepted, err := hosted.Collab.ApplyAll(ctx, records, req.Snapshot)
	h.host.Refresh(hosted)
	if err != nil {
		status := applyErrorStatus(err)
		h.logger.WarnContext(ctx, "failed to apply records",
			slog.String("peer_id", req.PeerID), slog.Int("accepted", accepted), slog.Any("error", err))
		sendError(w, h.logger, err.Error(), status)
		return
	}

	hosted.Tracker.Received(req.PeerID, peerClock)

	h.logger.InfoContext(ctx, "push applied",
		slog.String("peer_id", req.PeerID),
		slog.Int("accepted", accepted),
		slog.Int("rejected", len(records)-accepted))

	sendJSON(w, h.logger, api.PushResponse{
		Clock:    api.Clock(hosted.Collab.Shared().Clock()),
		Accepted: accepted,
		Rejected: len(records) - accepted,
	}, http.StatusOK)
}

// Snapshot обрабатывает GET /api/v1/collab/{name}/snapshot
func (h *CollabHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	hosted, ok := h.resolve(w, r)
	if !ok {
		return
	}

	encoded, err := models.EncodeRecords(hosted.Collab.Snapshots())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode snapshots", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	sendJSON(w, h.logger, api.SnapshotResponse{
		Clock:   api.Clock(hosted.Collab.Shared().Clock()),
		Records: encoded,
	}, http.StatusOK)
}

// Value обрабатывает GET /api/v1/collab/{name}/value?sub=<name>
func (h *CollabHandler) Value(w http.ResponseWriter, r *http.Request) {
	hosted, ok := h.resolve(w, r)
	if !ok {
		return
	}

	target := hosted.Collab
	if sub := r.URL.Query().Get("sub"); sub != "" {
		found, ok := hosted.Collab.Find(sub)
		if !ok {
			sendError(w, h.logger, fmt.Sprintf("sub-collaboration %q not found", sub), http.StatusNotFound)
			return
		}
		target = found
	}

	state := target.Shared()
	sendJSON(w, h.logger, api.ValueResponse{
		Value: state.Value(),
		Clock: api.Clock(state.Clock()),
		Name:  state.Name(),
		Type:  state.TypeName(),
	}, http.StatusOK)
}

// Mutate обрабатывает POST /api/v1/collab/{name}/mutate
// Локальная мутация от имени этого узла
func (h *CollabHandler) Mutate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hosted, ok := h.resolve(w, r)
	if !ok {
		return
	}

	var req api.MutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode mutate request", slog.Any("error", err))
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Mutator == "" {
		sendError(w, h.logger, "mutator is required", http.StatusBadRequest)
		return
	}

	target := hosted.Collab
	if req.Sub != "" {
		if err := validation.ValidateName(req.Sub); err != nil {
			sendError(w, h.logger, err.Error(), http.StatusBadRequest)
			return
		}

		typeName := req.Type
		if existing, found := hosted.Collab.Find(req.Sub); found && typeName == "" {
			typeName = existing.Shared().TypeName()
		}
		if typeName == "" {
			sendError(w, h.logger, "type is required for a new sub-collaboration", http.StatusBadRequest)
			return
		}

		sub, err := h.host.Sub(ctx, hosted, req.Sub, typeName)
		if err != nil {
			sendError(w, h.logger, err.Error(), mutateErrorStatus(err))
			return
		}
		target = sub
	}

	clock, err := target.Shared().Mutate(req.Mutator, req.Args...)
	if err != nil {
		h.logger.WarnContext(ctx, "mutation failed",
			slog.String("name", target.Name()), slog.String("mutator", req.Mutator), slog.Any("error", err))
		sendError(w, h.logger, err.Error(), mutateErrorStatus(err))
		return
	}

	sendJSON(w, h.logger, api.MutateResponse{Clock: api.Clock(clock)}, http.StatusOK)
}

// mutateErrorStatus сопоставляет ошибку мутации с HTTP статусом
func mutateErrorStatus(err error) int {
	switch {
	case errors.Is(err, replica.ErrUnknownMutator),
		errors.Is(err, crdt.ErrInvalidArgument),
		errors.Is(err, crdt.ErrUnknownType):
		return http.StatusBadRequest
	case errors.Is(err, replica.ErrReplicateOnly):
		return http.StatusConflict
	case errors.Is(err, crdt.ErrJoinIncompatible),
		errors.Is(err, replica.ErrHierarchyTooDeep),
		errors.Is(err, replica.ErrUnknownSubCollaboration):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// applyErrorStatus сопоставляет ошибку применения записей с HTTP статусом
func applyErrorStatus(err error) int {
	switch {
	case errors.Is(err, replica.ErrUnknownSubCollaboration),
		errors.Is(err, replica.ErrHierarchyTooDeep),
		errors.Is(err, crdt.ErrJoinIncompatible),
		errors.Is(err, crdt.ErrUnknownType):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
