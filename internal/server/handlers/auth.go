package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/iudanet/deltasync/internal/crypto"
	"github.com/iudanet/deltasync/internal/validation"
	"github.com/iudanet/deltasync/pkg/api"
)

// KeyStore возвращает auth_key коллаборации
type KeyStore interface {
	AuthKey(collaboration string) ([]byte, bool)
}

// StaticKeys ключи коллабораций, выведенные из общего секрета при старте узла
type StaticKeys map[string][]byte

// NewStaticKeys выводит auth_key каждой коллаборации из secret
func NewStaticKeys(secret string, collaborations ...string) (StaticKeys, error) {
	keys := make(StaticKeys, len(collaborations))
	for _, name := range collaborations {
		derived, err := crypto.DeriveKeys(secret, name)
		if err != nil {
			return nil, err
		}
		keys[name] = derived.AuthKey
	}
	return keys, nil
}

// AuthKey реализует KeyStore
func (k StaticKeys) AuthKey(collaboration string) ([]byte, bool) {
	key, ok := k[collaboration]
	return key, ok
}

// AuthHandler выдает токены пирам, доказавшим знание секрета коллаборации
type AuthHandler struct {
	logger    *slog.Logger
	keys      KeyStore
	jwtConfig JWTConfig
}

// NewAuthHandler создает новый handler для авторизации пиров
func NewAuthHandler(logger *slog.Logger, keys KeyStore, jwtConfig JWTConfig) *AuthHandler {
	return &AuthHandler{
		logger:    logger,
		keys:      keys,
		jwtConfig: jwtConfig,
	}
}

// Token обрабатывает POST /api/v1/auth/token
// Пир присылает SHA256 хеш auth_key, выведенного из секрета коллаборации
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode token request", slog.Any("error", err))
		sendError(w, h.logger, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := validation.ValidatePeerID(req.PeerID); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}
	if err := validation.ValidateName(req.Collaboration); err != nil {
		sendError(w, h.logger, err.Error(), http.StatusBadRequest)
		return
	}
	if req.AuthKeyHash == "" {
		sendError(w, h.logger, "auth_key_hash is required", http.StatusBadRequest)
		return
	}

	// Неизвестная коллаборация и неверный ключ неразличимы для пира
	authKey, ok := h.keys.AuthKey(req.Collaboration)
	if !ok {
		h.logger.WarnContext(ctx, "token requested for unknown collaboration",
			slog.String("peer_id", req.PeerID), slog.String("collaboration", req.Collaboration))
		sendError(w, h.logger, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := crypto.VerifyAuthKey(authKey, req.AuthKeyHash); err != nil {
		h.logger.WarnContext(ctx, "invalid auth key",
			slog.String("peer_id", req.PeerID), slog.String("collaboration", req.Collaboration))
		sendError(w, h.logger, "invalid credentials", http.StatusUnauthorized)
		return
	}

	accessToken, expiresIn, err := GenerateAccessToken(h.jwtConfig, req.PeerID, req.Collaboration)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to generate access token", slog.Any("error", err))
		sendError(w, h.logger, "internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.InfoContext(ctx, "peer token issued",
		slog.String("peer_id", req.PeerID), slog.String("collaboration", req.Collaboration))

	sendJSON(w, h.logger, api.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
	}, http.StatusOK)
}
