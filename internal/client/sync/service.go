// Package sync реализует anti-entropy: узел периодически забирает у пиров
// недостающие записи журнала и отправляет им свои.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"golang.org/x/sync/errgroup"

	httpClient "github.com/iudanet/deltasync/internal/client/api"
	"github.com/iudanet/deltasync/internal/crypto"
	"github.com/iudanet/deltasync/internal/models"
	"github.com/iudanet/deltasync/internal/node"
	"github.com/iudanet/deltasync/internal/vclock"
	"github.com/iudanet/deltasync/pkg/api"
)

//go:generate moq -out service_mock.go . PeerAPI Host Recorder

// maxParallelPeers ограничивает число пиров, синхронизируемых одновременно
const maxParallelPeers = 4

// ErrUnknownCollaboration коллаборация не размещена на локальном узле
var ErrUnknownCollaboration = errors.New("collaboration is not hosted locally")

// PeerAPI операции узла-пира, нужные для anti-entropy
type PeerAPI interface {
	BaseURL() string
	RequestToken(ctx context.Context, req api.TokenRequest) (*api.TokenResponse, error)
	Pull(ctx context.Context, collaboration string, req api.PullRequest) (*api.PullResponse, error)
	Push(ctx context.Context, collaboration string, req api.PushRequest) (*api.PushResponse, error)
}

// Host коллаборации локального узла
type Host interface {
	ReplicaID() string
	Names() []string
	Lookup(name string) (*node.Hosted, bool)
	Refresh(h *node.Hosted)
}

// Recorder учитывает раунды синхронизации
type Recorder interface {
	SyncRound(direction, result string, records int)
}

// Credentials возвращает хеш auth_key коллаборации; пустая строка отключает аутентификацию
type Credentials func(collaboration string) (string, error)

// SecretCredentials выводит хеши auth_key коллабораций из общего секрета.
// Вывод Argon2id дорогой, поэтому выполняется один раз при создании.
func SecretCredentials(secret string, collaborations ...string) (Credentials, error) {
	hashes := make(map[string]string, len(collaborations))
	for _, name := range collaborations {
		keys, err := crypto.DeriveKeys(secret, name)
		if err != nil {
			return nil, fmt.Errorf("failed to derive keys for %q: %w", name, err)
		}
		hash, err := crypto.HashAuthKey(keys.AuthKey)
		if err != nil {
			return nil, err
		}
		hashes[name] = hash
	}

	return func(collaboration string) (string, error) {
		hash, ok := hashes[collaboration]
		if !ok {
			return "", fmt.Errorf("no credentials for collaboration %q", collaboration)
		}
		return hash, nil
	}, nil
}

// Config параметры anti-entropy
type Config struct {
	Host        Host
	Credentials Credentials // nil: пиры без аутентификации
	Recorder    Recorder    // nil: без метрик
	Logger      *slog.Logger
	// Dial создает клиента пира; каждая пара (пир, коллаборация) получает свой клиент,
	// потому что токен выдается на одну коллаборацию
	Dial  func(baseURL string) PeerAPI
	Peers []string
	// IsPinner локальный узел принимает только полные снимки и ничего не отправляет
	IsPinner bool
}

// Result итог синхронизации одной коллаборации с одним пиром
type Result struct {
	Peer          string
	PeerReplicaID string
	Collaboration string
	Pulled        int // записей получено
	Accepted      int // из них принято
	Pushed        int // записей отправлено
	PushAccepted  int // из них принято пиром
	Snapshot      bool
}

// Service выполняет anti-entropy с пирами
type Service struct {
	cfg     Config
	logger  *slog.Logger
	clients map[string]map[string]PeerAPI // peer -> collaboration -> client
	mu      stdsync.Mutex
}

// NewService создает сервис синхронизации
func NewService(cfg Config) (*Service, error) {
	if cfg.Host == nil {
		return nil, fmt.Errorf("host cannot be nil")
	}
	if cfg.Dial == nil {
		cfg.Dial = func(baseURL string) PeerAPI {
			return httpClient.NewClient(baseURL)
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clients := make(map[string]map[string]PeerAPI, len(cfg.Peers))
	for _, peer := range cfg.Peers {
		clients[peer] = make(map[string]PeerAPI)
	}

	return &Service{
		cfg:     cfg,
		logger:  logger,
		clients: clients,
	}, nil
}

// Run выполняет раунды синхронизации с интервалом interval до отмены ctx
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	if len(s.cfg.Peers) == 0 {
		s.logger.Info("No peers configured, anti-entropy disabled")
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.SyncAll(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("Anti-entropy round finished with errors", "error", err)
			}
		}
	}
}

// SyncAll синхронизирует все коллаборации узла со всеми пирами.
// Пиры обрабатываются параллельно, ошибки объединяются.
func (s *Service) SyncAll(ctx context.Context) ([]Result, error) {
	names := s.cfg.Host.Names()
	perPeer := make([][]Result, len(s.cfg.Peers))
	errs := make([]error, len(s.cfg.Peers))

	var g errgroup.Group
	g.SetLimit(maxParallelPeers)

	for i, peer := range s.cfg.Peers {
		g.Go(func() error {
			for _, name := range names {
				result, err := s.SyncPeer(ctx, peer, name)
				if err != nil {
					errs[i] = errors.Join(errs[i], fmt.Errorf("peer %s, collaboration %q: %w", peer, name, err))
					continue
				}
				perPeer[i] = append(perPeer[i], *result)
			}
			return nil
		})
	}
	_ = g.Wait()

	var results []Result
	for _, r := range perPeer {
		results = append(results, r...)
	}
	return results, errors.Join(errs...)
}

// SyncPeer выполняет pull и push одной коллаборации с пиром
func (s *Service) SyncPeer(ctx context.Context, peer, collaboration string) (*Result, error) {
	hosted, ok := s.cfg.Host.Lookup(collaboration)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollaboration, collaboration)
	}

	client, err := s.client(peer, collaboration)
	if err != nil {
		return nil, err
	}

	result := &Result{Peer: peer, Collaboration: collaboration}

	pulled, err := s.pull(ctx, client, hosted, result)
	if err != nil {
		s.record("pull", "error", 0)
		return nil, err
	}

	if s.cfg.IsPinner {
		return result, nil
	}

	if err := s.push(ctx, client, hosted, vclock.Clock(pulled.Clock), result); err != nil {
		s.record("push", "error", 0)
		return nil, err
	}

	s.logger.Debug("Anti-entropy round completed",
		"peer", peer,
		"collaboration", collaboration,
		"pulled", result.Pulled,
		"accepted", result.Accepted,
		"pushed", result.Pushed,
		"snapshot", result.Snapshot)

	return result, nil
}

// pull забирает записи пира и применяет их локально
func (s *Service) pull(ctx context.Context, client PeerAPI, hosted *node.Hosted, result *Result) (*api.PullResponse, error) {
	collab := hosted.Collab

	req := api.PullRequest{
		PeerID:   s.cfg.Host.ReplicaID(),
		Since:    api.Clock(collab.Shared().Clock()),
		IsPinner: s.cfg.IsPinner,
	}

	var resp *api.PullResponse
	err := s.withAuth(ctx, client, collab.Name(), func() error {
		var err error
		resp, err = client.Pull(ctx, collab.Name(), req)
		return err
	})
	if err != nil {
		return nil, err
	}

	records, err := models.DecodeRecords(resp.Records)
	if err != nil {
		return nil, err
	}

	peerClock := vclock.Clock(resp.Clock)
	result.PeerReplicaID = resp.ReplicaID
	result.Pulled = len(records)
	result.Snapshot = resp.Snapshot

	hosted.Tracker.Receiving(resp.ReplicaID, peerClock)
	accepted, err := collab.ApplyAll(ctx, records, resp.Snapshot)
	s.cfg.Host.Refresh(hosted)
	result.Accepted = accepted
	if err != nil {
		return nil, fmt.Errorf("failed to apply records from %s: %w", resp.ReplicaID, err)
	}
	hosted.Tracker.Received(resp.ReplicaID, peerClock)

	outcome := "ok"
	if resp.Snapshot {
		outcome = "snapshot"
	}
	s.record("pull", outcome, accepted)

	return resp, nil
}

// push отправляет пиру записи, которых нет в его часах peerClock
func (s *Service) push(ctx context.Context, client PeerAPI, hosted *node.Hosted, peerClock vclock.Clock, result *Result) error {
	collab := hosted.Collab
	clock := collab.Shared().Clock()

	if vclock.LessOrEqual(clock, peerClock) {
		return nil
	}

	records, snapshot := collab.CatchUp(peerClock, result.PeerReplicaID)
	if len(records) == 0 {
		return nil
	}

	encoded, err := models.EncodeRecords(records)
	if err != nil {
		return err
	}

	hosted.Tracker.Sending(result.PeerReplicaID, clock, false)

	req := api.PushRequest{
		PeerID:   s.cfg.Host.ReplicaID(),
		Clock:    api.Clock(clock),
		Records:  encoded,
		Snapshot: snapshot,
	}

	var resp *api.PushResponse
	err = s.withAuth(ctx, client, collab.Name(), func() error {
		var err error
		resp, err = client.Push(ctx, collab.Name(), req)
		return err
	})
	if err != nil {
		return err
	}

	hosted.Tracker.Sent(result.PeerReplicaID, vclock.Clock(resp.Clock), false)

	result.Pushed = len(records)
	result.PushAccepted = resp.Accepted

	outcome := "ok"
	if snapshot {
		outcome = "snapshot"
	}
	s.record("push", outcome, len(records))
	return nil
}

// withAuth выполняет call, получая токен при первом обращении и после 401
func (s *Service) withAuth(ctx context.Context, client PeerAPI, collaboration string, call func() error) error {
	err := call()
	if err == nil || s.cfg.Credentials == nil || !httpClient.IsUnauthorized(err) {
		return err
	}

	if authErr := s.authenticate(ctx, client, collaboration); authErr != nil {
		return authErr
	}
	return call()
}

func (s *Service) authenticate(ctx context.Context, client PeerAPI, collaboration string) error {
	hash, err := s.cfg.Credentials(collaboration)
	if err != nil {
		return err
	}

	_, err = client.RequestToken(ctx, api.TokenRequest{
		PeerID:        s.cfg.Host.ReplicaID(),
		Collaboration: collaboration,
		AuthKeyHash:   hash,
	})
	if err != nil {
		return fmt.Errorf("failed to authenticate with %s: %w", client.BaseURL(), err)
	}

	s.logger.Debug("Authenticated with peer", "peer", client.BaseURL(), "collaboration", collaboration)
	return nil
}

// client возвращает клиента пары (пир, коллаборация)
func (s *Service) client(peer, collaboration string) (PeerAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byCollab, ok := s.clients[peer]
	if !ok {
		return nil, fmt.Errorf("unknown peer %q", peer)
	}

	c, ok := byCollab[collaboration]
	if !ok {
		c = s.cfg.Dial(peer)
		byCollab[collaboration] = c
	}
	return c, nil
}

func (s *Service) record(direction, result string, records int) {
	if s.cfg.Recorder != nil {
		s.cfg.Recorder.SyncRound(direction, result, records)
	}
}
