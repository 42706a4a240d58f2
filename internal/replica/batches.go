package replica

import (
	"github.com/iudanet/deltasync/internal/models"
	"github.com/iudanet/deltasync/internal/vclock"
)

// DeltaBatches возвращает минимальную последовательность записей, доводящую
// пира targetPeerID от since до текущего состояния журнала.
//
// Подряд идущие записи с одинаковыми именем и типом сливаются через join
// в одну запись. Если join невозможен, открывается новая пачка.
// Пустая начальная пачка не отправляется.
func (s *State) DeltaBatches(since vclock.Clock, targetPeerID string) []models.DeltaRecord {
	s.mu.Lock()
	candidates := s.deltasLocked(since)
	s.mu.Unlock()

	return s.compact(since, candidates, targetPeerID)
}

func (s *State) compact(since vclock.Clock, candidates []models.DeltaRecord, targetPeerID string) []models.DeltaRecord {
	cursor := since.Copy()

	batch := &models.DeltaRecord{
		PreviousClock: cursor.Copy(),
		AuthorClock:   vclock.New(),
		Delta:         s.typ.Initial(),
		Name:          s.name,
		Type:          s.typ.Name,
	}
	var batches []*models.DeltaRecord

	for _, record := range candidates {
		if !record.IsInteresting(cursor, targetPeerID) {
			continue
		}

		recordClock := record.Clock()

		joined, ok := s.joinBatch(batch, record)
		if !ok {
			next := record.Clone()
			batch = &next
			batches = append(batches, batch)
			cursor = vclock.Merge(cursor, recordClock)
			continue
		}

		merged := vclock.Merge(batch.Clock(), recordClock)
		previous := vclock.Minimum(batch.PreviousClock, record.PreviousClock)

		batch.PreviousClock = previous
		batch.AuthorClock = vclock.Subtract(merged, previous)
		batch.Delta = joined
		cursor = vclock.Merge(cursor, merged)

		if len(batches) == 0 {
			batches = append(batches, batch)
		}
	}

	out := make([]models.DeltaRecord, 0, len(batches))
	for _, b := range batches {
		out = append(out, *b)
	}
	return out
}

// joinBatch пытается слить дельту записи в текущую пачку
func (s *State) joinBatch(batch *models.DeltaRecord, record models.DeltaRecord) (any, bool) {
	if batch.Name != record.Name || batch.Type != record.Type {
		return nil, false
	}

	typ, err := s.collab.env.types.Get(batch.Type)
	if err != nil {
		return nil, false
	}

	joined, err := typ.Join(batch.Delta, record.Delta)
	if err != nil {
		s.logger.Debug("Delta batch boundary", "type", batch.Type, "error", err)
		return nil, false
	}
	return joined, true
}
