package vclock

// IsDeltaInteresting определяет, несет ли дельта с причинным контекстом
// previous и приращением author новую информацию для держателя часов known.
//
// Дельта интересна, если ее итоговые часы (previous + author) не
// доминируются known. Если задан targetID, дополнительно отбрасываются
// дельты, автором которых является сама реплика targetID и чей счетчик
// targetID ей уже известен: реплика всегда знает собственные операции.
func IsDeltaInteresting(previous, author, known Clock, targetID string) bool {
	deltaClock := Sum(previous, author)
	if LessOrEqual(deltaClock, known) {
		return false
	}

	if targetID != "" && authoredOnlyBy(author, targetID) {
		return deltaClock[targetID] > known[targetID]
	}

	return true
}

// authoredOnlyBy проверяет, что приращение принадлежит только реплике id
func authoredOnlyBy(author Clock, id string) bool {
	if author[id] == 0 {
		return false
	}
	for other, counter := range author {
		if other != id && counter > 0 {
			return false
		}
	}
	return true
}
