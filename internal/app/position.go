package app

import "class-quiz-service/internal/domain"

// ResolvePosition returns the index of the next question to present: the number
// of sequence entries that already have an answer. Answers are written in
// sequence order, so the answered entries always form a prefix.
func ResolvePosition(participant domain.Participant, answers []domain.Answer) int {
	answered := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		answered[a.QuestionID] = struct{}{}
	}
	n := 0
	for _, id := range participant.QuestionSequence {
		if _, ok := answered[id]; ok {
			n++
		}
	}
	return n
}
