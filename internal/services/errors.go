package services

import "errors"

var (
	// ErrExtraction wraps any failure of the text extractor.
	ErrExtraction = errors.New("text extraction failed")
	// ErrNoQuestions is returned when the question stage yields nothing usable.
	ErrNoQuestions = errors.New("model returned no questions")
	// ErrNoPairs is returned when a single-shot response holds no usable pairs.
	ErrNoPairs = errors.New("model returned no question-answer pairs")
	// ErrAllAnswersFailed is returned when every answer call of a document failed.
	ErrAllAnswersFailed = errors.New("every answer call failed")
	// ErrPersistence wraps any failure to store an artifact.
	ErrPersistence = errors.New("failed to persist artifact")
	// ErrRefusal is returned when the model declines to answer.
	ErrRefusal = errors.New("model response indicates refusal")
)
