package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convolens_questions_total",
			Help: "Total number of questions answered, by resolved intent",
		},
		[]string{"intent"},
	)

	QuestionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convolens_question_failures_total",
			Help: "Total number of questions that ended in an error",
		},
		[]string{"intent", "code"},
	)

	StrategyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "convolens_strategy_duration_seconds",
			Help:    "Duration of strategy execution in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"intent"},
	)

	IntentFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "convolens_intent_fallbacks_total",
			Help: "Classifier outputs that matched no intent and fell back to semantic retrieval",
		},
	)

	AnswerConfidence = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "convolens_answer_confidence_total",
			Help: "Self-reported confidence tier of semantic answers",
		},
		[]string{"tier"},
	)
)
