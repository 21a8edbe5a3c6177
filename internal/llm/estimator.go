package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const estimatorSystemPrompt = `You estimate how long personal tasks take. Respond ONLY with JSON: {"minutes": N} where N is a whole number of minutes between 15 and 480. No markdown, no explanation.`

const estimatorUserTemplate = `Estimate the duration of this task in minutes.

Task: %s%s

Consider typical effort for a single person. Round to a multiple of 15.`

// DefaultEstimateMinutes is returned whenever an estimate cannot be
// obtained. Estimation failures are never propagated.
const DefaultEstimateMinutes = 30

const estimateTimeout = 15 * time.Second

// Estimator guesses task durations using an LLM client.
type Estimator struct {
	client Client
}

// NewEstimator creates an Estimator. A nil client always yields the
// default estimate.
func NewEstimator(client Client) *Estimator {
	return &Estimator{client: client}
}

// Estimate returns a duration in minutes for the given task. Any failure
// — no client, transport error, malformed reply, out-of-range value —
// yields DefaultEstimateMinutes.
func (e *Estimator) Estimate(ctx context.Context, title, notes string) int {
	if e.client == nil || strings.TrimSpace(title) == "" {
		return DefaultEstimateMinutes
	}

	ctx, cancel := context.WithTimeout(ctx, estimateTimeout)
	defer cancel()

	noteLine := ""
	if strings.TrimSpace(notes) != "" {
		noteLine = fmt.Sprintf("\nNotes: %s", notes)
	}

	var reply struct {
		Minutes int `json:"minutes"`
	}
	err := e.client.ChatJSON(ctx, []Message{
		{Role: "system", Content: estimatorSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(estimatorUserTemplate, title, noteLine)},
	}, &reply)
	if err != nil {
		return DefaultEstimateMinutes
	}

	if reply.Minutes < 15 || reply.Minutes > 480 {
		return DefaultEstimateMinutes
	}
	return reply.Minutes
}
