package handoff_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kode4food/paisley/internal/assert"
	"github.com/kode4food/paisley/internal/assert/helpers"
	"github.com/kode4food/paisley/pkg/api"
	"github.com/kode4food/paisley/pkg/handoff"
)

func TestOracleWorkerInvoke(t *testing.T) {
	as := assert.New(t)
	oracle := helpers.NewStaticOracle(helpers.Text("checked your account"))
	worker := handoff.NewOracleWorker(
		"billing", "Billing", "You handle billing questions.", oracle,
	)

	as.Equal("billing", worker.ID())
	as.Equal("Billing", worker.Name())

	output, thread, err := worker.Invoke(
		context.Background(), nil, "why was I charged twice?",
	)
	as.Require.NoError(err)
	as.Equal("checked your account", output)

	// The thread records the exchange without the persona
	as.Require.Len(thread, 2)
	as.Equal(api.RoleUser, thread[0].Role)
	as.Equal("why was I charged twice?", thread[0].Content)
	as.Equal(api.RoleAssistant, thread[1].Role)
	as.Equal("checked your account", thread[1].Content)

	// The oracle saw persona, then the message
	reqs := oracle.Requests()
	as.Require.Len(reqs, 1)
	as.Require.Len(reqs[0].Messages, 2)
	as.Equal(api.RoleSystem, reqs[0].Messages[0].Role)
	as.Equal("You handle billing questions.", reqs[0].Messages[0].Content)
	as.Equal(api.RoleUser, reqs[0].Messages[1].Role)
}

func TestOracleWorkerCarriesThread(t *testing.T) {
	as := assert.New(t)
	oracle := helpers.NewStaticOracle(helpers.Text("second reply"))
	worker := handoff.NewOracleWorker("triage", "Triage", "", oracle)

	prior := api.Thread{}.
		Append(api.RoleUser, "first question").
		Append(api.RoleAssistant, "first reply")

	_, thread, err := worker.Invoke(
		context.Background(), prior, "second question",
	)
	as.Require.NoError(err)
	as.Len(thread, 4)

	// Prior history precedes the new message in the oracle request; with
	// no persona there is no system entry
	reqs := oracle.Requests()
	as.Require.Len(reqs, 1)
	as.Require.Len(reqs[0].Messages, 3)
	as.Equal("first question", reqs[0].Messages[0].Content)
	as.Equal("second question", reqs[0].Messages[2].Content)
}

func TestOracleWorkerOracleError(t *testing.T) {
	as := assert.New(t)
	boom := errors.New("model unavailable")
	worker := handoff.NewOracleWorker(
		"triage", "Triage", "", helpers.NewFailingOracle(boom),
	)

	output, thread, err := worker.Invoke(context.Background(), nil, "hello")
	as.ErrorIs(err, boom)
	as.Empty(output)
	as.Empty(thread)
}

func TestOracleWorkerEmptyDecision(t *testing.T) {
	as := assert.New(t)
	worker := handoff.NewOracleWorker(
		"triage", "Triage", "", helpers.NewStaticOracle(&api.Decision{}),
	)

	_, _, err := worker.Invoke(context.Background(), nil, "hello")
	as.ErrorIs(err, handoff.ErrEmptyDecision)
}
