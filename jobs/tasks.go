// Package jobs runs the engine's background work on asynq: nightly trial
// balance integrity checks and report cache warmup.
package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// TypeIntegrityCheck verifies the trial balance self-check for every
	// tenant; an imbalance means corrupted books and pages someone.
	TypeIntegrityCheck = "ledger:integrity"
	// TypeReportWarmup precomputes the statements so the first morning
	// request hits a warm cache.
	TypeReportWarmup = "reports:warmup"
	// TypeIntegritySweep fans out an integrity check per tenant.
	TypeIntegritySweep = "ledger:integrity_sweep"
	// TypeWarmupSweep fans out report warmup per tenant.
	TypeWarmupSweep = "reports:warmup_sweep"
)

// TenantPayload scopes a task to one tenant.
type TenantPayload struct {
	TenantID uuid.UUID `json:"tenantId"`
}

// NewIntegrityCheckTask builds a per-tenant integrity check task.
func NewIntegrityCheckTask(tenantID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(TenantPayload{TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeIntegrityCheck, payload), nil
}

// NewReportWarmupTask builds a per-tenant report warmup task.
func NewReportWarmupTask(tenantID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(TenantPayload{TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReportWarmup, payload), nil
}
