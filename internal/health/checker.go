package health

import (
	"context"
	"time"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"

	pingTimeout = 2 * time.Second
)

// Pinger is a storage liveness probe
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ModelStatus reports whether the classifier is available
type ModelStatus interface {
	Loaded() bool
	LoadError() error
}

// Detail names the failing subsystems. Model holds the model load error and
// is nil when the model is loaded.
type Detail struct {
	Model   *string `json:"model"`
	DB      bool    `json:"db"`
	DBError *string `json:"db_error"`
}

// Report is the readiness result. Detail is nil when Status is ok.
type Report struct {
	Status string  `json:"status"`
	Detail *Detail `json:"detail"`
}

// Checker aggregates classifier and storage readiness
type Checker struct {
	db    Pinger
	model ModelStatus
}

// NewChecker creates a readiness checker
func NewChecker(db Pinger, model ModelStatus) *Checker {
	return &Checker{db: db, model: model}
}

// Check probes every subsystem. Results are never cached.
func (c *Checker) Check(ctx context.Context) Report {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	dbErr := c.db.PingContext(pingCtx)
	modelOK := c.model.Loaded()

	if dbErr == nil && modelOK {
		return Report{Status: StatusOK}
	}

	d := &Detail{DB: dbErr == nil}
	if dbErr != nil {
		msg := dbErr.Error()
		d.DBError = &msg
	}
	if !modelOK {
		msg := "model not loaded"
		if err := c.model.LoadError(); err != nil {
			msg = err.Error()
		}
		d.Model = &msg
	}
	return Report{Status: StatusDegraded, Detail: d}
}
