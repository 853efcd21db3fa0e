package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"ngo-portal-backend/internal/apperr"
	"ngo-portal-backend/internal/logging"
	"ngo-portal-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Mode selects how the audit row relates to the business mutation.
type Mode string

const (
	// ModeAtomic writes the mutation and its audit row in one transaction.
	ModeAtomic Mode = "atomic"
	// ModeBestEffort commits the mutation first and then writes the audit
	// row; a failed audit write is logged and the mutation stands.
	ModeBestEffort Mode = "best_effort"
)

// Changes is the before/after payload of an audit row.
type Changes struct {
	Before any `json:"before,omitempty"`
	After  any `json:"after,omitempty"`
}

func CreateChanges(after any) Changes { return Changes{After: after} }

func UpdateChanges(before, after any) Changes { return Changes{Before: before, After: after} }

func DeleteChanges(before any) Changes { return Changes{Before: before} }

// Metadata describes where a mutation came from. Every field is optional.
type Metadata struct {
	IP        string `json:"ip,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

// MetadataFromFiber captures request metadata for an audit row.
func MetadataFromFiber(c *fiber.Ctx) *Metadata {
	ip := strings.TrimSpace(strings.Split(c.Get(fiber.HeaderXForwardedFor), ",")[0])
	if ip == "" {
		ip = c.Get("X-Real-IP")
	}
	if ip == "" {
		ip = c.IP()
	}
	return &Metadata{
		IP:        ip,
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Method:    c.Method(),
		Path:      c.Path(),
		RequestID: logging.RequestID(c),
	}
}

type Entry struct {
	MutationID  string
	ActorUserID string
	Action      models.AuditAction
	EntityType  string
	EntityID    string
	Changes     Changes
	Metadata    *Metadata
}

func (e Entry) validate() error {
	if e.ActorUserID == "" || e.EntityType == "" || e.EntityID == "" {
		return errors.New("audit entry needs actor, entity type and entity id")
	}
	hasBefore, hasAfter := e.Changes.Before != nil, e.Changes.After != nil
	switch e.Action {
	case models.AuditActionCreate:
		if hasBefore || !hasAfter {
			return errors.New("create audit entry must carry only after")
		}
	case models.AuditActionUpdate:
		if !hasBefore || !hasAfter {
			return errors.New("update audit entry must carry before and after")
		}
	case models.AuditActionDelete:
		if !hasBefore || hasAfter {
			return errors.New("delete audit entry must carry only before")
		}
	default:
		return fmt.Errorf("unknown audit action %q", e.Action)
	}
	return nil
}

func (e Entry) row() (models.AuditLog, error) {
	if err := e.validate(); err != nil {
		return models.AuditLog{}, err
	}
	changes, err := json.Marshal(e.Changes)
	if err != nil {
		return models.AuditLog{}, fmt.Errorf("encoding audit changes: %w", err)
	}
	row := models.AuditLog{
		MutationID:  e.MutationID,
		ActorUserID: e.ActorUserID,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Changes:     datatypes.JSON(changes),
	}
	if row.MutationID == "" {
		row.MutationID = uuid.NewString()
	}
	if e.Metadata != nil {
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return models.AuditLog{}, fmt.Errorf("encoding audit metadata: %w", err)
		}
		row.Metadata = datatypes.JSON(meta)
	}
	return row, nil
}

type Recorder struct {
	mode    Mode
	log     *slog.Logger
	partial atomic.Int64
}

func NewRecorder(mode Mode, log *slog.Logger) *Recorder {
	if mode != ModeBestEffort {
		mode = ModeAtomic
	}
	return &Recorder{mode: mode, log: log}
}

func (r *Recorder) Mode() Mode { return r.mode }

// PartialFailures counts committed mutations whose audit write failed.
func (r *Recorder) PartialFailures() int64 { return r.partial.Load() }

// Record appends one audit row. Writing the same MutationID twice leaves a
// single row.
func (r *Recorder) Record(ctx context.Context, db *gorm.DB, e Entry) error {
	row, err := e.row()
	if err != nil {
		return err
	}
	err = db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "mutation_id"}}, DoNothing: true}).
		Create(&row).Error
	return apperr.Store("writing audit log", err)
}

// Actor is who performed a mutation and from where.
type Actor struct {
	UserID  string
	Request *Metadata
}

// MutationFunc applies a business mutation inside tx and describes it.
type MutationFunc func(tx *gorm.DB) (Entry, error)

// Mutate runs fn and records its audit entry according to the recorder's
// mode. The audit row is never written unless fn's writes committed.
func (r *Recorder) Mutate(ctx context.Context, db *gorm.DB, actor Actor, fn MutationFunc) error {
	mutationID := uuid.NewString()
	stamp := func(e Entry) Entry {
		e.MutationID = mutationID
		e.ActorUserID = actor.UserID
		if e.Metadata == nil {
			e.Metadata = actor.Request
		}
		return e
	}

	if r.mode == ModeAtomic {
		err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			e, err := fn(tx)
			if err != nil {
				return err
			}
			return r.Record(ctx, tx, stamp(e))
		})
		return apperr.Store("applying mutation", err)
	}

	var entry Entry
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := fn(tx)
		if err != nil {
			return err
		}
		entry = stamp(e)
		return nil
	})
	if err != nil {
		return apperr.Store("applying mutation", err)
	}

	if err := r.Record(ctx, db, entry); err != nil {
		r.partial.Add(1)
		r.log.Error("audit write failed",
			"mutation_id", entry.MutationID,
			"entity_type", entry.EntityType,
			"entity_id", entry.EntityID,
			"action", entry.Action,
			"error", errors.Join(apperr.ErrAuditWritePartial, err),
		)
	}
	return nil
}

// FiberActor builds the Actor for a mutation made through HTTP.
func FiberActor(c *fiber.Ctx, userID string) Actor {
	return Actor{UserID: userID, Request: MetadataFromFiber(c)}
}
