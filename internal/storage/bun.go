package storage

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/flowcore/flowcore/internal/domain"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// FlowModel is the bun row mapping for flows, grounded on the teacher's
// WorkflowModel. The full Flow graph (nodes/edges/triggers/parameters)
// round-trips through a single jsonb column — the teacher's own
// WorkflowModel already stores its Spec the same way, so this keeps that
// shape rather than normalizing into per-node/per-edge tables the teacher
// never actually queried relationally either.
type FlowModel struct {
	bun.BaseModel `bun:"table:flows,alias:f"`

	ID        string          `bun:"id,pk"`
	Name      string          `bun:"name"`
	Version   string          `bun:"version"`
	State     domain.FlowState `bun:"state"`
	Document  []byte          `bun:"document,type:jsonb"`
}

// ExecutionModel is the bun row mapping for executions.
type ExecutionModel struct {
	bun.BaseModel `bun:"table:executions,alias:e"`

	ID       string                 `bun:"id,pk"`
	FlowID   string                 `bun:"flow_id"`
	Status   domain.ExecutionStatus `bun:"status"`
	Document []byte                 `bun:"document,type:jsonb"`
}

// BunStore is a Postgres-backed implementation of both FlowStorage and
// ExecutionStorage, grounded on the teacher's BunStore
// (internal/infrastructure/storage/bun_store.go): pgdriver connector,
// bun.NewDB with pgdialect, ON CONFLICT upserts inside RunInTx.
type BunStore struct {
	db *bun.DB
}

func NewBunStore(dsn string) *BunStore {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &BunStore{db: db}
}

func (s *BunStore) InitSchema(ctx context.Context) error {
	models := []any{(*FlowModel)(nil), (*ExecutionModel)(nil)}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *BunStore) Close() error { return s.db.Close() }

func (s *BunStore) Save(ctx context.Context, flow *domain.Flow) error {
	doc, err := json.Marshal(flow)
	if err != nil {
		return err
	}
	model := &FlowModel{ID: flow.ID, Name: flow.Name, Version: flow.Version, State: flow.State, Document: doc}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(model).
			On("CONFLICT (id) DO UPDATE").
			Set("name = EXCLUDED.name").
			Set("version = EXCLUDED.version").
			Set("state = EXCLUDED.state").
			Set("document = EXCLUDED.document").
			Exec(ctx)
		return err
	})
}

func (s *BunStore) Get(ctx context.Context, id string) (*domain.Flow, error) {
	model := new(FlowModel)
	if err := s.db.NewSelect().Model(model).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, domain.NewNotFoundError("flow", id)
	}
	flow := new(domain.Flow)
	if err := json.Unmarshal(model.Document, flow); err != nil {
		return nil, err
	}
	return flow, nil
}

func (s *BunStore) List(ctx context.Context) ([]*domain.Flow, error) {
	var models []FlowModel
	if err := s.db.NewSelect().Model(&models).Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]*domain.Flow, 0, len(models))
	for _, m := range models {
		flow := new(domain.Flow)
		if err := json.Unmarshal(m.Document, flow); err != nil {
			return nil, err
		}
		out = append(out, flow)
	}
	return out, nil
}

func (s *BunStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.NewDelete().Model((*FlowModel)(nil)).Where("id = ?", id).Exec(ctx)
	return err
}

func (s *BunStore) SaveExecution(ctx context.Context, exec *domain.FlowExecution) error {
	doc, err := json.Marshal(exec)
	if err != nil {
		return err
	}
	model := &ExecutionModel{ID: exec.ID, FlowID: exec.FlowID, Status: exec.Status, Document: doc}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(model).
			On("CONFLICT (id) DO UPDATE").
			Set("status = EXCLUDED.status").
			Set("document = EXCLUDED.document").
			Exec(ctx)
		return err
	})
}

func (s *BunStore) GetExecution(ctx context.Context, id string) (*domain.FlowExecution, error) {
	model := new(ExecutionModel)
	if err := s.db.NewSelect().Model(model).Where("id = ?", id).Scan(ctx); err != nil {
		return nil, domain.NewNotFoundError("execution", id)
	}
	exec := new(domain.FlowExecution)
	if err := json.Unmarshal(model.Document, exec); err != nil {
		return nil, err
	}
	return exec, nil
}

func (s *BunStore) UpdateExecutionStatus(ctx context.Context, id string, status domain.ExecutionStatus) error {
	_, err := s.db.NewUpdate().Model((*ExecutionModel)(nil)).Set("status = ?", status).Where("id = ?", id).Exec(ctx)
	return err
}

func (s *BunStore) ListExecutionsByFlow(ctx context.Context, flowID string) ([]*domain.FlowExecution, error) {
	var models []ExecutionModel
	if err := s.db.NewSelect().Model(&models).Where("flow_id = ?", flowID).Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]*domain.FlowExecution, 0, len(models))
	for _, m := range models {
		exec := new(domain.FlowExecution)
		if err := json.Unmarshal(m.Document, exec); err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	return out, nil
}

// BunExecutionStorage adapts BunStore's execution methods to the
// domain.ExecutionStorage interface (BunStore itself satisfies
// domain.FlowStorage directly; Go's method-name collision between flow and
// execution "Save"/"Get" is why executions get a distinct prefix and this
// thin adapter).
type BunExecutionStorage struct{ Store *BunStore }

func (a BunExecutionStorage) Save(ctx context.Context, exec *domain.FlowExecution) error {
	return a.Store.SaveExecution(ctx, exec)
}
func (a BunExecutionStorage) Get(ctx context.Context, id string) (*domain.FlowExecution, error) {
	return a.Store.GetExecution(ctx, id)
}
func (a BunExecutionStorage) UpdateStatus(ctx context.Context, id string, status domain.ExecutionStatus) error {
	return a.Store.UpdateExecutionStatus(ctx, id, status)
}
func (a BunExecutionStorage) ListByFlow(ctx context.Context, flowID string) ([]*domain.FlowExecution, error) {
	return a.Store.ListExecutionsByFlow(ctx, flowID)
}

var (
	_ domain.FlowStorage      = (*BunStore)(nil)
	_ domain.ExecutionStorage = BunExecutionStorage{}
)
